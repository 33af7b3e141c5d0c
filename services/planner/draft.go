package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/plan"
)

type (
	// draft is the raw shape of the generator output.
	draft struct {
		Title       string           `json:"title"`
		Description string           `json:"description"`
		Category    string           `json:"category"`
		TechStack   techStack        `json:"tech_stack"`
		Difficulty  string           `json:"difficulty"`
		Milestones  []draftMilestone `json:"milestones"`
	}

	draftMilestone struct {
		MilestoneTitle string            `json:"milestone_title"`
		Title          string            `json:"title"`
		Steps          []json.RawMessage `json:"steps"`
	}

	draftStep struct {
		Description     string `json:"description"`
		StepDescription string `json:"step_description"`
	}

	// techStack accepts either a list of names or a comma-separated string.
	techStack []string
)

func (ts *techStack) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = techStack{}
		return nil
	}

	var parts []string
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parts = strings.Split(s, ",")
	} else if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "tech_stack must be a string or a list of strings")
	}

	stack := make(techStack, 0, len(parts))
	for _, p := range parts {
		if p = core.CleanString(p); p != "" {
			stack = append(stack, p)
		}
	}
	*ts = stack
	return nil
}

// stripFences removes the markdown code fences models like to wrap JSON with.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSpace(content)
	return strings.TrimSpace(strings.TrimSuffix(content, "```"))
}

func parseDraft(content []byte) (draft, error) {
	var d draft
	if err := json.Unmarshal(content, &d); err != nil {
		return draft{}, errors.Wrap(err, "decoding plan")
	}
	return d, nil
}

// normalize converts the draft to a Plan: blank or malformed steps are skipped,
// milestones left without steps are dropped & numbering is made zero-based and dense.
func (d draft) normalize(logger core.Logger) plan.Plan {
	p := plan.Plan{
		Title:       core.CleanString(d.Title),
		Description: core.CleanString(d.Description),
		Category:    core.CleanString(d.Category),
		TechStack:   []string(d.TechStack),
		Difficulty:  core.CleanString(d.Difficulty),
		Milestones:  make([]plan.Milestone, 0, len(d.Milestones)),
	}
	if p.TechStack == nil {
		p.TechStack = []string{}
	}

	for i, dm := range d.Milestones {
		title := core.CleanString(dm.MilestoneTitle)
		if title == "" {
			title = core.CleanString(dm.Title)
		}
		if title == "" {
			title = fmt.Sprintf("Milestone %d", i+1)
		}

		steps := make([]plan.Step, 0, len(dm.Steps))
		for j, raw := range dm.Steps {
			var ds draftStep
			if err := json.Unmarshal(raw, &ds); err != nil {
				logger.Warn(
					fmt.Sprintf("skipping malformed step %d of milestone %q", j, title),
					errors.Wrap(err, "decoding step"),
				)
				continue
			}
			desc := core.CleanString(ds.Description)
			if desc == "" {
				desc = core.CleanString(ds.StepDescription)
			}
			if desc == "" {
				continue
			}
			steps = append(steps, plan.Step{StepNumber: len(steps), Description: desc})
		}
		if len(steps) == 0 {
			logger.Warn(fmt.Sprintf("dropping milestone %q: no usable steps", title))
			continue
		}

		p.Milestones = append(p.Milestones, plan.Milestone{
			MilestoneNumber: len(p.Milestones),
			Title:           title,
			Steps:           steps,
		})
	}
	return p
}
