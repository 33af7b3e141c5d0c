package planner

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const promptTmpl = `You are an expert AI assistant for beginner developers. Given a project prompt, return a clearly structured JSON with project metadata, milestones, and granular steps.

{{.Prompt}}

The output must be a JSON object with the following keys:
- "title": string, the project title
- "description": string, a short description of the project
- "category": string, e.g. "Web Development"
- "tech_stack": list of strings, the technologies to use
- "difficulty": string, one of "Beginner", "Intermediate" or "Advanced"
- "milestones": list of objects, each with a "milestone_title" string and a "steps" list of objects with a "description" string

Respond only in valid JSON.
`

type promptData struct {
	Prompt string
}

func newPromptTemplate() (*template.Template, error) {
	tmpl, err := template.New("plan").Parse(promptTmpl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing prompt template")
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, prompt string) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, promptData{Prompt: prompt}); err != nil {
		return "", errors.Wrap(err, "rendering prompt")
	}
	return b.String(), nil
}
