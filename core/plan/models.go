package plan

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// costs are sent as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type Step struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
	IsDone      bool   `json:"is_done"`
}

type Milestone struct {
	MilestoneNumber int    `json:"milestone_number"`
	Title           string `json:"title"`
	Steps           []Step `json:"steps"`
	IsCompleted     bool   `json:"is_completed"`
}

// Plan is a learning project broken down into ordered milestones of ordered steps.
type Plan struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Category      string      `json:"category"`
	TechStack     []string    `json:"tech_stack"`
	Difficulty    string      `json:"difficulty"`
	Milestones    []Milestone `json:"milestones"`
	IsProjectDone bool        `json:"is_project_done"`
}

// Clone returns a deep copy of p.
func (p Plan) Clone() Plan {
	c := p
	if p.TechStack != nil {
		c.TechStack = append([]string(nil), p.TechStack...)
	}
	if p.Milestones != nil {
		c.Milestones = make([]Milestone, len(p.Milestones))
		for i, m := range p.Milestones {
			c.Milestones[i] = m
			if m.Steps != nil {
				c.Milestones[i].Steps = append([]Step(nil), m.Steps...)
			}
		}
	}
	return c
}

// Project is a Plan saved by its owner.
type Project struct {
	ID      string `json:"id"`
	OwnerID string `json:"-"`
	Plan
	Cost      decimal.Decimal `json:"cost_usd"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

// Draft is a freshly generated plan and what it cost to generate.
type Draft struct {
	Data Plan            `json:"data"`
	Cost decimal.Decimal `json:"cost"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt" form:"prompt" validate:"notblank"`
}

// SaveRequest holds a (possibly user-edited) Draft to persist.
type SaveRequest struct {
	Data SavePlan        `json:"data"`
	Cost decimal.Decimal `json:"cost"`
}

type (
	SavePlan struct {
		Title       string          `json:"title" validate:"notblank,max=255"`
		Description string          `json:"description"`
		Category    string          `json:"category" validate:"max=100"`
		TechStack   []string        `json:"tech_stack"`
		Difficulty  string          `json:"difficulty" validate:"max=50"`
		Milestones  []SaveMilestone `json:"milestones" validate:"required,min=1,dive"`
	}

	SaveMilestone struct {
		MilestoneNumber *int       `json:"milestone_number" validate:"required,min=0"`
		Title           string     `json:"title" validate:"notblank"`
		Steps           []SaveStep `json:"steps" validate:"required,min=1,dive"`
	}

	SaveStep struct {
		StepNumber  *int   `json:"step_number" validate:"required,min=0"`
		Description string `json:"description"`
	}
)

type (
	MilestoneStatusRequest struct {
		MilestoneNumber *int  `json:"milestone_number" validate:"required"`
		IsCompleted     *bool `json:"is_completed" validate:"required"`
	}

	StepStatusRequest struct {
		MilestoneNumber *int  `json:"milestone_number" validate:"required"`
		StepNumber      *int  `json:"step_number" validate:"required"`
		IsDone          *bool `json:"is_done" validate:"required"`
	}
)
