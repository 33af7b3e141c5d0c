package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/plan"
)

// MockGenerator returns a canned plan, or Err when set.
type MockGenerator struct {
	mu      sync.Mutex
	Plan    plan.Plan
	Cost    decimal.Decimal
	Err     error
	Prompts []string
}

var _ plan.Generator = (*MockGenerator)(nil) // interface compliance check

func NewMockGenerator(p plan.Plan, cost decimal.Decimal) *MockGenerator {
	return &MockGenerator{Plan: p, Cost: cost}
}

func (g *MockGenerator) Generate(ctx context.Context, prompt string) (plan.Plan, decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Prompts = append(g.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return plan.Plan{}, decimal.Zero, core.NewGenerationError(err)
	}
	if g.Err != nil {
		return plan.Plan{}, decimal.Zero, g.Err
	}
	return g.Plan.Clone(), g.Cost, nil
}

// ConsoleGenerator answers every prompt with a fixed starter plan and logs the prompt.
// Handy in DEV when no API key is configured.
type ConsoleGenerator struct {
	logger  core.Logger
	pricing Pricing
}

var _ plan.Generator = (*ConsoleGenerator)(nil) // interface compliance check

func NewConsoleGenerator(logger core.Logger, pricing Pricing) *ConsoleGenerator {
	return &ConsoleGenerator{logger: logger, pricing: pricing}
}

func (g *ConsoleGenerator) Generate(ctx context.Context, prompt string) (plan.Plan, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return plan.Plan{}, decimal.Zero, core.NewGenerationError(err)
	}
	g.logger.Info(fmt.Sprintf("console planner received prompt: %q", prompt))

	steps := func(descs ...string) []plan.Step {
		s := make([]plan.Step, 0, len(descs))
		for i, d := range descs {
			s = append(s, plan.Step{StepNumber: i, Description: d})
		}
		return s
	}
	p := plan.Plan{
		Title:       prompt,
		Description: "A starter plan drafted offline.",
		Category:    "General",
		TechStack:   []string{},
		Difficulty:  "Beginner",
		Milestones: []plan.Milestone{
			{MilestoneNumber: 0, Title: "Set up", Steps: steps("Create the repository", "Install the toolchain")},
			{MilestoneNumber: 1, Title: "Build", Steps: steps("Implement the core feature", "Write tests")},
			{MilestoneNumber: 2, Title: "Ship", Steps: steps("Deploy", "Share it")},
		},
	}
	return p, g.pricing.Cost(EstimateUnits(prompt), 0), nil
}
