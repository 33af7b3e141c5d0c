package plan

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/devpath/core"
)

var errEmptyDraft = errors.New("generated plan has no milestones")

var (
	orderingFields = map[string]bool{
		"created_at": true,
		"updated_at": true,
		"title":      true,
	}
	defaultOrdering = core.DBOrdering{Field: "created_at", Ascending: false}
)

type (
	// Generator drafts a Plan out of free text.
	Generator interface {
		Generate(ctx context.Context, prompt string) (Plan, decimal.Decimal, error)
	}

	Repository interface {
		CreateProject(ctx context.Context, p Project) (Project, error)
		// GetProject fails with ErrNotFound when the project does not exist or is not owned by ownerID.
		GetProject(ctx context.Context, ownerID, id string) (Project, error)
		QueryProjects(ctx context.Context, ownerID string, orderBy string) ([]Project, error)
		// ReplaceProject overwrites the completion state of p if it is still at p.Version.
		// Fails with ErrConflict otherwise.
		ReplaceProject(ctx context.Context, p Project) (Project, error)
	}

	Service struct {
		repo      Repository
		generator Generator
		logger    core.Logger
	}
)

func NewService(repo Repository, generator Generator, logger core.Logger) *Service {
	return &Service{repo: repo, generator: generator, logger: logger}
}

// Generate drafts a new plan out of prompt. Nothing is persisted.
func (svc *Service) Generate(ctx context.Context, prompt string) (Draft, error) {
	prompt = core.CleanString(prompt)
	if prompt == "" {
		return Draft{}, core.NewValidationError(
			errors.New("prompt is required"),
			core.FieldError{Field: "prompt", Error: "this field may not be blank"},
		)
	}

	p, cost, err := svc.generator.Generate(ctx, prompt)
	if err != nil {
		if core.IsGenerationFailed(err) {
			return Draft{}, err
		}
		return Draft{}, core.NewGenerationError(err)
	}
	if len(p.Milestones) == 0 {
		return Draft{}, ErrNoMilestones
	}
	if cost.IsNegative() {
		cost = decimal.Zero
	}
	svc.logger.Debug("plan generated", map[string]interface{}{"milestones": len(p.Milestones), "cost": cost.String()})
	return Draft{Data: Reset(p), Cost: cost}, nil
}

// Save persists a draft on behalf of ownerID, with every completion flag cleared.
func (svc *Service) Save(ctx context.Context, ownerID string, sr SaveRequest) (Project, error) {
	now := time.Now().UTC()
	p := Project{
		OwnerID:   ownerID,
		Plan:      sr.plan(),
		Cost:      sr.Cost,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err := svc.repo.CreateProject(ctx, p)
	if err != nil {
		return Project{}, errors.Wrap(err, "creating project")
	}
	return p, nil
}

func (svc *Service) List(ctx context.Context, ownerID string, ordering []core.DBOrdering) ([]Project, error) {
	orderBy, err := core.OrderingClause(ordering, orderingFields, defaultOrdering)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryProjects(ctx, ownerID, orderBy)
}

func (svc *Service) Get(ctx context.Context, ownerID, id string) (Project, error) {
	return svc.repo.GetProject(ctx, ownerID, id)
}

func (svc *Service) SetMilestoneStatus(ctx context.Context, ownerID, id string, milestoneNumber int, completed bool) (Project, error) {
	return svc.update(ctx, ownerID, id, func(p Plan) (Plan, error) {
		return SetMilestoneStatus(p, milestoneNumber, completed)
	})
}

func (svc *Service) SetStepStatus(ctx context.Context, ownerID, id string, milestoneNumber, stepNumber int, done bool) (Project, error) {
	return svc.update(ctx, ownerID, id, func(p Plan) (Plan, error) {
		return SetStepStatus(p, milestoneNumber, stepNumber, done)
	})
}

// update loads, transitions & stores a project. A concurrent update surfaces as ErrConflict.
func (svc *Service) update(ctx context.Context, ownerID, id string, transition func(Plan) (Plan, error)) (Project, error) {
	proj, err := svc.repo.GetProject(ctx, ownerID, id)
	if err != nil {
		return Project{}, err
	}
	next, err := transition(proj.Plan)
	if err != nil {
		return Project{}, err
	}
	proj.Plan = next
	proj.UpdatedAt = time.Now().UTC()

	saved, err := svc.repo.ReplaceProject(ctx, proj)
	if err != nil {
		if core.IsConflict(err) {
			svc.logger.Warn("concurrent project update", map[string]interface{}{"project": id, "version": proj.Version})
		}
		return Project{}, err
	}
	return saved, nil
}

// Validate cleans & checks a SaveRequest.
func (sr *SaveRequest) Validate(validate *validator.Validate) error {
	data := &sr.Data
	data.Title = core.CleanString(data.Title)
	data.Description = core.CleanString(data.Description)
	data.Category = core.CleanString(data.Category)
	data.Difficulty = core.CleanString(data.Difficulty)
	techStack := make([]string, 0, len(data.TechStack))
	for _, tech := range data.TechStack {
		if tech = core.CleanString(tech); tech != "" {
			techStack = append(techStack, tech)
		}
	}
	data.TechStack = techStack

	for i := range data.Milestones {
		m := &data.Milestones[i]
		m.Title = core.CleanString(m.Title)
		steps := make([]SaveStep, 0, len(m.Steps))
		for _, s := range m.Steps {
			if s.Description = core.CleanString(s.Description); s.Description != "" {
				steps = append(steps, s)
			}
		}
		m.Steps = steps
	}

	if err := validate.Struct(sr); err != nil {
		return err
	}

	var fields []core.FieldError
	if sr.Cost.IsNegative() {
		fields = append(fields, core.FieldError{Field: "cost", Error: "cost cannot be negative"})
	}
	milestoneNumbers := make(map[int]bool, len(data.Milestones))
	for _, m := range data.Milestones {
		if milestoneNumbers[*m.MilestoneNumber] {
			fields = append(fields, core.FieldError{Field: "milestone_number", Error: "milestone numbers must be unique"})
			break
		}
		milestoneNumbers[*m.MilestoneNumber] = true
	}
	for _, m := range data.Milestones {
		stepNumbers := make(map[int]bool, len(m.Steps))
		dup := false
		for _, s := range m.Steps {
			if stepNumbers[*s.StepNumber] {
				dup = true
				break
			}
			stepNumbers[*s.StepNumber] = true
		}
		if dup {
			fields = append(fields, core.FieldError{Field: "step_number", Error: "step numbers must be unique within a milestone"})
			break
		}
	}
	if len(fields) > 0 {
		return core.NewValidationError(errors.New("invalid project"), fields...)
	}
	return nil
}

// plan converts a validated SaveRequest to a Plan, ordered by milestone and step numbers.
func (sr SaveRequest) plan() Plan {
	p := Plan{
		Title:       sr.Data.Title,
		Description: sr.Data.Description,
		Category:    sr.Data.Category,
		TechStack:   append([]string{}, sr.Data.TechStack...),
		Difficulty:  sr.Data.Difficulty,
		Milestones:  make([]Milestone, 0, len(sr.Data.Milestones)),
	}
	for _, sm := range sr.Data.Milestones {
		m := Milestone{
			MilestoneNumber: *sm.MilestoneNumber,
			Title:           sm.Title,
			Steps:           make([]Step, 0, len(sm.Steps)),
		}
		for _, ss := range sm.Steps {
			m.Steps = append(m.Steps, Step{StepNumber: *ss.StepNumber, Description: ss.Description})
		}
		sort.SliceStable(m.Steps, func(i, j int) bool { return m.Steps[i].StepNumber < m.Steps[j].StepNumber })
		p.Milestones = append(p.Milestones, m)
	}
	sort.SliceStable(p.Milestones, func(i, j int) bool {
		return p.Milestones[i].MilestoneNumber < p.Milestones[j].MilestoneNumber
	})
	return Reset(p)
}
