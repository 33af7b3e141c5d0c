package plan

import "github.com/trezcool/devpath/core"

var (
	ErrNotFound          = core.NewNotFoundError("project not found")
	ErrMilestoneNotFound = core.NewNotFoundError("milestone not found")
	ErrStepNotFound      = core.NewNotFoundError("step not found")
	ErrConflict          = core.NewConflictError("project was modified concurrently, reload it and try again")
	ErrNoMilestones      = core.NewGenerationError(errEmptyDraft)
)
