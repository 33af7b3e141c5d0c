package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/devpath/core/plan"
)

type projectRepository struct {
	db *projectTable
}

var _ plan.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) plan.Repository {
	return &projectRepository{db: db.project}
}

func (repo *projectRepository) CreateProject(_ context.Context, p plan.Project) (plan.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	p.Plan = p.Plan.Clone()
	repo.db.table[p.ID] = &p
	return clone(p), nil
}

func (repo *projectRepository) GetProject(_ context.Context, ownerID, id string) (plan.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok && p.OwnerID == ownerID {
		return clone(*p), nil
	}
	return plan.Project{}, plan.ErrNotFound
}

// QueryProjects supports the "ORDER BY" lists built by core.OrderingClause.
func (repo *projectRepository) QueryProjects(_ context.Context, ownerID string, orderBy string) ([]plan.Project, error) {
	less, err := parseOrderBy(orderBy)
	if err != nil {
		return nil, err
	}

	repo.db.RLock()
	projects := make([]plan.Project, 0)
	for _, p := range repo.db.table {
		if p.OwnerID == ownerID {
			projects = append(projects, clone(*p))
		}
	}
	repo.db.RUnlock()

	sort.SliceStable(projects, func(i, j int) bool {
		for _, l := range less {
			if c := l(projects[i], projects[j]); c != 0 {
				return c < 0
			}
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

func (repo *projectRepository) ReplaceProject(_ context.Context, p plan.Project) (plan.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[p.ID]
	if !ok || stored.OwnerID != p.OwnerID {
		return plan.Project{}, plan.ErrNotFound
	}
	if stored.Version != p.Version {
		return plan.Project{}, plan.ErrConflict
	}

	next := clone(*stored)
	next.Milestones = p.Plan.Clone().Milestones
	next.IsProjectDone = p.IsProjectDone
	next.UpdatedAt = p.UpdatedAt
	next.Version++
	repo.db.table[p.ID] = &next
	return clone(next), nil
}

func clone(p plan.Project) plan.Project {
	p.Plan = p.Plan.Clone()
	return p
}

type compareFunc func(a, b plan.Project) int

func parseOrderBy(orderBy string) ([]compareFunc, error) {
	var funcs []compareFunc
	for _, part := range strings.Split(orderBy, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		desc := len(fields) > 1 && strings.EqualFold(fields[1], "DESC")

		var cmp compareFunc
		switch fields[0] {
		case "created_at":
			cmp = func(a, b plan.Project) int { return compareTime(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano()) }
		case "updated_at":
			cmp = func(a, b plan.Project) int { return compareTime(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano()) }
		case "title":
			cmp = func(a, b plan.Project) int { return strings.Compare(a.Title, b.Title) }
		default:
			return nil, errors.Errorf("cannot order by %q", fields[0])
		}
		if desc {
			asc := cmp
			cmp = func(a, b plan.Project) int { return -asc(a, b) }
		}
		funcs = append(funcs, cmp)
	}
	return funcs, nil
}

func compareTime(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
