package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/devpath/core/plan"
)

const projectColumns = "id, owner_id, title, description, category, tech_stack, difficulty, milestones, " +
	"cost_usd, is_project_done, version, created_at, updated_at"

// projectRow is a projects table row. tech_stack & milestones are JSON documents.
type projectRow struct {
	ID            string          `db:"id"`
	OwnerID       string          `db:"owner_id"`
	Title         string          `db:"title"`
	Description   string          `db:"description"`
	Category      string          `db:"category"`
	TechStack     string          `db:"tech_stack"`
	Difficulty    string          `db:"difficulty"`
	Milestones    string          `db:"milestones"`
	Cost          decimal.Decimal `db:"cost_usd"`
	IsProjectDone bool            `db:"is_project_done"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toProjectRow(p plan.Project) (projectRow, error) {
	techStack := p.TechStack
	if techStack == nil {
		techStack = []string{}
	}
	ts, err := json.Marshal(techStack)
	if err != nil {
		return projectRow{}, errors.Wrap(err, "encoding tech stack")
	}
	milestones := p.Milestones
	if milestones == nil {
		milestones = []plan.Milestone{}
	}
	ms, err := json.Marshal(milestones)
	if err != nil {
		return projectRow{}, errors.Wrap(err, "encoding milestones")
	}
	return projectRow{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Title:         p.Title,
		Description:   p.Description,
		Category:      p.Category,
		TechStack:     string(ts),
		Difficulty:    p.Difficulty,
		Milestones:    string(ms),
		Cost:          p.Cost,
		IsProjectDone: p.IsProjectDone,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}, nil
}

func (r projectRow) toProject() (plan.Project, error) {
	p := plan.Project{
		ID:      r.ID,
		OwnerID: r.OwnerID,
		Plan: plan.Plan{
			Title:         r.Title,
			Description:   r.Description,
			Category:      r.Category,
			Difficulty:    r.Difficulty,
			IsProjectDone: r.IsProjectDone,
		},
		Cost:      r.Cost,
		Version:   r.Version,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.TechStack), &p.TechStack); err != nil {
		return plan.Project{}, errors.Wrap(err, "decoding tech stack")
	}
	if err := json.Unmarshal([]byte(r.Milestones), &p.Milestones); err != nil {
		return plan.Project{}, errors.Wrap(err, "decoding milestones")
	}
	return p, nil
}

type projectRepository struct {
	db *sqlx.DB
}

var _ plan.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *sqlx.DB) plan.Repository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) CreateProject(ctx context.Context, p plan.Project) (plan.Project, error) {
	p.ID = uuid.New().String()
	row, err := toProjectRow(p)
	if err != nil {
		return plan.Project{}, err
	}
	q := "INSERT INTO projects (" + projectColumns + ") VALUES " +
		"(:id, :owner_id, :title, :description, :category, :tech_stack, :difficulty, :milestones, " +
		":cost_usd, :is_project_done, :version, :created_at, :updated_at)"
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return plan.Project{}, errors.Wrap(err, "inserting project")
	}
	return repo.GetProject(ctx, p.OwnerID, p.ID)
}

func (repo *projectRepository) GetProject(ctx context.Context, ownerID, id string) (plan.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return plan.Project{}, plan.ErrNotFound
	}

	var row projectRow
	q := repo.db.Rebind("SELECT " + projectColumns + " FROM projects WHERE id = ? AND owner_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id, ownerID); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return plan.Project{}, plan.ErrNotFound
		}
		return plan.Project{}, errors.Wrap(err, "selecting project")
	}
	return row.toProject()
}

// QueryProjects lists the projects of ownerID. orderBy must be a trusted "ORDER BY" list.
func (repo *projectRepository) QueryProjects(ctx context.Context, ownerID string, orderBy string) ([]plan.Project, error) {
	var rows []projectRow
	q := repo.db.Rebind("SELECT " + projectColumns + " FROM projects WHERE owner_id = ? ORDER BY " + orderBy + ", id")
	if err := repo.db.SelectContext(ctx, &rows, q, ownerID); err != nil {
		return nil, errors.Wrap(err, "selecting projects")
	}

	projects := make([]plan.Project, 0, len(rows))
	for _, row := range rows {
		p, err := row.toProject()
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// ReplaceProject writes the completion state of p in a single statement, guarded by its version.
func (repo *projectRepository) ReplaceProject(ctx context.Context, p plan.Project) (plan.Project, error) {
	row, err := toProjectRow(p)
	if err != nil {
		return plan.Project{}, err
	}
	q := "UPDATE projects SET milestones = :milestones, is_project_done = :is_project_done, " +
		"version = version + 1, updated_at = :updated_at " +
		"WHERE id = :id AND owner_id = :owner_id AND version = :version"
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return plan.Project{}, errors.Wrap(err, "updating project")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return plan.Project{}, errors.Wrap(err, "updating project")
	}
	if n == 0 {
		// lost the race, or the project is gone
		if _, err = repo.GetProject(ctx, p.OwnerID, p.ID); err != nil {
			return plan.Project{}, err
		}
		return plan.Project{}, plan.ErrConflict
	}
	return repo.GetProject(ctx, p.OwnerID, p.ID)
}
