package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/jmoiron/sqlx"
)

type ProjectStore struct {
	db *sqlx.DB
}

func NewProjectStore(db *sqlx.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const createProjectQuery = `INSERT INTO projects (id, user_id, name, description, created_at)
	VALUES (:id, :user_id, :name, :description, :created_at)`

func (s *ProjectStore) CreateProject(ctx context.Context, p *cup.Project) error {
	_, err := s.db.NamedExecContext(ctx, createProjectQuery, p)
	return err
}

func (s *ProjectStore) GetProject(ctx context.Context, id uuid.UUID) (*cup.Project, error) {
	var p cup.Project
	if err := s.db.GetContext(ctx, &p, s.db.Rebind("SELECT * FROM projects WHERE id = ?"), id); err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

// GetProjects loads the given projects keyed by id. Unknown ids are absent
// from the result.
func (s *ProjectStore) GetProjects(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]cup.Project, error) {
	projects := make(map[uuid.UUID]cup.Project, len(ids))
	if len(ids) == 0 {
		return projects, nil
	}

	sqlStr, args, err := builder(s.db).Select("*").From("projects").Where(sq.Eq{"id": idStrings(ids)}).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []cup.Project
	if err := s.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		projects[p.ID] = p
	}
	return projects, nil
}

func (s *ProjectStore) ListProjects(ctx context.Context, ownerID *uuid.UUID) ([]cup.Project, error) {
	query := builder(s.db).Select("*").From("projects").OrderBy("created_at DESC")
	if ownerID != nil {
		query = query.Where(sq.Eq{"user_id": ownerID.String()})
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	projects := []cup.Project{}
	err = s.db.SelectContext(ctx, &projects, sqlStr, args...)
	return projects, err
}
