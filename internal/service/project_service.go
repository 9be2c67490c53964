package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/store"
)

type ProjectService struct {
	store *store.ProjectStore
}

func NewProjectService(store *store.ProjectStore) *ProjectService {
	return &ProjectService{store: store}
}

func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*cup.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, cup.ErrInvalidName
	}

	p := &cup.Project{
		ID:          uuid.New(),
		UserID:      ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all projects, or only those of ownerID when it is set.
func (s *ProjectService) List(ctx context.Context, ownerID *uuid.UUID) ([]cup.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}
