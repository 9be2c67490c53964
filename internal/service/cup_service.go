package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/utils"
)

type CupService struct {
	Deps
	expiry *ExpiryService
}

func NewCupService(deps Deps, expiry *ExpiryService) *CupService {
	return &CupService{Deps: deps, expiry: expiry}
}

type CreateCupInput struct {
	Name        string
	Description string
	Size        int
	ProjectIDs  []uuid.UUID
	EndDate     *time.Time
}

// CreateCup stores a draft cup with its selected projects in seed order.
func (s *CupService) CreateCup(ctx context.Context, adminID uuid.UUID, input CreateCupInput) (*cup.Cup, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, cup.ErrInvalidName
	}
	if !cup.ValidSize(input.Size) {
		return nil, cup.ErrInvalidSize
	}
	if len(input.ProjectIDs) > input.Size {
		return nil, cup.ErrInvalidProjects
	}
	seen := make(map[uuid.UUID]struct{}, len(input.ProjectIDs))
	for _, id := range input.ProjectIDs {
		if _, dup := seen[id]; dup {
			return nil, cup.ErrDuplicateProject
		}
		seen[id] = struct{}{}
	}

	now := s.now()
	if input.EndDate != nil && !input.EndDate.After(now) {
		return nil, cup.ErrInvalidEndDate
	}

	projects, err := s.Projects.GetProjects(ctx, input.ProjectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}
	for _, id := range input.ProjectIDs {
		if _, ok := projects[id]; !ok {
			return nil, fmt.Errorf("project %s: %w", id, cup.ErrNotFound)
		}
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := &cup.Cup{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Size:        input.Size,
		Status:      cup.CupDraft,
		CreatedBy:   adminID,
		EndDate:     utils.UTC(input.EndDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Cups.CreateCup(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("failed to create cup: %w", err)
	}

	selected := make([]cup.CupProject, len(input.ProjectIDs))
	for i, id := range input.ProjectIDs {
		selected[i] = cup.CupProject{CupID: c.ID, ProjectID: id, Seed: i + 1}
	}
	if err := s.Cups.CreateCupProjects(ctx, tx, selected); err != nil {
		return nil, fmt.Errorf("failed to select cup projects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("cup created", "cup", c.ID, "size", c.Size, "projects", len(selected))
	return c, nil
}

type StartCupResult struct {
	Round          cup.Round `json:"round"`
	MatchesCreated int       `json:"matchesCreated"`
}

// StartCup seeds the opening round of a full draft cup and opens voting.
func (s *CupService) StartCup(ctx context.Context, cupID uuid.UUID, endDate time.Time) (*StartCupResult, error) {
	now := s.now()
	if endDate.IsZero() || !endDate.After(now) {
		return nil, cup.ErrInvalidEndDate
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := s.Cups.GetCupForUpdate(ctx, tx, cupID)
	if err != nil {
		return nil, err
	}
	if c.Status != cup.CupDraft {
		return nil, cup.ErrCupNotDraft
	}

	projectIDs, err := s.Cups.GetCupProjectIDs(ctx, tx, cupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cup projects: %w", err)
	}
	if len(projectIDs) != c.Size {
		return nil, cup.ErrInvalidProjects
	}

	first, ok := cup.FirstRound(c.Size)
	if !ok {
		return nil, cup.ErrInvalidSize
	}

	end := utils.UTC(&endDate)
	matches := newMatches(cupID, first, cup.SeedFirstRound(projectIDs), end, now)
	if err := s.Cups.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create %s matches: %w", first, err)
	}

	c.Status = cup.CupActive
	c.CurrentRound = first
	c.UpdatedAt = now
	coverRound(c, end)
	if err := s.Cups.UpdateCup(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("failed to activate cup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Metrics.RoundsStarted.WithLabelValues(string(first)).Inc()
	s.invalidate(ctx, cupID)
	s.announcePairings(ctx, cupID, matches)
	slog.Info("cup started", "cup", cupID, "round", first, "matches", len(matches))

	return &StartCupResult{Round: first, MatchesCreated: len(matches)}, nil
}

type MatchView struct {
	cup.Match
	Project1 cup.Project `json:"project1"`
	Project2 cup.Project `json:"project2"`
	Votes1   int64       `json:"votes1"`
	Votes2   int64       `json:"votes2"`
}

type CupView struct {
	Cup     *cup.Cup     `json:"cup"`
	Matches []MatchView  `json:"matches"`
	Winner  *cup.Project `json:"winner,omitempty"`
}

// GetCup sweeps the cup for expired matches, then returns it with every match,
// its projects and weighted totals.
func (s *CupService) GetCup(ctx context.Context, cupID uuid.UUID) (*CupView, error) {
	if _, err := s.expiry.SweepCup(ctx, cupID); err != nil {
		return nil, err
	}

	var view CupView
	hit, err := s.Cache.GetJSON(ctx, cache.CupKey(cupID), &view)
	if err != nil {
		slog.Warn("cup cache read failed", "cup", cupID, "error", err)
	}
	if hit {
		return &view, nil
	}

	c, err := s.Cups.GetCup(ctx, s.DB, cupID)
	if err != nil {
		return nil, err
	}
	matches, err := s.Cups.GetMatches(ctx, s.DB, cupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	matchIDs := make([]uuid.UUID, len(matches))
	projectIDs := make([]uuid.UUID, 0, len(matches)*2+1)
	for i, m := range matches {
		matchIDs[i] = m.ID
		projectIDs = append(projectIDs, m.Project1ID, m.Project2ID)
	}
	if c.WinnerID != nil {
		projectIDs = append(projectIDs, *c.WinnerID)
	}

	tallies, err := s.Votes.Tallies(ctx, s.DB, matchIDs)
	if err != nil {
		return nil, err
	}
	projects, err := s.Projects.GetProjects(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}

	view = CupView{Cup: c, Matches: make([]MatchView, len(matches))}
	for i, m := range matches {
		tally := tallies[m.ID]
		view.Matches[i] = MatchView{
			Match:    m,
			Project1: projects[m.Project1ID],
			Project2: projects[m.Project2ID],
			Votes1:   tally.Votes1,
			Votes2:   tally.Votes2,
		}
	}
	if c.WinnerID != nil {
		if winner, ok := projects[*c.WinnerID]; ok {
			view.Winner = &winner
		}
	}

	if err := s.Cache.SetJSON(ctx, cache.CupKey(cupID), view); err != nil {
		slog.Warn("cup cache write failed", "cup", cupID, "error", err)
	}
	return &view, nil
}

func (s *CupService) ListCups(ctx context.Context, status cup.CupStatus) ([]cup.Cup, error) {
	return s.Cups.ListCups(ctx, s.DB, status)
}
