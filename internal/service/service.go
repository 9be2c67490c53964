package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/metrics"
	"github.com/hominio/cups/internal/notify"
	"github.com/hominio/cups/internal/store"
	"github.com/jmoiron/sqlx"
)

type Notifier interface {
	Notify(ctx context.Context, e notify.Event)
}

// Deps holds the collaborators shared by the cup services.
type Deps struct {
	DB         *sqlx.DB
	Cups       *store.CupStore
	Votes      *store.VoteStore
	Projects   *store.ProjectStore
	Identities *store.IdentityStore
	Notifier   Notifier
	Cache      *cache.Cache
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// NewDeps wires the default stores around db.
func NewDeps(db *sqlx.DB, notifier Notifier, c *cache.Cache, m *metrics.Metrics) Deps {
	return Deps{
		DB:         db,
		Cups:       store.NewCupStore(),
		Votes:      store.NewVoteStore(),
		Projects:   store.NewProjectStore(db),
		Identities: store.NewIdentityStore(db),
		Notifier:   notifier,
		Cache:      c,
		Metrics:    m,
		Now:        time.Now,
	}
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d Deps) invalidate(ctx context.Context, cupID uuid.UUID) {
	if err := d.Cache.InvalidateCup(ctx, cupID); err != nil {
		slog.Warn("failed to invalidate cup cache", "cup", cupID, "error", err)
	}
}

// announcePairings tells both owners of every new match who they face.
func (d Deps) announcePairings(ctx context.Context, cupID uuid.UUID, matches []cup.Match) {
	ids := make([]uuid.UUID, 0, len(matches)*2)
	for _, m := range matches {
		ids = append(ids, m.Project1ID, m.Project2ID)
	}
	projects, err := d.Projects.GetProjects(ctx, ids)
	if err != nil {
		slog.Error("failed to load projects for pairing notifications", "cup", cupID, "error", err)
		return
	}

	for _, m := range matches {
		matchID := m.ID
		p1, p2 := projects[m.Project1ID], projects[m.Project2ID]
		for _, pair := range [][2]cup.Project{{p1, p2}, {p2, p1}} {
			if pair[0].ID == uuid.Nil {
				continue
			}
			d.Notifier.Notify(ctx, notify.Event{
				Type:     cup.NotifyOpponentRevealed,
				UserID:   pair[0].UserID,
				CupID:    &cupID,
				MatchID:  &matchID,
				Project:  pair[0].Name,
				Opponent: pair[1].Name,
			})
		}
	}
}

// coverRound pushes the cup's end date out to the end of a newly opened round,
// so the cup cannot expire while that round is still being played.
func coverRound(c *cup.Cup, roundEnd *time.Time) {
	if c.EndDate != nil && roundEnd != nil && c.EndDate.Before(*roundEnd) {
		c.EndDate = roundEnd
	}
}

func newMatches(cupID uuid.UUID, round cup.Round, pairings []cup.Pairing, endDate *time.Time, now time.Time) []cup.Match {
	matches := make([]cup.Match, 0, len(pairings))
	for _, p := range pairings {
		matches = append(matches, cup.Match{
			ID:         uuid.New(),
			CupID:      cupID,
			Round:      round,
			Position:   p.Position,
			Project1ID: p.Project1ID,
			Project2ID: p.Project2ID,
			Status:     cup.MatchVoting,
			EndDate:    endDate,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return matches
}
