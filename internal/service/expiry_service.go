package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
)

type ExpiryService struct {
	Deps
}

func NewExpiryService(deps Deps) *ExpiryService {
	return &ExpiryService{Deps: deps}
}

type SweepResult struct {
	MatchesClosed int `json:"matchesClosed"`
	CupsClosed    int `json:"cupsClosed"`
}

func (r *SweepResult) add(other SweepResult) {
	r.MatchesClosed += other.MatchesClosed
	r.CupsClosed += other.CupsClosed
}

// SweepCup completes the cup's matches whose voting window has passed, then
// the cup itself if its end date has passed. A failed update is logged and
// the sweep moves on.
func (s *ExpiryService) SweepCup(ctx context.Context, cupID uuid.UUID) (SweepResult, error) {
	c, err := s.Cups.GetCup(ctx, s.DB, cupID)
	if err != nil {
		return SweepResult{}, err
	}
	return s.sweep(ctx, c)
}

// SweepAll sweeps every active cup.
func (s *ExpiryService) SweepAll(ctx context.Context) (SweepResult, error) {
	var total SweepResult

	active, err := s.Cups.ListCups(ctx, s.DB, cup.CupActive)
	if err != nil {
		return total, fmt.Errorf("failed to list active cups: %w", err)
	}

	for i := range active {
		result, err := s.sweep(ctx, &active[i])
		if err != nil {
			slog.Error("expiry sweep failed", "cup", active[i].ID, "error", err)
			continue
		}
		total.add(result)
	}
	return total, nil
}

func (s *ExpiryService) sweep(ctx context.Context, c *cup.Cup) (SweepResult, error) {
	var result SweepResult
	if c.Status == cup.CupDraft {
		return result, nil
	}

	matches, err := s.Cups.GetMatches(ctx, s.DB, c.ID)
	if err != nil {
		return result, fmt.Errorf("failed to get matches: %w", err)
	}

	now := s.now()
	for _, m := range cup.ExpiredMatches(matches, c.EndDate, now) {
		closed, err := s.Cups.CloseMatch(ctx, s.DB, m.ID, now)
		if err != nil {
			slog.Error("failed to close expired match", "match", m.ID, "error", err)
			continue
		}
		if closed {
			result.MatchesClosed++
		}
	}

	if cup.CupExpired(c, now) {
		closed, err := s.Cups.CloseCup(ctx, s.DB, c.ID, now)
		if err != nil {
			slog.Error("failed to close expired cup", "cup", c.ID, "error", err)
		} else if closed {
			result.CupsClosed++
		}
	}

	if result.MatchesClosed > 0 || result.CupsClosed > 0 {
		s.Metrics.MatchesExpired.Add(float64(result.MatchesClosed))
		s.Metrics.CupsExpired.Add(float64(result.CupsClosed))
		s.invalidate(ctx, c.ID)
		slog.Info("closed expired cup entities", "cup", c.ID, "matches", result.MatchesClosed, "cups", result.CupsClosed)
	}
	return result, nil
}

// closeExpiredRound completes every expired open match of the round the given
// match belongs to and reports whether the match itself was among them.
func (s *ExpiryService) closeExpiredRound(ctx context.Context, c *cup.Cup, m *cup.Match) (bool, error) {
	siblings, err := s.Cups.GetRoundMatches(ctx, s.DB, c.ID, m.Round)
	if err != nil {
		return false, fmt.Errorf("failed to get round matches: %w", err)
	}

	now := s.now()
	roundEnd := cup.RoundEndDate(siblings, m.Round, c.EndDate)
	if !cup.IsExpired(cup.EffectiveEndDate(m, roundEnd), now) {
		return false, nil
	}

	closedAny := false
	for _, expired := range cup.ExpiredMatches(siblings, c.EndDate, now) {
		closed, err := s.Cups.CloseMatch(ctx, s.DB, expired.ID, now)
		if err != nil {
			slog.Error("failed to close expired match", "match", expired.ID, "error", err)
			continue
		}
		if closed {
			closedAny = true
			s.Metrics.MatchesExpired.Inc()
		}
	}
	if closedAny {
		s.invalidate(ctx, c.ID)
	}
	return true, nil
}
