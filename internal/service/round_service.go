package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/notify"
	"github.com/hominio/cups/internal/store"
	"github.com/hominio/cups/internal/utils"
)

type RoundService struct {
	Deps
	expiry *ExpiryService
}

func NewRoundService(deps Deps, expiry *ExpiryService) *RoundService {
	return &RoundService{Deps: deps, expiry: expiry}
}

type WinnerResult struct {
	WinnerID uuid.UUID `json:"winnerId"`
	Votes1   int64     `json:"votes1"`
	Votes2   int64     `json:"votes2"`
}

// DetermineMatchWinner decides a single match from its weighted votes. A
// match that already has a winner is left alone.
func (s *RoundService) DetermineMatchWinner(ctx context.Context, matchID uuid.UUID) (*WinnerResult, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.Cups.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if match.HasWinner() {
		return nil, cup.ErrWinnerDetermined
	}

	tally, err := s.Votes.Tally(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum votes: %w", err)
	}

	winnerID := cup.DecideWinner(match.Project1ID, match.Project2ID, tally)
	ok, err := s.Cups.SetMatchWinner(ctx, tx, matchID, winnerID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cup.ErrWinnerDetermined
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Metrics.WinnersDecided.Inc()
	s.invalidate(ctx, match.CupID)
	slog.Info("match winner determined", "match", matchID, "winner", winnerID, "votes1", tally.Votes1, "votes2", tally.Votes2)

	return &WinnerResult{WinnerID: winnerID, Votes1: tally.Votes1, Votes2: tally.Votes2}, nil
}

type EndRoundResult struct {
	WinnersCount int        `json:"winnersCount"`
	Message      string     `json:"message"`
	CupWinnerID  *uuid.UUID `json:"cupWinnerId,omitempty"`
}

// EndRound decides every undecided match of the cup's current round. Ending
// the final completes the cup.
func (s *RoundService) EndRound(ctx context.Context, cupID uuid.UUID) (*EndRoundResult, error) {
	if _, err := s.expiry.SweepCup(ctx, cupID); err != nil {
		return nil, err
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
	// An expired cup may still have its last round decided
	if c.Status == cup.CupDraft || c.WinnerID != nil {
		return nil, cup.ErrCupNotActive
	}

	matches, err := s.Cups.GetRoundMatches(ctx, tx, cupID, c.CurrentRound)
	if err != nil {
		return nil, fmt.Errorf("failed to get round matches: %w", err)
	}
	if len(matches) == 0 {
		return nil, cup.ErrNoMatches
	}

	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	tallies, err := s.Votes.Tallies(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &EndRoundResult{}
	for i := range matches {
		m := &matches[i]
		if m.HasWinner() {
			continue
		}
		winnerID := cup.DecideWinner(m.Project1ID, m.Project2ID, tallies[m.ID])
		ok, err := s.Cups.SetMatchWinner(ctx, tx, m.ID, winnerID, now)
		if err != nil {
			return nil, err
		}
		if ok {
			m.WinnerID = &winnerID
			result.WinnersCount++
		}
	}

	if c.CurrentRound == cup.Final {
		if !matches[0].HasWinner() {
			return nil, cup.ErrUndecidedMatches
		}
		champion := *matches[0].WinnerID
		c.Status = cup.CupCompleted
		c.WinnerID = &champion
		c.UpdatedAt = now
		if c.CompletedAt == nil {
			c.CompletedAt = &now
		}
		if err := s.Cups.UpdateCup(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("failed to complete cup: %w", err)
		}
		result.CupWinnerID = &champion
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Metrics.WinnersDecided.Add(float64(result.WinnersCount))
	s.invalidate(ctx, cupID)

	if result.CupWinnerID != nil {
		result.Message = "Final ended, cup completed"
		s.Metrics.CupsCompleted.Inc()
		s.announceChampion(ctx, cupID, *result.CupWinnerID)
	} else {
		result.Message = fmt.Sprintf("%s ended, %d winner(s) determined", c.CurrentRound.Label(), result.WinnersCount)
	}
	slog.Info("round ended", "cup", cupID, "round", c.CurrentRound, "winners", result.WinnersCount)
	return result, nil
}

func (s *RoundService) announceChampion(ctx context.Context, cupID, projectID uuid.UUID) {
	project, err := s.Projects.GetProject(ctx, projectID)
	if err != nil {
		slog.Error("failed to load cup winner", "cup", cupID, "project", projectID, "error", err)
		return
	}
	s.Notifier.Notify(ctx, notify.Event{
		Type:    cup.NotifyCupWon,
		UserID:  project.UserID,
		CupID:   &cupID,
		Project: project.Name,
	})
}

type NextRoundResult struct {
	NextRound      cup.Round `json:"nextRound"`
	MatchesCreated int       `json:"matchesCreated"`
}

// StartNextRound pairs the winners of the current round into the next one.
func (s *RoundService) StartNextRound(ctx context.Context, cupID uuid.UUID, endDate time.Time) (*NextRoundResult, error) {
	if endDate.IsZero() || !endDate.After(s.now()) {
		return nil, cup.ErrInvalidEndDate
	}
	if _, err := s.expiry.SweepCup(ctx, cupID); err != nil {
		return nil, err
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
	if c.Status != cup.CupActive {
		return nil, cup.ErrCupNotActive
	}

	current, err := s.Cups.GetRoundMatches(ctx, tx, cupID, c.CurrentRound)
	if err != nil {
		return nil, fmt.Errorf("failed to get round matches: %w", err)
	}

	advanced, err := s.justAdvanced(ctx, tx, c, current)
	if err != nil {
		return nil, err
	}
	if advanced {
		return nil, cup.ErrNextRoundExists
	}

	next, ok := cup.NextRound(c.CurrentRound)
	if !ok {
		return nil, cup.ErrFinalRound
	}

	existing, err := s.Cups.CountRoundMatches(ctx, tx, cupID, next)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, cup.ErrNextRoundExists
	}

	pairings, err := cup.PairWinners(current)
	if err != nil {
		return nil, err
	}
	if want := cup.MatchesIn(next); len(pairings) != want {
		return nil, fmt.Errorf("%s needs %d matches, winners make %d", next, want, len(pairings))
	}

	now := s.now()
	end := utils.UTC(&endDate)
	matches := newMatches(cupID, next, pairings, end, now)
	if err := s.Cups.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create %s matches: %w", next, err)
	}

	c.CurrentRound = next
	c.UpdatedAt = now
	coverRound(c, end)
	if err := s.Cups.UpdateCup(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("failed to advance cup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Metrics.RoundsStarted.WithLabelValues(string(next)).Inc()
	s.invalidate(ctx, cupID)
	s.announcePairings(ctx, cupID, matches)
	slog.Info("next round started", "cup", cupID, "round", next, "matches", len(matches))

	return &NextRoundResult{NextRound: next, MatchesCreated: len(matches)}, nil
}

// justAdvanced reports whether the current round came out of an earlier
// advancement and nothing in it has been decided or closed yet. Starting the
// next round again from that state means the round already exists.
func (s *RoundService) justAdvanced(ctx context.Context, q store.Queryer, c *cup.Cup, current []cup.Match) (bool, error) {
	previous, ok := cup.PreviousRound(c.CurrentRound)
	if !ok || len(current) == 0 {
		return false, nil
	}
	for i := range current {
		if current[i].HasWinner() || current[i].Status == cup.MatchCompleted {
			return false, nil
		}
	}

	count, err := s.Cups.CountRoundMatches(ctx, q, c.ID, previous)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
