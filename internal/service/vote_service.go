package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/notify"
)

type VoteService struct {
	Deps
	expiry *ExpiryService
}

func NewVoteService(deps Deps, expiry *ExpiryService) *VoteService {
	return &VoteService{Deps: deps, expiry: expiry}
}

type VoteResult struct {
	NewTotal     int64    `json:"newTotal"`
	Voted        cup.Side `json:"voted"`
	VotingWeight int      `json:"votingWeight"`
}

// CastVote records the user's weighted ballot for one side of a match.
func (s *VoteService) CastVote(ctx context.Context, userID, matchID uuid.UUID, side cup.Side) (*VoteResult, error) {
	if !side.Valid() {
		return nil, cup.ErrInvalidSide
	}

	match, err := s.Cups.GetMatch(ctx, s.DB, matchID)
	if err != nil {
		return nil, err
	}
	c, err := s.Cups.GetCup(ctx, s.DB, match.CupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cup: %w", err)
	}

	expired, err := s.expiry.closeExpiredRound(ctx, c, match)
	if err != nil {
		return nil, err
	}
	if expired {
		s.reject("expired")
		return nil, cup.ErrVotingExpired
	}

	if match.Status == cup.MatchCompleted || match.HasWinner() {
		s.reject("closed")
		return nil, cup.ErrMatchClosed
	}

	identity, err := s.Identities.GetVotingIdentity(ctx, userID, c.ID)
	if errors.Is(err, cup.ErrNotFound) {
		s.reject("no_identity")
		return nil, cup.ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voting identity: %w", err)
	}

	voted, err := s.Votes.HasVoted(ctx, s.DB, userID, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if voted {
		s.reject("duplicate")
		return nil, cup.ErrAlreadyVoted
	}

	projects, err := s.Projects.GetProjects(ctx, []uuid.UUID{match.Project1ID, match.Project2ID})
	if err != nil {
		return nil, fmt.Errorf("failed to get match projects: %w", err)
	}
	chosen := projects[match.ProjectFor(side)]
	if chosen.UserID == userID {
		s.reject("self_vote")
		return nil, cup.ErrSelfVote
	}

	vote := &cup.Vote{
		ID:           uuid.New(),
		UserID:       userID,
		MatchID:      matchID,
		ProjectSide:  side,
		VotingWeight: identity.VotingWeight,
		CreatedAt:    s.now(),
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// EndRound takes the same lock before deciding the round
	if _, err := s.Cups.GetCupForUpdate(ctx, tx, c.ID); err != nil {
		return nil, err
	}
	if err := s.Votes.CreateVote(ctx, tx, vote); err != nil {
		switch {
		case errors.Is(err, cup.ErrAlreadyVoted):
			s.reject("duplicate")
			return nil, err
		case errors.Is(err, cup.ErrMatchClosed):
			s.reject("closed")
			return nil, err
		}
		return nil, fmt.Errorf("failed to create vote: %w", err)
	}

	tally, err := s.Votes.Tally(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum votes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}

	s.Metrics.VotesCast.WithLabelValues(string(identity.IdentityType)).Inc()
	s.Metrics.VoteWeight.WithLabelValues(string(identity.IdentityType)).Add(float64(identity.VotingWeight))
	slog.Info("vote cast", "match", matchID, "side", side, "weight", identity.VotingWeight)

	s.notifyOwners(ctx, match, side, projects, identity.VotingWeight)
	s.invalidate(ctx, c.ID)

	return &VoteResult{
		NewTotal:     tally.For(side),
		Voted:        side,
		VotingWeight: identity.VotingWeight,
	}, nil
}

func (s *VoteService) reject(reason string) {
	s.Metrics.VotesRejected.WithLabelValues(reason).Inc()
}

// notifyOwners tells the backed project's owner about the vote and warns the
// opposing owner.
func (s *VoteService) notifyOwners(ctx context.Context, match *cup.Match, side cup.Side, projects map[uuid.UUID]cup.Project, weight int) {
	backed := projects[match.ProjectFor(side)]
	opponent := projects[match.ProjectFor(side.Opponent())]
	cupID, matchID := match.CupID, match.ID

	if backed.ID != uuid.Nil {
		s.Notifier.Notify(ctx, notify.Event{
			Type:     cup.NotifyVoteReceived,
			UserID:   backed.UserID,
			CupID:    &cupID,
			MatchID:  &matchID,
			Project:  backed.Name,
			Opponent: opponent.Name,
			Weight:   weight,
		})
	}
	if opponent.ID != uuid.Nil && opponent.UserID != backed.UserID {
		s.Notifier.Notify(ctx, notify.Event{
			Type:     cup.NotifyOpponentVote,
			UserID:   opponent.UserID,
			CupID:    &cupID,
			MatchID:  &matchID,
			Project:  opponent.Name,
			Opponent: backed.Name,
			Weight:   weight,
		})
	}
}

type MatchVotes struct {
	MatchID  uuid.UUID `json:"matchId"`
	Votes1   int64     `json:"votes1"`
	Votes2   int64     `json:"votes2"`
	Ballots  int       `json:"ballots"`
	UserVote *cup.Side `json:"userVote"`
}

// MatchVotes returns the weighted totals of a match and the side the user
// voted for, if any.
func (s *VoteService) MatchVotes(ctx context.Context, userID, matchID uuid.UUID) (*MatchVotes, error) {
	if _, err := s.Cups.GetMatch(ctx, s.DB, matchID); err != nil {
		return nil, err
	}

	tally, err := s.Votes.Tally(ctx, s.DB, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum votes: %w", err)
	}

	ballots, err := s.Votes.CountVotes(ctx, s.DB, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	result := &MatchVotes{MatchID: matchID, Votes1: tally.Votes1, Votes2: tally.Votes2, Ballots: ballots}
	if userID == uuid.Nil {
		return result, nil
	}

	vote, err := s.Votes.GetUserVote(ctx, s.DB, userID, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user vote: %w", err)
	}
	if vote != nil {
		result.UserVote = &vote.ProjectSide
	}
	return result, nil
}
