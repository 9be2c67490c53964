package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/jmoiron/sqlx"
)

type VoteStore struct{}

func NewVoteStore() *VoteStore {
	return &VoteStore{}
}

// The ballot only lands while its match is still undecided.
const createVoteQuery = `INSERT INTO votes (id, user_id, match_id, project_side, voting_weight, created_at)
	SELECT :id, :user_id, :match_id, :project_side, :voting_weight, :created_at
	WHERE EXISTS (
		SELECT 1 FROM cup_matches
		WHERE id = :match_id AND status <> 'completed' AND winner_id IS NULL
	)`

func (s *VoteStore) HasVoted(ctx context.Context, q Queryer, userID, matchID uuid.UUID) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		q.Rebind("SELECT COUNT(*) FROM votes WHERE user_id = ? AND match_id = ?"), userID, matchID)
	return count > 0, err
}

// CreateVote inserts the ballot. A second ballot from the same user on the
// same match fails with cup.ErrAlreadyVoted, a ballot on a decided match with
// cup.ErrMatchClosed.
func (s *VoteStore) CreateVote(ctx context.Context, q Queryer, v *cup.Vote) error {
	res, err := sqlx.NamedExecContext(ctx, q, createVoteQuery, v)
	if err != nil {
		if isUniqueViolation(err) {
			return cup.ErrAlreadyVoted
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return cup.ErrMatchClosed
	}
	return nil
}

type sideSum struct {
	MatchID uuid.UUID `db:"match_id"`
	Side    cup.Side  `db:"project_side"`
	Total   int64     `db:"total"`
}

// Tallies sums voting weight per side for each of the given matches.
// Matches without votes are present with a zero tally.
func (s *VoteStore) Tallies(ctx context.Context, q Queryer, matchIDs []uuid.UUID) (map[uuid.UUID]cup.Tally, error) {
	tallies := make(map[uuid.UUID]cup.Tally, len(matchIDs))
	if len(matchIDs) == 0 {
		return tallies, nil
	}
	for _, id := range matchIDs {
		tallies[id] = cup.Tally{}
	}

	sqlStr, args, err := builder(q).
		Select("match_id", "project_side", "COALESCE(SUM(voting_weight), 0) AS total").
		From("votes").
		Where(sq.Eq{"match_id": idStrings(matchIDs)}).
		GroupBy("match_id", "project_side").
		ToSql()
	if err != nil {
		return nil, err
	}

	var sums []sideSum
	if err := sqlx.SelectContext(ctx, q, &sums, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to sum votes: %w", err)
	}

	for _, sum := range sums {
		t := tallies[sum.MatchID]
		switch sum.Side {
		case cup.SideProject1:
			t.Votes1 = sum.Total
		case cup.SideProject2:
			t.Votes2 = sum.Total
		}
		tallies[sum.MatchID] = t
	}
	return tallies, nil
}

func (s *VoteStore) Tally(ctx context.Context, q Queryer, matchID uuid.UUID) (cup.Tally, error) {
	tallies, err := s.Tallies(ctx, q, []uuid.UUID{matchID})
	if err != nil {
		return cup.Tally{}, err
	}
	return tallies[matchID], nil
}

// GetUserVote returns the user's ballot on the match, or nil if none exists.
func (s *VoteStore) GetUserVote(ctx context.Context, q Queryer, userID, matchID uuid.UUID) (*cup.Vote, error) {
	var v cup.Vote
	err := sqlx.GetContext(ctx, q, &v,
		q.Rebind("SELECT * FROM votes WHERE user_id = ? AND match_id = ?"), userID, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VoteStore) CountVotes(ctx context.Context, q Queryer, matchID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, q.Rebind("SELECT COUNT(*) FROM votes WHERE match_id = ?"), matchID)
	return count, err
}
