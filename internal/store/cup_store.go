package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/db"
	"github.com/jmoiron/sqlx"
)

type CupStore struct{}

func NewCupStore() *CupStore {
	return &CupStore{}
}

const (
	createCupQuery = `INSERT INTO cups (id, name, description, size, status, current_round, end_date, created_by, created_at, updated_at)
		VALUES (:id, :name, :description, :size, :status, :current_round, :end_date, :created_by, :created_at, :updated_at)`
	createCupProjectsQuery = `INSERT INTO cup_projects (cup_id, project_id, seed)
		VALUES (:cup_id, :project_id, :seed)`
	createMatchesQuery = `INSERT INTO cup_matches (id, cup_id, round, position, project1_id, project2_id, status, end_date, created_at, updated_at)
		VALUES (:id, :cup_id, :round, :position, :project1_id, :project2_id, :status, :end_date, :created_at, :updated_at)`
	updateCupQuery = `UPDATE cups SET
		status = :status,
		current_round = :current_round,
		winner_id = :winner_id,
		end_date = :end_date,
		updated_at = :updated_at,
		completed_at = :completed_at
		WHERE id = :id`
)

func (s *CupStore) CreateCup(ctx context.Context, q Queryer, c *cup.Cup) error {
	_, err := sqlx.NamedExecContext(ctx, q, createCupQuery, c)
	return err
}

func (s *CupStore) CreateCupProjects(ctx context.Context, q Queryer, projects []cup.CupProject) error {
	if len(projects) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, createCupProjectsQuery, projects)
	return err
}

func (s *CupStore) GetCup(ctx context.Context, q Queryer, id uuid.UUID) (*cup.Cup, error) {
	var c cup.Cup
	err := sqlx.GetContext(ctx, q, &c, q.Rebind("SELECT * FROM cups WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err, "cup", id)
	}
	return &c, nil
}

// GetCupForUpdate reads the cup and, on postgres, locks its row until the
// transaction ends so round operations on one cup run one at a time.
func (s *CupStore) GetCupForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*cup.Cup, error) {
	query := builder(tx).Select("*").From("cups").Where(sq.Eq{"id": id.String()})
	if tx.DriverName() == db.DriverPostgres {
		query = query.Suffix("FOR UPDATE")
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var c cup.Cup
	if err := tx.GetContext(ctx, &c, sqlStr, args...); err != nil {
		return nil, notFound(err, "cup", id)
	}
	return &c, nil
}

func (s *CupStore) ListCups(ctx context.Context, q Queryer, status cup.CupStatus) ([]cup.Cup, error) {
	query := builder(q).Select("*").From("cups").OrderBy("created_at DESC")
	if status != "" {
		query = query.Where(sq.Eq{"status": status})
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	cups := []cup.Cup{}
	err = sqlx.SelectContext(ctx, q, &cups, sqlStr, args...)
	return cups, err
}

// GetCupProjectIDs returns the selected projects in seed order.
func (s *CupStore) GetCupProjectIDs(ctx context.Context, q Queryer, cupID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, q, &ids, q.Rebind("SELECT project_id FROM cup_projects WHERE cup_id = ? ORDER BY seed ASC"), cupID)
	return ids, err
}

func (s *CupStore) UpdateCup(ctx context.Context, q Queryer, c *cup.Cup) error {
	_, err := sqlx.NamedExecContext(ctx, q, updateCupQuery, c)
	return err
}

// CloseCup marks the cup completed unless it already is.
func (s *CupStore) CloseCup(ctx context.Context, q Queryer, id uuid.UUID, now time.Time) (bool, error) {
	return affected(q.ExecContext(ctx, q.Rebind(`UPDATE cups SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status <> ?`), cup.CupCompleted, now, now, id, cup.CupCompleted))
}

func (s *CupStore) CreateMatches(ctx context.Context, q Queryer, matches []cup.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, createMatchesQuery, matches)
	return err
}

func (s *CupStore) GetMatch(ctx context.Context, q Queryer, id uuid.UUID) (*cup.Match, error) {
	var m cup.Match
	err := sqlx.GetContext(ctx, q, &m, q.Rebind("SELECT * FROM cup_matches WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err, "match", id)
	}
	return &m, nil
}

// GetMatches returns every match of the cup, ordered by round progression
// and bracket position.
func (s *CupStore) GetMatches(ctx context.Context, q Queryer, cupID uuid.UUID) ([]cup.Match, error) {
	matches := []cup.Match{}
	err := sqlx.SelectContext(ctx, q, &matches, q.Rebind("SELECT * FROM cup_matches WHERE cup_id = ? ORDER BY position ASC"), cupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Round.Index() < matches[j].Round.Index()
	})
	return matches, nil
}

func (s *CupStore) GetRoundMatches(ctx context.Context, q Queryer, cupID uuid.UUID, round cup.Round) ([]cup.Match, error) {
	matches := []cup.Match{}
	err := sqlx.SelectContext(ctx, q, &matches,
		q.Rebind("SELECT * FROM cup_matches WHERE cup_id = ? AND round = ? ORDER BY position ASC"), cupID, round)
	return matches, err
}

func (s *CupStore) CountRoundMatches(ctx context.Context, q Queryer, cupID uuid.UUID, round cup.Round) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		q.Rebind("SELECT COUNT(*) FROM cup_matches WHERE cup_id = ? AND round = ?"), cupID, round)
	return count, err
}

// SetMatchWinner records the winner and completes the match. It reports false
// when the match already had a winner, leaving it untouched.
func (s *CupStore) SetMatchWinner(ctx context.Context, q Queryer, matchID, winnerID uuid.UUID, now time.Time) (bool, error) {
	ok, err := affected(q.ExecContext(ctx, q.Rebind(`UPDATE cup_matches
		SET winner_id = ?, status = ?, completed_at = COALESCE(completed_at, ?), updated_at = ?
		WHERE id = ? AND winner_id IS NULL`), winnerID, cup.MatchCompleted, now, now, matchID))
	if err != nil {
		return false, fmt.Errorf("failed to set winner of match %s: %w", matchID, err)
	}
	return ok, nil
}

// CloseMatch completes a match without deciding it.
func (s *CupStore) CloseMatch(ctx context.Context, q Queryer, matchID uuid.UUID, now time.Time) (bool, error) {
	return affected(q.ExecContext(ctx, q.Rebind(`UPDATE cup_matches SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status <> ?`), cup.MatchCompleted, now, now, matchID, cup.MatchCompleted))
}
