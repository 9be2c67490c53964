package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/jmoiron/sqlx"
)

type IdentityStore struct {
	db *sqlx.DB
}

func NewIdentityStore(db *sqlx.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

const createIdentityQuery = `INSERT INTO user_identities (id, user_id, identity_type, voting_weight, cup_id, created_at)
	VALUES (:id, :user_id, :identity_type, :voting_weight, :cup_id, :created_at)`

func (s *IdentityStore) CreateIdentity(ctx context.Context, identity *cup.Identity) error {
	_, err := s.db.NamedExecContext(ctx, createIdentityQuery, identity)
	return err
}

// GetVotingIdentity picks the identity a user votes with in a cup: a
// cup-scoped grant wins over a universal one, then the heaviest tier.
func (s *IdentityStore) GetVotingIdentity(ctx context.Context, userID, cupID uuid.UUID) (*cup.Identity, error) {
	sqlStr, args, err := builder(s.db).
		Select("*").
		From("user_identities").
		Where(sq.Eq{"user_id": userID.String()}).
		Where(sq.Or{sq.Eq{"cup_id": cupID.String()}, sq.Eq{"cup_id": nil}}).
		OrderBy("CASE WHEN cup_id IS NULL THEN 1 ELSE 0 END", "voting_weight DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var identity cup.Identity
	if err := s.db.GetContext(ctx, &identity, sqlStr, args...); err != nil {
		return nil, notFound(err, "identity for user", userID)
	}
	return &identity, nil
}

func (s *IdentityStore) GetIdentities(ctx context.Context, userID uuid.UUID) ([]cup.Identity, error) {
	identities := []cup.Identity{}
	err := s.db.SelectContext(ctx, &identities,
		s.db.Rebind("SELECT * FROM user_identities WHERE user_id = ? ORDER BY created_at ASC"), userID)
	return identities, err
}
