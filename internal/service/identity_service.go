package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/store"
	"github.com/jmoiron/sqlx"
)

type IdentityService struct {
	db         *sqlx.DB
	identities *store.IdentityStore
	users      *store.UserStore
	cups       *store.CupStore
}

func NewIdentityService(db *sqlx.DB, identities *store.IdentityStore, users *store.UserStore, cups *store.CupStore) *IdentityService {
	return &IdentityService{db: db, identities: identities, users: users, cups: cups}
}

type GrantInput struct {
	UserID       uuid.UUID
	IdentityType cup.IdentityType
	CupID        *uuid.UUID
}

// Grant gives a user a membership tier, universal or limited to one cup.
func (s *IdentityService) Grant(ctx context.Context, input GrantInput) (*cup.Identity, error) {
	if !input.IdentityType.Valid() {
		return nil, cup.ErrInvalidIdentity
	}

	if _, err := s.users.GetUser(ctx, input.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", input.UserID, cup.ErrNotFound)
		}
		return nil, err
	}
	if input.CupID != nil {
		if _, err := s.cups.GetCup(ctx, s.db, *input.CupID); err != nil {
			return nil, err
		}
	}

	identity := &cup.Identity{
		ID:           uuid.New(),
		UserID:       input.UserID,
		IdentityType: input.IdentityType,
		VotingWeight: input.IdentityType.VotingWeight(),
		CupID:        input.CupID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to grant identity: %w", err)
	}
	return identity, nil
}

func (s *IdentityService) List(ctx context.Context, userID uuid.UUID) ([]cup.Identity, error) {
	return s.identities.GetIdentities(ctx, userID)
}
