package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/store"
	users "github.com/hominio/cups/internal/user"
	"github.com/hominio/cups/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

type UserService struct {
	db      *sqlx.DB
	store   *store.UserStore
	isAdmin func(email string) bool
}

// NewUserService creates the service; isAdmin decides which login emails get
// admin rights.
func NewUserService(db *sqlx.DB, store *store.UserStore, isAdmin func(email string) bool) *UserService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &UserService{db: db, store: store, isAdmin: isAdmin}
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		admin := user.IsAdmin || s.isAdmin(gothUser.Email)
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != displayName(gothUser) || admin != user.IsAdmin {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			user.Username = displayName(gothUser)
			user.IsAdmin = admin
			if err := s.store.UpdateUserProfile(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   displayName(gothUser),
			IsAdmin:    s.isAdmin(gothUser.Email),
			CreatedAt:  time.Now().UTC(),
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		err := s.store.CreateUser(ctx, newUser)
		return newUser, err
	}

	return nil, err
}

var guestID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// EnsureGuestUser returns the shared development login, creating it on first use.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	user, err := s.store.GetUser(ctx, guestID)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		guestUser := &users.User{
			ID:        guestID,
			Email:     "guest@hominio.local",
			Username:  "Guest User",
			CreatedAt: time.Now().UTC(),
		}
		err := s.store.CreateUser(ctx, guestUser)
		return guestUser, err
	}
	return nil, err
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.store.GetUser(ctx, id)
}

func displayName(u goth.User) string {
	switch {
	case u.NickName != "":
		return u.NickName
	case u.Name != "":
		return u.Name
	}
	return u.Email
}
