package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/config"
	"github.com/hominio/cups/internal/httputil"
	users "github.com/hominio/cups/internal/user"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// SessionUserKey is the session entry holding the logged in user's id.
const SessionUserKey = "userID"

// InitAuth registers the OAuth providers that have credentials configured.
func InitAuth(cfg *config.Config) {
	var providers []goth.Provider
	if cfg.DiscordKey != "" {
		providers = append(providers, discord.New(cfg.DiscordKey, cfg.DiscordSecret, cfg.DiscordCallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
	}
	if cfg.GoogleKey != "" {
		providers = append(providers, google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.GoogleCallbackURL, "email", "profile"))
	}
	goth.UseProviders(providers...)
}

type UserGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// LoadAuthenticatedUser puts the session's user into the request context.
// Requests without a valid session pass through anonymously.
func LoadAuthenticatedUser(sessionManager *scs.SessionManager, userStore UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIDStr := sessionManager.GetString(r.Context(), SessionUserKey)
			if userIDStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				sessionManager.Remove(r.Context(), SessionUserKey)
				next.ServeHTTP(w, r)
				return
			}

			user, err := userStore.GetUser(r.Context(), userID)
			if err != nil {
				// Deleted user or storage fault, treat as logged out
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *users.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	return context.WithValue(ctx, users.UserKey, user)
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthenticatedUser(r.Context())
		if user == nil {
			httputil.Unauthorized(w)
			return
		}
		if !user.IsAdmin {
			httputil.Forbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	val := ctx.Value(users.UserKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*users.User)
	if !ok {
		return nil
	}
	return user
}
