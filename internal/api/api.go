// Package api serves the cup JSON endpoints under /alpha/api.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hominio/cups/internal/httputil"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/service"
)

type Services struct {
	Votes         *service.VoteService
	Rounds        *service.RoundService
	Cups          *service.CupService
	Expiry        *service.ExpiryService
	Identities    *service.IdentityService
	Projects      *service.ProjectService
	Notifications *service.NotificationService
}

type API struct {
	Services
	voteLimiter *middleware.RateLimiter
}

// New builds the API. voteLimiter may be nil to disable vote rate limiting.
func New(services Services, voteLimiter *middleware.RateLimiter) *API {
	return &API{Services: services, voteLimiter: voteLimiter}
}

// Routes expects the authenticated user, if any, to be in the request context.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/check-expiry", a.checkExpiry)
	r.Post("/check-expiry", a.checkExpiry)
	r.Get("/cups", a.listCups)
	r.Get("/cups/{id}", a.getCup)
	r.Get("/match-votes", a.matchVotes)
	r.Get("/projects", a.listProjects)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.With(a.limitVotes).Post("/vote-match", a.voteMatch)
		r.Post("/projects", a.createProject)
		r.Get("/notifications", a.listNotifications)
		r.Post("/notifications/{id}/read", a.markNotificationRead)
		r.Post("/push/subscribe", a.subscribePush)
		r.Get("/me", a.me)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Post("/determine-match-winner", a.determineMatchWinner)
		r.Post("/end-round", a.endRound)
		r.Post("/start-next-round", a.startNextRound)
		r.Post("/cups", a.createCup)
		r.Post("/start-cup", a.startCup)
		r.Post("/identities", a.grantIdentity)
	})

	return r
}

func (a *API) limitVotes(next http.Handler) http.Handler {
	if a.voteLimiter == nil {
		return next
	}
	return a.voteLimiter.Middleware(next)
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type successResponse struct {
	Success bool `json:"success"`
}

var success = successResponse{Success: true}

func writeOK(w http.ResponseWriter, body any) {
	httputil.WriteJSON(w, http.StatusOK, body)
}
