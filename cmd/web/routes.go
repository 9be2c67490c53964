package main

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/api"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/config"
	"github.com/hominio/cups/internal/httputil"
	"github.com/hominio/cups/internal/metrics"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/service"
	"github.com/hominio/cups/internal/store"
	"github.com/hominio/cups/views"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
)

type app struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	metrics        *metrics.Metrics
	userStore      *store.UserStore

	users  *service.UserService
	cups   *service.CupService
	expiry *service.ExpiryService
	api    *api.API
}

func newApp(cfg *config.Config, database *sqlx.DB, notifier service.Notifier, c *cache.Cache, m *metrics.Metrics, sessionManager *scs.SessionManager) *app {
	deps := service.NewDeps(database, notifier, c, m)
	expiry := service.NewExpiryService(deps)
	userStore := store.NewUserStore(database)
	cups := service.NewCupService(deps, expiry)

	return &app{
		cfg:            cfg,
		sessionManager: sessionManager,
		metrics:        m,
		userStore:      userStore,
		users:          service.NewUserService(database, userStore, cfg.IsAdminEmail),
		cups:           cups,
		expiry:         expiry,
		api: api.New(api.Services{
			Votes:         service.NewVoteService(deps, expiry),
			Rounds:        service.NewRoundService(deps, expiry),
			Cups:          cups,
			Expiry:        expiry,
			Identities:    service.NewIdentityService(database, deps.Identities, userStore, deps.Cups),
			Projects:      service.NewProjectService(deps.Projects),
			Notifications: service.NewNotificationService(store.NewNotificationStore(database)),
		}, middleware.NewRateLimiter(cfg.VoteRateLimit, max(1, int(cfg.VoteRateLimit*2)))),
	}
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true, Timeout: 2 * time.Second}).Handle)
	if len(a.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(a.sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(a.sessionManager, a.userStore))

	r.Handle("/metrics", a.metrics.Handler())
	r.Mount("/alpha/api", a.api.Routes())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/alpha/api/cups?status=active", http.StatusFound)
	})

	r.Get("/alpha/cups/{id}", func(w http.ResponseWriter, r *http.Request) {
		cupID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.BadRequest(w, "Invalid cup ID", err)
			return
		}

		view, err := a.cups.GetCup(r.Context(), cupID)
		if err != nil {
			httputil.Error(w, r, "Failed to get cup", err)
			return
		}
		if err := views.Render(w, r, views.CupPage(views.PrepareCupData(view))); err != nil {
			httputil.InternalServerError(w, r, "Failed to render cup", err)
		}
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, chi.URLParam(r, "provider")))
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := a.users.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, r, "Failed to find or create user", err)
			return
		}

		if err := a.sessionManager.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, r, "Failed to renew session", err)
			return
		}
		a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
		http.Redirect(w, r, "/", http.StatusFound)
	})

	if !a.cfg.IsProduction() {
		r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
			user, err := a.users.EnsureGuestUser(r.Context())
			if err != nil {
				httputil.InternalServerError(w, r, "Failed to login as guest", err)
				return
			}

			a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
			httputil.WriteJSON(w, http.StatusOK, user)
		})
	}

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := a.sessionManager.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, r, "Failed to log out", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
