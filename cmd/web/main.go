package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/getsentry/sentry-go"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/config"
	"github.com/hominio/cups/internal/db"
	"github.com/hominio/cups/internal/metrics"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/notify"
	"github.com/hominio/cups/internal/scheduler"
	"github.com/hominio/cups/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
			slog.Warn("sentry disabled", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	database, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cupCache, err := cache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		return err
	}
	defer cupCache.Close()

	var notifyOpts []notify.Option
	if cfg.PushEnabled() {
		notifyOpts = append(notifyOpts, notify.WithPusher(&notify.WebPush{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subscriber: cfg.VAPIDSubscriber,
			TTL:        3600,
		}))
	}
	notifier := notify.New(store.NewNotificationStore(database), notifyOpts...)

	middleware.InitAuth(cfg)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Secure = cfg.IsProduction()
	sessionManager.Store = db.SessionStore(database)

	app := newApp(cfg, database, notifier, cupCache, metrics.New(), sessionManager)

	if cfg.ExpirySweepSchedule != "" {
		sweeps, err := scheduler.New(cfg.ExpirySweepSchedule, app.expiry)
		if err != nil {
			return err
		}
		sweeps.Start()
		defer sweeps.Stop(context.Background())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	notifier.Wait()
	return err
}
