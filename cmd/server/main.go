package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/adaptive"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/feed"
	"github.com/p-n-ai/pai-adaptive/internal/httpapi"
	"github.com/p-n-ai/pai-adaptive/internal/interaction"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
	"github.com/p-n-ai/pai-adaptive/internal/platform/cache"
	"github.com/p-n-ai/pai-adaptive/internal/platform/config"
	"github.com/p-n-ai/pai-adaptive/internal/platform/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	cat, err := loadCatalog(cfg.Curriculum.Path)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	log := st.log
	var (
		hub         *feed.Hub
		feedHandler http.Handler
	)
	if cfg.Feed.Enabled {
		hub, err = feed.NewHub(cfg.Feed.Salt)
		if err != nil {
			return err
		}
		log = interaction.NewBroadcast(log, hub)
		feedHandler = hub
	}

	engine, err := adaptive.NewEngine(adaptive.EngineConfig{
		Catalog:           cat,
		Store:             st.learners,
		Log:               log,
		DefaultDifficulty: cfg.Engine.DefaultDifficulty,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	api, err := httpapi.New(httpapi.Options{
		Engine: engine,
		Feed:   feedHandler,
		Checks: st.checks,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if hub != nil {
		// Shutdown does not track hijacked websocket connections.
		srv.RegisterOnShutdown(hub.Close)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", srv.Addr,
			"store", cfg.Store.Driver,
			"cache", cfg.Cache.Enabled,
			"feed", cfg.Feed.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// loadCatalog reads the curriculum from dir, or the embedded catalog when
// dir is empty.
func loadCatalog(dir string) (*curriculum.Catalog, error) {
	if dir == "" {
		return curriculum.Default()
	}
	return curriculum.LoadDir(dir)
}

// storage is the persistence selected by configuration.
type storage struct {
	learners learner.Store
	log      interaction.Log
	checks   map[string]httpapi.Checker
	closers  []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	st := &storage{checks: map[string]httpapi.Checker{}}

	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		learners, err := learner.NewPostgresStore(db.Pool)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.learners = learners
		st.log = interaction.NewPostgresLog(db.Pool)
		st.checks["database"] = db
	default:
		st.learners = learner.NewMemoryStore()
		st.log = interaction.NewMemoryLog()
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.TTL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		st.closers = append(st.closers, func() { _ = c.Close() })
		st.learners = learner.NewCachedStore(st.learners, c.Client, c.TTL)
		st.checks["cache"] = c
	}

	return st, nil
}
