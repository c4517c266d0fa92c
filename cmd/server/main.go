package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omniflow/omniflow/internal/action"
	"github.com/omniflow/omniflow/internal/api"
	"github.com/omniflow/omniflow/internal/catalogue"
	"github.com/omniflow/omniflow/internal/config"
	"github.com/omniflow/omniflow/internal/diag"
	"github.com/omniflow/omniflow/internal/dispatch"
	"github.com/omniflow/omniflow/internal/resolve"
	"github.com/omniflow/omniflow/internal/rule"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cataloguePath := flag.String("catalogue", "configs/catalogue.yaml", "Path to the seed vocabulary YAML")
	rulesPath := flag.String("rules", "configs/rules.yaml", "Path to the rules YAML")
	dbPath := flag.String("db", "", "SQLite rule database path (empty = in-memory store)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Catalogue (write-once seed vocabulary) ────────────────────────────────
	cf, err := config.LoadCatalogue(*cataloguePath)
	if err != nil {
		slog.Error("failed to load catalogue", "err", err)
		os.Exit(1)
	}
	if err := config.ValidateCatalogue(cf); err != nil {
		slog.Error("catalogue validation failed", "err", err)
		os.Exit(1)
	}
	cat, err := catalogue.Build(cf)
	if err != nil {
		slog.Error("failed to build catalogue", "err", err)
		os.Exit(1)
	}
	slog.Info("catalogue seeded", "apps", len(cat.Apps()), "events", len(cat.Events()), "actions", len(cat.Actions()))

	// ── Rule store ────────────────────────────────────────────────────────────
	var store rule.Store
	if *dbPath != "" {
		s, err := rule.OpenSQLite(*dbPath)
		if err != nil {
			slog.Error("failed to open rule database", "err", err)
			os.Exit(1)
		}
		store = s
		slog.Info("rule store opened", "path", *dbPath)
	} else {
		store = rule.NewMemStore()
	}
	defer store.Close()

	// ── Rules ─────────────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*rulesPath)
	if err != nil {
		slog.Error("failed to load rules", "err", err)
		os.Exit(1)
	}
	rf := loader.Rules()
	n, err := rule.Apply(rf, cat, store)
	if err != nil {
		slog.Error("failed to install rules", "err", err)
		os.Exit(1)
	}
	slog.Info("rules installed", "count", n)

	// ── Action constructor registry ───────────────────────────────────────────
	reg := action.NewRegistry()
	action.RegisterDefaults(reg)
	if err := reg.Validate(cat); err != nil {
		slog.Error("action registry validation failed", "err", err)
		os.Exit(1)
	}

	// ── Resolver + dispatcher ─────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := resolve.New(cat, store, reg, diag.Logger{L: logger})
	defer resolver.Close()

	disp := dispatch.New(ctx, cat, store, resolver, nil, nil, rf.Engine)

	// ── Hot reload of the rules file ──────────────────────────────────────────
	loader.OnChange(func(newRF *config.RulesFile) {
		n, err := rule.Apply(newRF, cat, store)
		if err != nil {
			slog.Warn("hot-reload skipped: rules invalid", "err", err)
			return
		}
		slog.Info("rules hot-reloaded", "count", n)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("rules watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(disp, loader, cat, store)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	disp.Shutdown()
	slog.Info("goodbye")
}
