package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/purify/api"
	"github.com/use-agent/purify/browser"
	"github.com/use-agent/purify/cache"
	"github.com/use-agent/purify/cleaner"
	"github.com/use-agent/purify/config"
	"github.com/use-agent/purify/limiter"
	"github.com/use-agent/purify/orchestrator"
	"github.com/use-agent/purify/search"
	"github.com/use-agent/purify/ssrf"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("purify starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrency", cfg.Scrape.MaxConcurrency,
	)

	// ── 3. Wire the scrape pipeline (C1-C10) ─────────────────────────
	guard := ssrf.New()
	lim := limiter.New(cfg.Scrape.MaxConcurrency)
	cc := cache.New(cfg.Cache.MaxItems, cfg.Cache.TTL)
	pool := browser.NewPool(cfg.Browser)
	defer pool.Close()

	extractor := orchestrator.NewCleanerExtractor(cleaner.NewCleaner())
	orch := orchestrator.NewWithPool(guard, cc, lim, pool, extractor, cfg.Scrape)

	// ── 3b. Wire the search provider (C11) ───────────────────────────
	sp := search.New(cfg.Search)

	// ── 4. Setup router ───────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(orch, sp, pool, cfg, startTime)

	// ── 5. Start HTTP server ─────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ──────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// pool.Close() runs via defer — kills the browser process if one is running.
	slog.Info("purify stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
