package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/tldr-digest/app/api"
	"github.com/lysyi3m/tldr-digest/app/cache"
	"github.com/lysyi3m/tldr-digest/app/cfg"
	"github.com/lysyi3m/tldr-digest/app/contact"
	"github.com/lysyi3m/tldr-digest/app/feed"
	"github.com/lysyi3m/tldr-digest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogging(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting TL;DR Digest", "version", appCfg.Version, "cache_backend", appCfg.CacheBackend)

	registry, err := feed.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load source registry: %w", err)
	}
	slog.Info("Source registry loaded", "sources", len(registry.Sources), "supported", len(registry.SupportedSources()))

	blobs, err := cache.Open(context.Background(), cache.Options{
		Backend:   appCfg.CacheBackend,
		Path:      appCfg.CachePath,
		RedisAddr: appCfg.RedisAddr,
	})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer blobs.Close()

	store := cache.NewStore(blobs, appCfg.CacheTTL)
	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent)
	pipeline := tasks.NewPipeline(registry, fetcher, store, appCfg.FetchTimeout)

	if appCfg.Once {
		return runOnce(pipeline, store)
	}

	scheduler := tasks.NewScheduler(pipeline.NewTask, appCfg.RefreshInterval)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "refresh_interval", appCfg.RefreshInterval.String())

	relay := contact.NewRelay(
		contact.NewLimiter(appCfg.ContactCooldown, appCfg.ContactHourlyLimit),
		contact.NewMailer(appCfg.MailProvider, appCfg.ResendAPIKey, appCfg.MailFrom, appCfg.ContactTo),
		appCfg.ContactSuccessMessage,
	)

	handler := api.NewHandler(store, registry, scheduler, pipeline, pipeline.NewTask, relay, appCfg.BaseUrl, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}

// runOnce runs the pipeline a single time and prints the digest. When the
// run yields nothing, the last cached digest is printed instead.
func runOnce(pipeline *tasks.Pipeline, store *cache.Store) error {
	ctx := context.Background()

	entry, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fresh := entry != nil
	if entry == nil {
		if entry, fresh, err = store.ReadLatest(ctx, cache.Key); err != nil {
			return err
		}
	}

	var lastRun *tasks.RunStatus
	if status, ok := pipeline.LastRun(); ok {
		lastRun = &status
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(api.NewDigestResponse(entry, fresh, lastRun))
}
