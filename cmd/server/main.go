package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pagewright/internal/api"
	"github.com/dgallion1/pagewright/internal/config"
	"github.com/dgallion1/pagewright/internal/oracle"
	"github.com/dgallion1/pagewright/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize oracle backends.
	router := oracle.NewRouter()
	var together *oracle.TogetherClient
	if cfg.TogetherAPIKey != "" {
		together = oracle.NewTogetherClient(cfg.TogetherAPIKey, oracle.TogetherOptions{
			BaseURL:     cfg.TogetherBaseURL,
			MaxTokens:   cfg.OracleMaxTokens,
			Temperature: cfg.OracleTemperature,
			Timeout:     cfg.OracleTimeout,
		})
		router.Register(config.ProviderTogether, together)
	}
	if cfg.GoogleAPIKey != "" {
		gemini, err := oracle.NewGeminiClient(ctx, cfg.GoogleAPIKey, cfg.OracleMaxTokens, cfg.OracleTemperature)
		if err != nil {
			log.Error("gemini client", "error", err)
			os.Exit(1)
		}
		router.Register(config.ProviderGoogle, gemini)
	}

	stats := oracle.NewLLMStats(cfg.StatsWindow)
	svc := pipeline.NewService(oracle.Instrument(router, stats, log), cfg, log)

	limiter := api.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Initialize HTTP server.
	srv := api.NewServer(svc, router, stats, limiter, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OracleTimeout*time.Duration(pipeline.MaxRetries) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if together != nil {
			together.Close()
		}
	}()

	log.Info("starting pagewright", "port", cfg.Port, "default_model", cfg.DefaultModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
