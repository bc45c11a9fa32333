package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hematrace/labxtract/internal/api"
	"github.com/hematrace/labxtract/internal/config"
	"github.com/hematrace/labxtract/internal/extract"
	"github.com/hematrace/labxtract/internal/ocr"
	"github.com/hematrace/labxtract/internal/pipeline"
	"github.com/hematrace/labxtract/internal/session"
	"github.com/hematrace/labxtract/internal/template"
)

func main() {
	godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	tmpl, err := template.Load(cfg.TemplatePath)
	if err != nil {
		log.Error("template load failed", "path", cfg.TemplatePath, "error", err)
		os.Exit(1)
	}
	terms, err := template.NewTerms(tmpl)
	if err != nil {
		log.Error("template term compilation failed", "error", err)
		os.Exit(1)
	}

	var opts []extract.Option
	if cfg.StrictTableContext {
		opts = append(opts, extract.WithStrictTableContext())
	}
	engine := extract.NewEngine(tmpl, terms, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := ocr.NewAzureClient(cfg.AzureEndpoint, cfg.AzureKey, cfg.OCRPollInterval)

	cache, err := pipeline.NewResultCache(cfg.CacheSize)
	if err != nil {
		log.Error("result cache init failed", "error", err)
		os.Exit(1)
	}

	proc := pipeline.NewProcessor(provider, engine, cache, log, cfg.MaxConcurrentOCR, cfg.PDFFallbackPdftotext)

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.StartCleanup(ctx, 5*time.Minute)

	srv := api.NewServer(proc, tmpl, sessions, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
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

		provider.Close()
	}()

	log.Info("starting labxtract", "port", cfg.Port, "sections", len(tmpl.Sections))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
