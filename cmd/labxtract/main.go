// Command labxtract extracts lab report values from documents given on the
// command line and prints the combined result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hematrace/labxtract/internal/config"
	"github.com/hematrace/labxtract/internal/extract"
	"github.com/hematrace/labxtract/internal/ocr"
	"github.com/hematrace/labxtract/internal/pipeline"
	"github.com/hematrace/labxtract/internal/template"
)

func main() {
	godotenv.Load()

	templatePath := flag.String("template", "", "template file (overrides TEMPLATE_PATH)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file [file...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if *templatePath != "" {
		cfg.TemplatePath = *templatePath
	}
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

	provider := ocr.NewAzureClient(cfg.AzureEndpoint, cfg.AzureKey, cfg.OCRPollInterval)
	defer provider.Close()

	cache, err := pipeline.NewResultCache(cfg.CacheSize)
	if err != nil {
		log.Error("result cache init failed", "error", err)
		os.Exit(1)
	}

	proc := pipeline.NewProcessor(provider, engine, cache, log, cfg.MaxConcurrentOCR, cfg.PDFFallbackPdftotext)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var inputs []pipeline.Input
	for _, path := range flag.Args() {
		inputs = append(inputs, pipeline.Input{Name: filepath.Base(path), Path: path})
	}

	results := proc.ProcessBatch(ctx, inputs)
	combined, _, failures := pipeline.Combine(results)

	for name, msg := range failures {
		fmt.Fprintf(os.Stderr, "%s: %s\n", name, msg)
	}
	if combined == nil {
		fmt.Fprintln(os.Stderr, "no document could be processed")
		os.Exit(1)
	}

	out, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		log.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
