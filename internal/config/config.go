package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Azure Document Intelligence
	AzureEndpoint   string
	AzureKey        string
	OCRPollInterval time.Duration

	// Template
	TemplatePath string

	// Upload limits
	MaxUploadBytes int64

	// Concurrency
	MaxConcurrentOCR int

	// Result cache
	CacheSize int

	// Session state
	SessionTTL time.Duration

	// Matching
	StrictTableContext bool

	// HTTP
	CORSAllowedOrigins []string

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		AzureEndpoint:   os.Getenv("AZURE_DI_ENDPOINT"),
		AzureKey:        os.Getenv("AZURE_DI_KEY"),
		OCRPollInterval: envDuration("OCR_POLL_INTERVAL", 1*time.Second),

		TemplatePath: envOr("TEMPLATE_PATH", "template.json"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 16*1024*1024), // 16MB

		MaxConcurrentOCR: envInt("MAX_CONCURRENT_OCR", 4),

		CacheSize: envInt("CACHE_SIZE", 128),

		SessionTTL: envDuration("SESSION_TTL", 1*time.Hour),

		StrictTableContext: envBool("STRICT_TABLE_CONTEXT", false),

		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 * 1024 * 1024
	}
	if cfg.MaxConcurrentOCR <= 0 {
		cfg.MaxConcurrentOCR = 4
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.OCRPollInterval <= 0 {
		cfg.OCRPollInterval = 1 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.AzureEndpoint == "" {
		return fmt.Errorf("AZURE_DI_ENDPOINT is required")
	}
	if c.AzureKey == "" {
		return fmt.Errorf("AZURE_DI_KEY is required")
	}
	if c.TemplatePath == "" {
		return fmt.Errorf("TEMPLATE_PATH is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
