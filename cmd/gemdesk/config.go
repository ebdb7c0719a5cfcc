package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	oteladapter "github.com/neomorfeo/gemdesk/internal/adapter/otel"
)

const (
	serviceName    = "gemdesk"
	serviceVersion = "0.1.0"
)

// config is the process configuration, read from the environment.
type config struct {
	Port     string
	DBPath   string
	LogLevel slog.Level
	OTel     oteladapter.Config
}

// loadConfig reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func loadConfig() (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("loading .env: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(envOrDefault("LOG_LEVEL", "info"))); err != nil {
		return config{}, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}

	ratio := 1.0
	if v := os.Getenv("OTEL_SAMPLE_RATIO"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return config{}, fmt.Errorf("parsing OTEL_SAMPLE_RATIO: %w", err)
		}
		ratio = r
	}

	env := envOrDefault("OTEL_ENVIRONMENT", "development")
	insecure := env == "development"
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		insecure = strings.EqualFold(v, "true")
	}

	return config{
		Port:     envOrDefault("PORT", "8080"),
		DBPath:   envOrDefault("DATABASE_PATH", "gemdesk.db"),
		LogLevel: level,
		OTel: oteladapter.Config{
			ServiceName:    envOrDefault("OTEL_SERVICE_NAME", serviceName),
			ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", serviceVersion),
			Environment:    env,
			Exporter:       envOrDefault("OTEL_EXPORTER", "stdout"),
			Insecure:       insecure,
			SampleRatio:    ratio,
		},
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
