package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/neomorfeo/gemdesk/internal/adapter/fsm"
	handler "github.com/neomorfeo/gemdesk/internal/adapter/http"
	"github.com/neomorfeo/gemdesk/internal/adapter/sqlite"
	"github.com/neomorfeo/gemdesk/internal/app"
)

func TestEnvOrDefault_Fallback(t *testing.T) {
	v := envOrDefault("GEMDESK_TEST_NONEXISTENT_KEY", "fallback")
	if v != "fallback" {
		t.Errorf("got %q, want %q", v, "fallback")
	}
}

func TestEnvOrDefault_EnvSet(t *testing.T) {
	t.Setenv("GEMDESK_TEST_KEY", "custom")

	v := envOrDefault("GEMDESK_TEST_KEY", "fallback")
	if v != "custom" {
		t.Errorf("got %q, want %q", v, "custom")
	}
}

// chdirTemp moves the test into an empty directory so no stray .env is loaded.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)
	for _, key := range []string{"PORT", "DATABASE_PATH", "LOG_LEVEL", "OTEL_EXPORTER", "OTEL_SAMPLE_RATIO"} {
		t.Setenv(key, "")
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "gemdesk.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "gemdesk.db")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.OTel.Exporter != "stdout" {
		t.Errorf("Exporter = %q, want %q", cfg.OTel.Exporter, "stdout")
	}
	if cfg.OTel.SampleRatio != 1 {
		t.Errorf("SampleRatio = %v, want 1", cfg.OTel.SampleRatio)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	env := "PORT=9090\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}

	// godotenv only fills variables that are unset; t.Setenv restores them afterwards.
	os.Unsetenv("PORT")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
}

func TestLoadConfig_InvalidSampleRatio(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OTEL_SAMPLE_RATIO", "half")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for invalid OTEL_SAMPLE_RATIO, got nil")
	}
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LOG_LEVEL", "chatty")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL, got nil")
	}
}

// TestSmoke wires the HTTP stack like run() and verifies it responds.
// It leaves out River and OTel; those are covered by TestRun.
func TestSmoke(t *testing.T) {
	dbPath := t.TempDir() + "/test.db"

	repo, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := app.NewOrderService(repo, fsm.New())

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig(serviceName, serviceVersion))
	handler.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/v1/orders", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/v1/orders failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var orders []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(orders) != 0 {
		t.Errorf("got %d orders, want 0 (empty database)", len(orders))
	}
}

// discardStdout silences the stdout OTel exporters for the rest of the test.
func discardStdout(t *testing.T) {
	t.Helper()

	origStdout := os.Stdout
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("opening /dev/null: %v", err)
	}
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = origStdout
		devNull.Close()
	})
}

// TestRun exercises the real run() function end-to-end: OTel, River, HTTP
// server, a status change through the outbox, and graceful shutdown.
func TestRun(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_PATH", t.TempDir()+"/test-run.db")
	t.Setenv("PORT", "19876")
	t.Setenv("OTEL_EXPORTER", "stdout")
	t.Setenv("OTEL_ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	discardStdout(t)

	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	serverURL := "http://localhost:19876"
	ready := false
	for range 50 {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/statuses", nil)
		resp, reqErr := http.DefaultClient.Do(req)
		if reqErr == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		t.Fatal("server did not start within 5 seconds")
	}

	order := postJSON[handler.OrderResponse](t, serverURL+"/api/v1/orders",
		`{"customer_name":"Ada","customer_email":"ada@example.com","total_minor":4200}`)

	updated := postJSON[handler.OrderResponse](t, serverURL+"/api/v1/orders/"+order.ID+"/transitions",
		`{"to":"confirmed","actor":"alice"}`)
	if updated.Status != "confirmed" {
		t.Errorf("Status = %q, want %q", updated.Status, "confirmed")
	}

	// Send SIGINT to trigger graceful shutdown.
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("finding process: %v", err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("sending SIGINT: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not exit within 10 seconds")
	}
}

func postJSON[T any](t *testing.T, url, body string) T {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s: status = %d, want %d", url, resp.StatusCode, http.StatusOK)
	}

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// TestRun_InvalidDB verifies run() returns an error for an invalid database path.
func TestRun_InvalidDB(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_PATH", "/nonexistent/path/db.sqlite")
	t.Setenv("PORT", "19877")
	t.Setenv("OTEL_EXPORTER", "stdout")
	t.Setenv("OTEL_ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	discardStdout(t)

	if err := run(); err == nil {
		t.Fatal("expected error for invalid database path, got nil")
	}
}
