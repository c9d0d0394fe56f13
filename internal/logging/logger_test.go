package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"sessionreel/internal/config"
	"sessionreel/internal/logging"
	"sessionreel/internal/services"
)

func TestNewFromConfigWritesConsoleFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "info"

	logger, closeLog, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	t.Cleanup(func() { _ = closeLog() })
	logger = logging.NewComponentLogger(logger, "batch")
	logger.Info("render complete", logging.String("job_id", "opening-keynote"), logging.Int("frames", 175))
	logger.Debug("hidden detail")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "sessionreel.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "INFO batch: render complete") {
		t.Fatalf("expected component prefix and message, got %q", text)
	}
	if !strings.Contains(text, "job_id=opening-keynote") || !strings.Contains(text, "frames=175") {
		t.Fatalf("expected structured fields, got %q", text)
	}
	if strings.Contains(text, "hidden detail") {
		t.Fatalf("debug line should be filtered at info level: %q", text)
	}
}

func TestNewJSONLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, closeLog, err := logging.New(logging.Options{Level: "warn", Format: "json", Paths: []string{path, path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = closeLog() })
	logger.Info("skipped")
	logging.WarnWithContext(logger, "routing key unmapped", "routing_fallback", logging.String("routing_key", "Side Room"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), data)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &payload); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if payload["level"] != "warn" || payload["msg"] != "routing key unmapped" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload[logging.FieldEventType] != "routing_fallback" {
		t.Fatalf("expected event_type, got %v", payload[logging.FieldEventType])
	}
	if _, ok := payload[logging.FieldErrorHint]; !ok {
		t.Fatalf("expected default error_hint, got %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml", Paths: []string{filepath.Join(t.TempDir(), "x.log")}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleFlattensGroupsAndQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, closeLog, err := logging.New(logging.Options{Level: "debug", Paths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "publish").With(logging.String("run_id", "r1"))
	logger.WithGroup("remote").Info("uploaded",
		logging.String("name", "Opening Keynote.png"),
		logging.Group("dest", logging.String("id", "main")),
	)
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	for _, want := range []string{
		" INFO publish: uploaded",
		" run_id=r1",
		` remote.name="Opening Keynote.png"`,
		" remote.dest.id=main",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be a prefix, got %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, " WARN ": slog.LevelWarn, "error": slog.LevelError, "bogus": slog.LevelInfo, "": slog.LevelInfo}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

type captureHandler struct {
	mu      sync.Mutex
	attrs   []slog.Attr
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsPipelineFields(t *testing.T) {
	handler := &captureHandler{}
	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithJobID(ctx, "closing-panel")
	ctx = services.WithRow(ctx, 7)
	ctx = services.WithStage(ctx, "render")

	logging.WithContext(ctx, slog.New(handler)).Info("hello")

	got := map[string]string{}
	for _, attr := range handler.attrs {
		got[attr.Key] = attr.Value.String()
	}
	want := map[string]string{
		logging.FieldRunID: "run-1",
		logging.FieldJobID: "closing-panel",
		logging.FieldRow:   "7",
		logging.FieldStage: "render",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s: got %q want %q (all %v)", key, got[key], value, got)
		}
	}
	if len(handler.records) != 1 {
		t.Fatalf("expected one record, got %d", len(handler.records))
	}
}

func TestDecisionAttrs(t *testing.T) {
	attrs := logging.DecisionAttrs("render_mode", "still", "single frame composition")
	if !logging.HasAttrKey(attrs, logging.FieldDecisionType) {
		t.Fatalf("expected decision_type key in %v", attrs)
	}
	if attrs[1].Value.String() != "still" {
		t.Fatalf("unexpected decision result %v", attrs[1])
	}
}
