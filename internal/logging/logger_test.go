package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spikenorm/internal/config"
	"spikenorm/internal/logging"
	"spikenorm/internal/services"
)

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	var console bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("file message", logging.String("bam", "a.bam"))
	if !strings.Contains(console.String(), "file message") {
		t.Fatalf("expected console copy, got %q", console.String())
	}

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "spikenorm.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "file message") || !strings.Contains(string(content), "bam=a.bam") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: io.Discard, File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: io.Discard, File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerRenamesKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Console: io.Discard, File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.Float64("scale_factor", 0.25))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["msg"] != "json message" || entry["level"] != "info" {
		t.Fatalf("unexpected json entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry["scale_factor"] != 0.25 {
		t.Fatalf("expected scale_factor attribute, got %v", entry["scale_factor"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Console: io.Discard}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	for _, level := range []string{"invalid", "fatal", "trace"} {
		if _, err := logging.New(logging.Options{Level: level, Console: io.Discard}); err == nil {
			t.Fatalf("expected error for level %q", level)
		}
	}
}

func TestNewLevelFiltering(t *testing.T) {
	var out bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "WARN", Console: &out})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(out.String(), "hidden") || !strings.Contains(out.String(), "WARN shown") {
		t.Fatalf("expected warn level filtering, got %q", out.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	level, err := logging.ParseLevel("  ")
	if err != nil || level != slog.LevelInfo {
		t.Fatalf("ParseLevel(blank) = %v, %v", level, err)
	}
	level, err = logging.ParseLevel("Debug")
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("ParseLevel(Debug) = %v, %v", level, err)
	}
}

func TestConsoleRendersGroupsAndQuotes(t *testing.T) {
	var out bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &out})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.WithGroup("plan").With(logging.Int("workers", 2)).Info("planned",
		slog.Group("budget", logging.Int("threads", 4)),
		logging.String("bam", "my sample.bam"),
		logging.Float64("factor", 0.5),
	)

	line := out.String()
	for _, want := range []string{"plan.workers=2", "plan.budget.threads=4", `plan.bam="my sample.bam"`, "plan.factor=0.5"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", line)
	}
}

func TestWithAttrsDoesNotLeakBetweenLoggers(t *testing.T) {
	var out bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &out})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	base := logger.With(logging.Int("sample", 1))
	first := base.With(logging.String("bam", "a.bam"))
	second := base.With(logging.String("bam", "b.bam"))
	first.Info("one")
	second.Info("two")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if !strings.HasSuffix(lines[0], "one sample=1 bam=a.bam") || !strings.HasSuffix(lines[1], "two sample=1 bam=b.bam") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestFailureAddsEventAndHint(t *testing.T) {
	var out bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Console: &out})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.Failure(logger, "conversion failed", "conversion_failed", "check the input", logging.Int("sample", 3))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "error" || entry[logging.FieldEventType] != "conversion_failed" ||
		entry[logging.FieldErrorHint] != "check the input" || entry["sample"] != float64(3) {
		t.Fatalf("unexpected entry %v", entry)
	}
	logging.Failure(nil, "ignored", "noop", "none")
}

type captureHandler struct {
	attrs   []slog.Attr
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-xyz")
	ctx = services.WithStage(ctx, "convert")
	ctx = services.WithSample(ctx, 2)

	handler := &captureHandler{}
	logging.WithContext(ctx, slog.New(handler)).Info("contextual log")

	if len(handler.records) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(handler.records))
	}
	want := map[string]string{
		logging.FieldRunID:  "run-xyz",
		logging.FieldStage:  "convert",
		logging.FieldSample: "2",
	}
	for key, value := range want {
		found := false
		for _, attr := range handler.attrs {
			if attr.Key == key && attr.Value.String() == value {
				found = true
			}
		}
		if !found {
			t.Fatalf("field %s=%s not found in %v", key, value, handler.attrs)
		}
	}
}

func TestConsoleRendersComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: io.Discard, File: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "coverage").Info("dispatching")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "coverage: dispatching") {
		t.Fatalf("expected component prefix, got %q", content)
	}
}
