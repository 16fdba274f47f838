package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.etlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			DeviceID:  "edgetwin-test",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Topic:     "edgetwin/twin/edgetwin-test/desired",
			Message: &log.MessageEvent{
				Size: 42,
				Data: []byte(`{"desired":{}}`),
			},
		},
		{
			Timestamp: ts.Add(time.Second),
			DeviceID:  "edgetwin-test",
			Direction: log.DirectionOut,
			Layer:     log.LayerAgent,
			Category:  log.CategoryTelemetry,
			Telemetry: &log.TelemetryEvent{MsgID: 0, Size: 82},
		},
	}

	path := createTestLogFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.jsonl")
	err := RunExport(path, "jsonl", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}

	// Parse first line
	var event1 map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event1); err != nil {
		t.Errorf("failed to parse line 1: %v", err)
	}
	if event1["DeviceID"] != "edgetwin-test" {
		t.Errorf("expected DeviceID edgetwin-test, got %v", event1["DeviceID"])
	}
	if event1["Topic"] != "edgetwin/twin/edgetwin-test/desired" {
		t.Errorf("expected desired topic, got %v", event1["Topic"])
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			DeviceID:  "edgetwin-test",
			Direction: log.DirectionOut,
			Layer:     log.LayerAgent,
			Category:  log.CategoryTelemetry,
			Telemetry: &log.TelemetryEvent{MsgID: 7, Size: 82},
		},
		{
			Timestamp: ts.Add(time.Second),
			DeviceID:  "edgetwin-test",
			Direction: log.DirectionIn,
			Layer:     log.LayerTwin,
			Category:  log.CategoryTwin,
			Twin:      &log.TwinEvent{Property: "ledOn", Action: log.TwinApplied},
		},
	}

	path := createTestLogFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	err := RunExport(path, "csv", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	// Check header
	if !strings.HasPrefix(string(data), "timestamp,device_id,direction,layer,category") {
		t.Errorf("expected CSV header, got: %s", string(data[:50]))
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 data rows, got %d lines", len(lines))
	}

	if !strings.Contains(lines[1], "telemetry") || !strings.Contains(lines[1], ",7,") {
		t.Errorf("expected telemetry row with msg_id 7, got: %s", lines[1])
	}
	if !strings.Contains(lines[2], "twin") || !strings.Contains(lines[2], "ledOn") {
		t.Errorf("expected twin row with property, got: %s", lines[2])
	}
}

func TestExportWritesToStdout(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Direction: log.DirectionOut,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Message:   &log.MessageEvent{Size: 64},
		},
	}

	path := createTestLogFile(t, events)

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := RunExport(path, "jsonl", "") // empty output means stdout

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(r)

	if buf.Len() == 0 {
		t.Error("expected output to stdout")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Message:   &log.MessageEvent{Size: 64},
		},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.xml")

	err := RunExport(path, "xml", outPath)
	if err == nil {
		t.Error("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected 'unknown format' error, got: %v", err)
	}
}
