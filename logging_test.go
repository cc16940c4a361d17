package ygggo_mockdb

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log JSON: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogging_EnableDisable(t *testing.T) {
	f := NewMockClientFactory()

	f.EnableLogging(true)
	if !f.loggingEnabled || f.logger == nil {
		t.Fatalf("logging should be enabled with a default logger")
	}

	f.EnableLogging(false)
	if f.loggingEnabled {
		t.Fatalf("logging should be disabled")
	}
	if f.activeLogger() != nil {
		t.Fatalf("disabled factory must not hand out a logger")
	}
}

func TestLogging_SetLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelDebug)

	f := NewMockClientFactory()
	f.SetLogger(logger)
	if f.logger != logger {
		t.Fatalf("logger should be set")
	}
	f.EnableLogging(true)
	if f.logger != logger {
		t.Fatalf("enabling must keep the custom logger")
	}
}

func TestLogging_CommandEvents(t *testing.T) {
	var buf bytes.Buffer
	f := NewMockClientFactory()
	f.SetLogger(newBufferLogger(&buf, slog.LevelDebug))
	f.EnableLogging(true)
	f.GetOrCreateCommand("connA", "SELECT 1").Enqueue(&CommandResults{ScalarResult: "test"})

	ctx := context.Background()
	conn := openMockConn(t, f, "connA")
	cmd := f.NewCommand(conn)
	cmd.SetCommandText("SELECT 1")
	if _, err := cmd.ExecuteScalar(ctx); err != nil {
		t.Fatalf("ExecuteScalar: %v", err)
	}

	entries := logEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected open and execute entries, got %d", len(entries))
	}
	open, exec := entries[0], entries[1]
	if open["event"] != "open" || open["connection"] != "conna" {
		t.Fatalf("unexpected open entry: %v", open)
	}
	if exec["msg"] != "mock database event" {
		t.Fatalf("msg=%v", exec["msg"])
	}
	if exec["event"] != "ExecuteScalar" || exec["command"] != "SELECT 1" {
		t.Fatalf("unexpected execute entry: %v", exec)
	}
	if exec["status"] != "success" || exec["level"] != "DEBUG" {
		t.Fatalf("unexpected status/level: %v", exec)
	}
}

func TestLogging_SimulatedFailureAtWarn(t *testing.T) {
	var buf bytes.Buffer
	f := NewMockClientFactory()
	f.SetLogger(newBufferLogger(&buf, slog.LevelWarn))
	f.EnableLogging(true)
	f.GetOrCreate("connA").ShouldThrowOnOpen = true

	if err := f.NewConnection("connA").Open(context.Background()); err == nil {
		t.Fatalf("expected Open to fail")
	}

	entries := logEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected one warn entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["level"] != "WARN" || entry["status"] != "error" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if msg, _ := entry["error"].(string); !strings.Contains(msg, "test requested mock exception on open") {
		t.Fatalf("error=%v", entry["error"])
	}
}

func TestLogging_TransactionEvents(t *testing.T) {
	var buf bytes.Buffer
	f := NewMockClientFactory()
	f.SetLogger(newBufferLogger(&buf, slog.LevelDebug))
	f.EnableLogging(true)

	ctx := context.Background()
	conn := openMockConn(t, f, "connA")
	tx, err := conn.Begin(ctx, IsolationUnspecified)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var events []string
	for _, e := range logEntries(t, &buf) {
		events = append(events, e["event"].(string))
	}
	if strings.Join(events, ",") != "open,begin,commit" {
		t.Fatalf("events=%v", events)
	}
}

func TestLogging_DisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	f := NewMockClientFactory()
	f.SetLogger(newBufferLogger(&buf, slog.LevelDebug))

	openMockConn(t, f, "connA")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestLogging_UtilityRetryWarning(t *testing.T) {
	var buf bytes.Buffer
	u := NewDatabaseUtility(NewMockClientFactory(), "connA").SetLogger(newBufferLogger(&buf, slog.LevelDebug))
	u.notify("ExecuteNonQuery")(&DataAccessError{Op: "ExecuteNonQuery", Message: "boom"}, 0)

	entries := logEntries(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "retrying database operation" || entries[0]["operation"] != "ExecuteNonQuery" {
		t.Fatalf("entries=%v", entries)
	}
}
