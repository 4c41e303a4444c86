package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEvent_New(t *testing.T) {
	event := NewEvent("alice", "sub-mad01-data01", "path.announce")

	if event.User != "alice" {
		t.Errorf("User = %q, want %q", event.User, "alice")
	}
	if event.Device != "sub-mad01-data01" {
		t.Errorf("Device = %q, want %q", event.Device, "sub-mad01-data01")
	}
	if event.Operation != "path.announce" {
		t.Errorf("Operation = %q, want %q", event.Operation, "path.announce")
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if other := NewEvent("alice", "sub-mad01-data01", "path.announce"); other.ID == event.ID {
		t.Errorf("IDs should be unique, both %q", event.ID)
	}
}

func TestEvent_Chaining(t *testing.T) {
	argv := []string{"withdraw", "sub-mad01-data01", "192.0.2.1", "prefix=203.0.113.0", "prefix_len=24"}

	event := NewEvent("alice", "sub-mad01-data01", "path.withdraw").
		WithCommand(argv).
		WithOutput("ok").
		WithSuccess().
		WithDuration(time.Second).
		WithExecuteMode(true)

	if len(event.Command) != 5 {
		t.Errorf("Command len = %d, want 5", len(event.Command))
	}
	argv[0] = "mutated"
	if event.Command[0] != "withdraw" {
		t.Errorf("Command should be copied, got %q", event.Command[0])
	}
	if event.Output != "ok" {
		t.Errorf("Output = %q", event.Output)
	}
	if !event.Success {
		t.Error("Success should be true")
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}
	if !event.ExecuteMode || event.DryRun {
		t.Error("ExecuteMode should be true and DryRun false")
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent("alice", "sub-mad01-data01", "peer.drain").
		WithError(errors.New("exit status 1"))

	if event.Success {
		t.Error("Success should be false")
	}
	if event.Error != "exit status 1" {
		t.Errorf("Error = %q", event.Error)
	}

	event2 := NewEvent("alice", "sub-mad01-data01", "peer.drain").WithError(nil)
	if event2.Success {
		t.Error("Success should be false even with nil error")
	}
	if event2.Error != "" {
		t.Errorf("Error should be empty with nil error, got %q", event2.Error)
	}
}

func newTestLogger(t *testing.T) *FileLogger {
	t.Helper()
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "audit.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestFileLogger_Basic(t *testing.T) {
	logger := newTestLogger(t)

	event := NewEvent("alice", "sub-mad01-data01", "path.announce").
		WithCommand([]string{"announce", "sub-mad01-data01"}).
		WithSuccess()
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].ID != event.ID {
		t.Errorf("ID = %q, want %q", events[0].ID, event.ID)
	}
	if events[0].Device != "sub-mad01-data01" {
		t.Errorf("Device = %q, want %q", events[0].Device, "sub-mad01-data01")
	}
	if len(events[0].Command) != 2 {
		t.Errorf("Command = %v", events[0].Command)
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	logger := newTestLogger(t)

	events := []*Event{
		NewEvent("alice", "sub-mad01-data01", "path.announce").WithSuccess(),
		NewEvent("bob", "sub-mad01-data01", "community.add").WithSuccess(),
		NewEvent("alice", "sub-iad01-data01", "peer.drain").WithError(errors.New("failed")),
		NewEvent("carol", "sub-eze01-data01", "path.announce").WithSuccess(),
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by user", Filter{User: "alice"}, 2},
		{"by device", Filter{Device: "sub-mad01-data01"}, 2},
		{"by operation", Filter{Operation: "path.announce"}, 2},
		{"success only", Filter{SuccessOnly: true}, 3},
		{"failure only", Filter{FailureOnly: true}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"offset", Filter{Offset: 3}, 1},
		{"offset past end", Filter{Offset: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logger.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFileLogger_QueryTimeFilter(t *testing.T) {
	logger := newTestLogger(t)
	logger.Log(NewEvent("alice", "sub-mad01-data01", "agent.drain").WithSuccess())

	results, _ := logger.Query(Filter{
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	if len(results) != 1 {
		t.Errorf("Expected 1 event in time range, got %d", len(results))
	}

	results, _ = logger.Query(Filter{StartTime: time.Now().Add(time.Hour)})
	if len(results) != 0 {
		t.Errorf("Expected 0 events outside time range, got %d", len(results))
	}
}

func TestFileLogger_CreatesDirectories(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger should create directories: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(filepath.Dir(logPath)); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestFileLogger_QueryBeforeFirstWrite(t *testing.T) {
	logger := newTestLogger(t)

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query on missing file should not error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestFileLogger_SkipsMalformedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	if err := os.WriteFile(logPath, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Log(NewEvent("alice", "sub-mad01-data01", "path.withdraw").WithSuccess())
	logger.Log(NewEvent("bob", "sub-mad01-data01", "path.withdraw").WithSuccess())

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(events))
	}
}
