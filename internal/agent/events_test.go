package agent_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/agent"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := agent.NewMemoryEventLogger()

	err := logger.LogEvent(agent.Event{
		SessionID: "attempt-1",
		UserID:    "user-1",
		EventType: agent.EventQuizStarted,
		Data: map[string]any{
			"subject": "Math",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != agent.EventQuizStarted {
		t.Errorf("EventType = %q, want %s", events[0].EventType, agent.EventQuizStarted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := agent.NewMemoryEventLogger()

	if err := logger.LogEvent(agent.Event{SessionID: "attempt-1"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
	if len(logger.Events()) != 0 {
		t.Error("invalid event should not be stored")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := agent.NewPostgresEventLogger(nil)

	err := logger.LogEvent(agent.Event{
		SessionID: "attempt-1",
		EventType: agent.EventQuizStarted,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestRedisEventLogger_LogEvent_NilClient(t *testing.T) {
	logger := agent.NewRedisEventLogger(nil, "")

	err := logger.LogEvent(agent.Event{
		SessionID: "attempt-1",
		EventType: agent.EventQuizStarted,
	})
	if err == nil {
		t.Fatal("expected error for nil client")
	}
}

type failingLogger struct{ err error }

func (f failingLogger) LogEvent(agent.Event) error { return f.err }

func TestMultiEventLogger(t *testing.T) {
	errSink := errors.New("sink down")
	mem := agent.NewMemoryEventLogger()
	multi := agent.MultiEventLogger{failingLogger{errSink}, mem}

	err := multi.LogEvent(agent.Event{SessionID: "attempt-1", EventType: agent.EventQuizReset})
	if !errors.Is(err, errSink) {
		t.Errorf("LogEvent() error = %v, want %v", err, errSink)
	}
	if len(mem.Events()) != 1 {
		t.Error("healthy sinks should still receive the event")
	}

	if err := (agent.MultiEventLogger{}).LogEvent(agent.Event{EventType: "x"}); err != nil {
		t.Errorf("empty MultiEventLogger error = %v", err)
	}
}
