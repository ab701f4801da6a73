package integration

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/tree-tutor/internal/session"
)

// TestStepLifecycleEvents verifies the events emitted while stepping a registry session
func TestStepLifecycleEvents(t *testing.T) {
	observer := &MockObserver{}
	registry := setupRegistry(t, observer)

	cursor, err := registry.Get("events")
	assert.NilError(t, err)

	ctx := context.Background()
	_, err = cursor.Step(ctx, sampleInput, sampleConfig)
	assert.NilError(t, err)
	_, _, err = cursor.Back(ctx, sampleInput, sampleConfig)
	assert.NilError(t, err)
	_, err = cursor.Query(ctx, "team/+", "")
	assert.ErrorIs(t, err, session.ErrNoTree)

	expectedEventTypes := []session.EventType{
		session.EventStepStart,
		session.EventStepEnd,
		session.EventBackStart,
		session.EventBackEnd,
		session.EventQueryStart,
		session.EventQueryEnd,
	}

	events := observer.snapshot()
	if len(events) != len(expectedEventTypes) {
		t.Errorf("Expected %d events, got %d", len(expectedEventTypes), len(events))
		for i, event := range events {
			t.Logf("Event %d: %s", i, event.Type)
		}
		return
	}

	for i, expectedType := range expectedEventTypes {
		if events[i].Type != expectedType {
			t.Errorf("Event %d: Expected %s, got %s", i, expectedType, events[i].Type)
		}
		if events[i].UID != "events" {
			t.Errorf("Event %d: Expected uid events, got %s", i, events[i].UID)
		}
	}

	// start and end of one operation share an id
	for i := 0; i < len(events); i += 2 {
		if events[i].OpID != events[i+1].OpID {
			t.Errorf("Event %d: OpID mismatch. Expected %s, got %s", i+1, events[i].OpID, events[i+1].OpID)
		}
	}
	assert.Assert(t, events[0].OpID != events[2].OpID)

	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("Event %d timestamp is before event %d", i, i-1)
		}
	}

	// the step end reports how far the replay got
	data := events[1].Data.(map[string]interface{})
	assert.Equal(t, int64(1), data["records"])
	assert.Equal(t, false, data["built"])
}

// TestEvictionClosesSession verifies a removed session reports closed
func TestEvictionClosesSession(t *testing.T) {
	observer := &MockObserver{}
	registry := setupRegistry(t, observer)

	cursor, err := registry.Get("closing")
	assert.NilError(t, err)
	_, err = cursor.Build(context.Background(), sampleInput, sampleConfig)
	assert.NilError(t, err)

	assert.NilError(t, registry.Close())

	var closed int
	for _, e := range observer.snapshot() {
		if e.Type == session.EventClosed && e.UID == "closing" {
			closed++
		}
	}
	assert.Assert(t, closed >= 1)
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(previous)

	registry := setupRegistry(t, session.NewLoggingObserver())
	cursor, err := registry.Get("logged")
	assert.NilError(t, err)
	_, err = cursor.Build(context.Background(), sampleInput, sampleConfig)
	assert.NilError(t, err)

	out := buf.String()
	assert.Assert(t, strings.Contains(out, "msg=session_lifecycle event=build_start uid=logged"))
	assert.Assert(t, strings.Contains(out, "event=build_end uid=logged"))
}
