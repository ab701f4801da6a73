package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/leengari/tree-tutor/internal/session"
)

const sampleInput = "team, computer, name\n" +
	"Data, Mac, Matt\n" +
	"Data, Mac, Andres\n" +
	"Data, Lenovo, Michael\n" +
	"Data, Lenovo, Eric\n" +
	"Data, Lenovo, Stephen\n" +
	"Data, Lenovo, Ian\n" +
	"Data, Mac, Al\n" +
	"Data, Lenovo, Aditya\n" +
	"Data, Mac, Evan\n"

const sampleConfig = "{\n" +
	"type:\"tree\",\n" +
	"root:{path:\"SAMPLE\"},\n" +
	"paths:{\n" +
	"SAMPLE:[\n" +
	"{type:\"const\", value:\"team\"},\n" +
	"{type:\"value\", key:\"team\"},\n" +
	"{type:\"value\", key:\"computer\", data : {tcomp : {type : \"key.top\", size : 500, key : \"computer\"}}},\n" +
	"{type:\"value\", key:\"name\"},\n" +
	"],\n" +
	"},\n" +
	"}\n"

const sampleRecords = 9

// MockObserver is a test observer that records events from many sessions
type MockObserver struct {
	mu     sync.Mutex
	Events []session.Event
}

func (m *MockObserver) OnEvent(event session.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockObserver) snapshot() []session.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]session.Event(nil), m.Events...)
}

func setupRegistry(t *testing.T, observers ...session.Observer) *session.Registry {
	t.Helper()
	registry, err := session.NewRegistry(t.TempDir(), 100, time.Hour, observers...)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	t.Cleanup(func() {
		if err := registry.Close(); err != nil {
			t.Errorf("failed to close registry: %v", err)
		}
	})
	return registry
}
