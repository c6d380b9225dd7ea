package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/pvcharge/config"
	coremon "github.com/kilianp07/pvcharge/core/monitoring"
)

func TestNewSentryMonitor_NoDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestSentryMonitor_CaptureTags(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []*sentry.Event
	)
	m, err := newSentryMonitor(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			sent = append(sent, ev)
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("set_current timeout"), map[string]string{"action": "set_current"})

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sent))
	}
	if sent[0].Tags["action"] != "set_current" {
		t.Fatalf("missing tag: %v", sent[0].Tags)
	}
}
