package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/logger"
)

type recordingObserver struct {
	name   string
	mu     sync.Mutex
	events []InspectionEvent
}

func (r *recordingObserver) OnEvent(ctx context.Context, event InspectionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) GetObserverName() string { return r.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event InspectionEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                            { return "panicking" }

func TestEventPublisher_NotifyAndUnsubscribe(t *testing.T) {
	p := NewEventPublisher()
	a := &recordingObserver{name: "a"}
	b := &recordingObserver{name: "b"}
	p.Subscribe(a)
	p.Subscribe(b)
	p.Subscribe(panickingObserver{})

	ctx, cancel := context.WithCancel(context.Background())
	p.NotifyObservers(ctx, InspectionEvent{EventType: BatchStarted, BatchID: "x"})
	cancel()
	p.Wait()

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("Expected one event per observer, got %d and %d", len(a.events), len(b.events))
	}
	if a.events[0].Timestamp.IsZero() {
		t.Errorf("Expected timestamp to be filled in")
	}

	p.Unsubscribe(b)
	p.NotifyObservers(context.Background(), InspectionEvent{EventType: BatchCompleted})
	p.Wait()

	if len(a.events) != 2 {
		t.Errorf("Expected 2 events for a, got %d", len(a.events))
	}
	if len(b.events) != 1 {
		t.Errorf("Expected unsubscribed observer to stay at 1 event, got %d", len(b.events))
	}
}

func TestEventPublisher_PanicLogsThroughAppLogger(t *testing.T) {
	var buf bytes.Buffer
	out := logger.Logger.Out
	logger.Logger.SetOutput(&buf)
	defer logger.Logger.SetOutput(out)

	p := NewEventPublisher()
	p.Subscribe(panickingObserver{})
	p.NotifyObservers(context.Background(), InspectionEvent{EventType: BatchStarted})
	p.Wait()

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON log entry, got %q: %v", buf.String(), err)
	}
	if entry["observer"] != "panicking" || entry["level"] != "error" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	events := []InspectionEvent{
		{EventType: BatchStarted},
		{EventType: ItemClassified, Label: classifier.Healthy, ProcessingTime: 10 * time.Millisecond},
		{EventType: ItemClassified, Label: classifier.Damaged, ProcessingTime: 30 * time.Millisecond},
		{EventType: ItemClassified, Label: classifier.Damaged, ProcessingTime: 20 * time.Millisecond},
		{EventType: ItemFailed},
		{EventType: BatchCompleted},
	}
	for _, e := range events {
		m.OnEvent(ctx, e)
	}

	got := m.GetMetrics()
	want := map[string]int64{
		"batches":                1,
		"images_classified":      3,
		"images_healthy":         1,
		"images_damaged":         2,
		"images_failed":          1,
		"avg_processing_time_ms": 20,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %d, got %v", k, v, got[k])
		}
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)

	o := NewLoggingObserver(l)
	o.OnEvent(context.Background(), InspectionEvent{
		EventType:  ItemClassified,
		BatchID:    "b1",
		Source:     "apple.jpg",
		Label:      classifier.Damaged,
		Confidence: 0.95,
		Success:    true,
	})
	o.OnEvent(context.Background(), InspectionEvent{
		EventType:    ItemFailed,
		BatchID:      "b1",
		Source:       "broken.jpg",
		ErrorMessage: "decode error",
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON log: %v", err)
	}
	if first["label"] != "Damaged" || first["file"] != "apple.jpg" || first["batch_id"] != "b1" {
		t.Errorf("Unexpected fields: %v", first)
	}

	var second map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON log: %v", err)
	}
	if second["level"] != "warning" || second["error"] != "decode error" {
		t.Errorf("Unexpected fields: %v", second)
	}
}
