package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/logger"
)

// InspectionEvent represents something that happened while classifying a batch
type InspectionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	BatchID        string                 `json:"batch_id"`
	Source         string                 `json:"source,omitempty"`
	Label          classifier.Label       `json:"label"`
	Confidence     float64                `json:"confidence,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of inspection event
type EventType string

const (
	// BatchStarted when a batch begins
	BatchStarted EventType = "batch_started"
	// ItemClassified when one image got a label
	ItemClassified EventType = "item_classified"
	// ItemFailed when one image could not be classified
	ItemFailed EventType = "item_failed"
	// BatchCompleted when every item of a batch was handled
	BatchCompleted EventType = "batch_completed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event InspectionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event InspectionEvent)
}

// LoggingObserver logs inspection events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// OnEvent handles inspection events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event InspectionEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"batch_id":           event.BatchID,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
		"success":            event.Success,
	}
	if event.Source != "" {
		fields["file"] = event.Source
	}
	if event.EventType == ItemClassified {
		fields["label"] = event.Label.String()
		fields["confidence"] = event.Confidence
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case BatchStarted:
		entry.Info("Batch started")
	case ItemClassified:
		entry.Debug("Image classified")
	case ItemFailed:
		entry.Warn("Image skipped")
	case BatchCompleted:
		entry.Info("Batch completed")
	default:
		entry.Info("Inspection event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver keeps process-wide counters
type MetricsObserver struct {
	mu                  sync.RWMutex
	batches             int64
	classified          int64
	healthy             int64
	damaged             int64
	failed              int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles inspection events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event InspectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case BatchStarted:
		o.batches++
	case ItemClassified:
		o.classified++
		o.totalProcessingTime += event.ProcessingTime
		switch event.Label {
		case classifier.Healthy:
			o.healthy++
		case classifier.Damaged:
			o.damaged++
		}
	case ItemFailed:
		o.failed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avg := time.Duration(0)
	if o.classified > 0 {
		avg = o.totalProcessingTime / time.Duration(o.classified)
	}

	return map[string]interface{}{
		"batches":                o.batches,
		"images_classified":      o.classified,
		"images_healthy":         o.healthy,
		"images_damaged":         o.damaged,
		"images_failed":          o.failed,
		"avg_processing_time_ms": avg.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Delivery is
// asynchronous and outlives the caller's context.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event InspectionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	detached := context.WithoutCancel(ctx)

	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(detached, event)
		}(observer)
	}
}

// Wait blocks until every notification sent so far has been handled.
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
