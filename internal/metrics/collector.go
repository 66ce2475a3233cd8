package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventVariantSelected   EventType = "variant_selected"
	EventResponseCompleted EventType = "response_completed"
	EventPipelineFailed    EventType = "pipeline_failed"
)

// Pipeline stages reported with EventPipelineFailed.
const (
	StageVariants = "variants"
	StageOrigin   = "origin"
	StageRewrite  = "rewrite"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Origin     string
	Sticky     bool
	Stage      string
	Duration   time.Duration
	StatusCode int
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking. It is safe on a nil Collector.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests()
	case EventVariantSelected:
		c.metrics.RecordSelection(event.Origin, event.Sticky)
	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Origin, event.Duration, event.StatusCode)
	case EventPipelineFailed:
		c.metrics.RecordFailure(event.Stage)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(engine string) Snapshot {
	return c.metrics.Snapshot(engine)
}
