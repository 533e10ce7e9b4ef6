package room

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "arena-server/room"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the coordinator's instruments. They are no-ops unless a
// global meter provider is installed.
type Metrics struct {
	rooms    metric.Int64UpDownCounter
	queued   metric.Int64UpDownCounter
	tickTime metric.Float64Histogram
	dropped  metric.Int64Counter
	failures metric.Int64Counter
	matches  metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter
func NewMetrics() (*Metrics, error) {
	m := meter()
	var (
		mt  Metrics
		err error
	)

	mt.rooms, err = m.Int64UpDownCounter(
		"arena.rooms.active",
		metric.WithDescription("Rooms currently registered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rooms counter: %w", err)
	}

	mt.queued, err = m.Int64UpDownCounter(
		"arena.matchmaking.queued",
		metric.WithDescription("Sockets waiting in the matchmaking queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue counter: %w", err)
	}

	mt.tickTime, err = m.Float64Histogram(
		"arena.tick.duration",
		metric.WithDescription("Wall time of one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}

	mt.dropped, err = m.Int64Counter(
		"arena.events.dropped",
		metric.WithDescription("Room events dropped due to a full outbox"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	mt.failures, err = m.Int64Counter(
		"arena.rooms.failed",
		metric.WithDescription("Rooms stopped after a panic in the tick loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}

	mt.matches, err = m.Int64Counter(
		"arena.matches.finished",
		metric.WithDescription("Matches decided, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating matches counter: %w", err)
	}

	return &mt, nil
}

// All methods accept a nil receiver so tests can run without instruments.

func (m *Metrics) roomOpened() {
	if m != nil {
		m.rooms.Add(context.Background(), 1)
	}
}

func (m *Metrics) roomClosed() {
	if m != nil {
		m.rooms.Add(context.Background(), -1)
	}
}

func (m *Metrics) queueChanged(delta int) {
	if m != nil && delta != 0 {
		m.queued.Add(context.Background(), int64(delta))
	}
}

func (m *Metrics) tick(d time.Duration) {
	if m != nil {
		m.tickTime.Record(context.Background(), float64(d)/float64(time.Millisecond))
	}
}

func (m *Metrics) eventDropped(kind string) {
	if m != nil {
		m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Metrics) roomFailed() {
	if m != nil {
		m.failures.Add(context.Background(), 1)
	}
}

func (m *Metrics) matchFinished(draw bool) {
	if m == nil {
		return
	}
	outcome := "win"
	if draw {
		outcome = "draw"
	}
	m.matches.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
