package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "cognichat"

// Metrics holds all CogniChat metric instruments.
type Metrics struct {
	Turns              metric.Int64Counter
	MemoriesStored     metric.Int64Counter
	StoreFailures      metric.Int64Counter
	CompletionFailures metric.Int64Counter
	SearchDuration     metric.Float64Histogram
	CompletionDuration metric.Float64Histogram
	TurnDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Turns, err = meter.Int64Counter("cognichat.turns",
		metric.WithDescription("Number of chat turns, by intent"))
	if err != nil {
		return nil, err
	}

	m.MemoriesStored, err = meter.Int64Counter("cognichat.memories.stored",
		metric.WithDescription("Number of memories written"))
	if err != nil {
		return nil, err
	}

	m.StoreFailures, err = meter.Int64Counter("cognichat.store.failures",
		metric.WithDescription("Memory store operations that degraded to an empty result"))
	if err != nil {
		return nil, err
	}

	m.CompletionFailures, err = meter.Int64Counter("cognichat.completion.failures",
		metric.WithDescription("Failed chat-completion calls"))
	if err != nil {
		return nil, err
	}

	m.SearchDuration, err = meter.Float64Histogram("cognichat.memory.search.duration_seconds",
		metric.WithDescription("Memory search latency in seconds"))
	if err != nil {
		return nil, err
	}

	m.CompletionDuration, err = meter.Float64Histogram("cognichat.completion.duration_seconds",
		metric.WithDescription("Chat-completion latency in seconds"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("cognichat.turn.duration_seconds",
		metric.WithDescription("End-to-end turn latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
