package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"riskgov/core/events"
	"riskgov/core/types"
)

// EventEmitter bridges engine events into structured logs and a counter
// segmented by event type. It satisfies the engines' Emitter interface.
type EventEmitter struct {
	logger  *slog.Logger
	emitted *prometheus.CounterVec
}

// NewEventEmitter builds an emitter registering its counter with reg, or with
// the default registerer when nil.
func NewEventEmitter(logger *slog.Logger, reg prometheus.Registerer) *EventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riskgov",
		Subsystem: "events",
		Name:      "emitted_total",
		Help:      "Count of governance events segmented by type.",
	}, []string{"type"})
	reg.MustRegister(emitted)
	return &EventEmitter{logger: logger, emitted: emitted}
}

// Emit logs the event with its attributes and bumps the counter.
func (e *EventEmitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	e.emitted.WithLabelValues(eventType).Inc()

	args := []any{slog.String("type", eventType)}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if raw := carrier.Event(); raw != nil {
			for key, value := range raw.Attributes {
				args = append(args, slog.String(key, value))
			}
		}
	}
	e.logger.Info("event", args...)
}
