package observability

import (
	"log/slog"

	"agentpay/core/events"
	"agentpay/core/types"
)

// payloadEvent is implemented by engine events that expose their full payload
// in addition to the bare type string.
type payloadEvent interface {
	events.Event
	Event() *types.Event
}

// EventLogger is an events.Emitter that writes every engine event to a
// structured logger. Attributes are flattened into the log record.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger wraps the supplied logger; nil falls back to slog.Default.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// Emit implements events.Emitter.
func (l *EventLogger) Emit(evt events.Event) {
	if l == nil || l.logger == nil || evt == nil {
		return
	}
	args := []any{slog.String("event", evt.EventType())}
	if payload, ok := evt.(payloadEvent); ok {
		if inner := payload.Event(); inner != nil {
			for key, value := range inner.Attributes {
				args = append(args, slog.String(key, value))
			}
		}
	}
	l.logger.Info("engine event", args...)
}

// MultiEmitter fans one event out to several downstream emitters, letting a
// deployment attach logging and metrics to the same engine.
type MultiEmitter []events.Emitter

// Emit implements events.Emitter.
func (m MultiEmitter) Emit(evt events.Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
