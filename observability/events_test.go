package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"agentpay/core/events"
	"agentpay/core/types"
)

type stubEvent struct {
	evt *types.Event
}

func (s stubEvent) EventType() string { return s.evt.Type }

func (s stubEvent) Event() *types.Event { return s.evt }

type countingEmitter struct {
	seen int
}

func (c *countingEmitter) Emit(events.Event) { c.seen++ }

func TestEventLoggerFlattensAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	emitter := NewEventLogger(logger)
	emitter.Emit(stubEvent{evt: &types.Event{
		Type:       "escrow.job.created",
		Attributes: map[string]string{"id": "7", "status": "created"},
	}})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "engine event", record["msg"])
	require.Equal(t, "escrow.job.created", record["event"])
	require.Equal(t, "7", record["id"])
	require.Equal(t, "created", record["status"])
}

func TestEventLoggerIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEventLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	emitter.Emit(nil)
	require.Zero(t, buf.Len())
}

func TestMultiEmitterFansOut(t *testing.T) {
	first := &countingEmitter{}
	second := &countingEmitter{}
	multi := MultiEmitter{first, nil, second}

	multi.Emit(stubEvent{evt: &types.Event{Type: "escrow.job.created"}})
	multi.Emit(stubEvent{evt: &types.Event{Type: "escrow.job.released"}})

	require.Equal(t, 2, first.seen)
	require.Equal(t, 2, second.seen)
}
