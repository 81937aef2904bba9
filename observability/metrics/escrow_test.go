package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"agentpay/core/types"
	"agentpay/native/escrow"
)

type stubEvent struct {
	eventType string
}

func (s stubEvent) EventType() string { return s.eventType }

func (s stubEvent) Event() *types.Event { return &types.Event{Type: s.eventType} }

func TestEscrowMetricsCountOutcomes(t *testing.T) {
	collector := Escrow()
	require.Same(t, collector, Escrow())

	createdBefore := testutil.ToFloat64(collector.jobsCreated)
	releasedBefore := testutil.ToFloat64(collector.terminalStates.WithLabelValues("released"))
	raisedBefore := testutil.ToFloat64(collector.disputeEvents.WithLabelValues("raised"))

	collector.Emit(stubEvent{eventType: escrow.EventTypeJobCreated})
	collector.Emit(stubEvent{eventType: escrow.EventTypeJobReleased})
	collector.Emit(stubEvent{eventType: escrow.EventTypeJobDisputed})
	// Unknown types are ignored rather than counted.
	collector.Emit(stubEvent{eventType: "escrow.unknown"})

	require.Equal(t, createdBefore+1, testutil.ToFloat64(collector.jobsCreated))
	require.Equal(t, releasedBefore+1, testutil.ToFloat64(collector.terminalStates.WithLabelValues("released")))
	require.Equal(t, raisedBefore+1, testutil.ToFloat64(collector.disputeEvents.WithLabelValues("raised")))
}
