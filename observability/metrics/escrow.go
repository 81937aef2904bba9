package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"agentpay/core/events"
	"agentpay/native/escrow"
)

type EscrowMetrics struct {
	jobsCreated    prometheus.Counter
	terminalStates *prometheus.CounterVec
	disputeEvents  *prometheus.CounterVec
	verifications  *prometheus.CounterVec
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "escrow_jobs_created_total",
				Help: "Count of escrow jobs funded into custody.",
			}),
			terminalStates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_jobs_terminal_total",
				Help: "Count of jobs reaching a terminal state by outcome.",
			}, []string{"outcome"}),
			disputeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_dispute_events_total",
				Help: "Count of dispute lifecycle events by kind.",
			}, []string{"kind"}),
			verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_verifications_total",
				Help: "Count of verifier attestations by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			escrowRegistry.jobsCreated,
			escrowRegistry.terminalStates,
			escrowRegistry.disputeEvents,
			escrowRegistry.verifications,
		)
	})
	return escrowRegistry
}

// Emit implements events.Emitter so the collector can be attached directly to
// the escrow engine, alone or inside a MultiEmitter.
func (m *EscrowMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	switch evt.EventType() {
	case escrow.EventTypeJobCreated:
		m.jobsCreated.Inc()
	case escrow.EventTypeJobReleased:
		m.terminalStates.WithLabelValues("released").Inc()
	case escrow.EventTypeJobRefunded:
		m.terminalStates.WithLabelValues("refunded").Inc()
	case escrow.EventTypeJobCancelled:
		m.terminalStates.WithLabelValues("cancelled").Inc()
	case escrow.EventTypeJobVerified:
		m.verifications.WithLabelValues("attested").Inc()
	case escrow.EventTypeJobDisputed:
		m.disputeEvents.WithLabelValues("raised").Inc()
	case escrow.EventTypeDisputeVote:
		m.disputeEvents.WithLabelValues("vote").Inc()
	case escrow.EventTypeDisputeClosed:
		m.disputeEvents.WithLabelValues("resolved").Inc()
	}
}
