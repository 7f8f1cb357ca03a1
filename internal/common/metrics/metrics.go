// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StubRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stub_requests_total",
			Help: "Total number of inbound requests handled by the stub server",
		},
		[]string{"route", "status"},
	)

	StubEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stub_events_received_total",
			Help: "Total number of inbound event notifications by event type",
		},
		[]string{"event_type"},
	)

	StubCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stub_callbacks_total",
			Help: "Total number of outbound fulfillment callbacks by outcome",
		},
		[]string{"outcome"},
	)

	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checks_total",
			Help: "Total number of conformance checks by result",
		},
		[]string{"result"},
	)
)
