// Package observability exposes the Prometheus instrumentation for the swap
// host.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ContractCalls counts contract invocations by template, method and
	// outcome.
	ContractCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swap",
			Subsystem: "host",
			Name:      "contract_calls_total",
			Help:      "Number of contract calls processed by the host.",
		},
		[]string{"template", "method", "outcome"},
	)

	// InstancesSpawned counts contract instances created per template.
	InstancesSpawned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swap",
			Subsystem: "host",
			Name:      "instances_spawned_total",
			Help:      "Number of contract instances spawned per template.",
		},
		[]string{"template"},
	)

	// MessageDepth observes the nesting depth of queued submessages.
	MessageDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "swap",
			Subsystem: "host",
			Name:      "message_depth",
			Help:      "Nesting depth reached while applying queued messages.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(ContractCalls, InstancesSpawned, MessageDepth)
}

// RecordCall tallies one contract call.
func RecordCall(template, method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ContractCalls.WithLabelValues(template, method, outcome).Inc()
}
