package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks RPC calls per provider and method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unstuck_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unstuck_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "method", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unstuck_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// NonceGap tracks the gap seen by the detector, before and after replacement
	NonceGap = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unstuck_nonce_gap",
			Help: "Number of stuck nonces for the account",
		},
		[]string{"address", "phase"},
	)

	// ReplacementAttempts tracks finished replacement attempts by outcome
	ReplacementAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unstuck_replacement_attempts_total",
			Help: "Total number of replacement transactions by final status",
		},
		[]string{"status"},
	)

	// ReceiptWait tracks how long a replacement took to get its first confirmation
	ReceiptWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unstuck_receipt_wait_seconds",
			Help:    "Time from submission to first confirmation",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
		},
	)
)
