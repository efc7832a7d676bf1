// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pickline_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pickline_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})

	LedgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pickline_ledger_operations_total",
		Help: "Ledger operations by result code",
	}, []string{"operation", "result"})

	LedgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pickline_ledger_operation_duration_seconds",
		Help:    "Ledger operation latency including lock waits",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 10},
	}, []string{"operation"})

	EntriesSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pickline_entries_settled_total",
		Help: "Settled entries by resulting status",
	}, []string{"status"})

	SettlementJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pickline_settlement_jobs_total",
		Help: "Settlement queue jobs by result",
	}, []string{"result"})
)
