package monitoring

import (
	"github.com/detrash/recy-pipeline/src/utils/monitoring/report"

	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes counters of a single command
type Monitor interface {
	GetReport() *report.Report
	GetPrometheusCollector() prometheus.Collector

	// Health check backing the watchdog
	IsOK() bool
}
