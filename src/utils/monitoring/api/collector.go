package monitor_api

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	StartTimestamp  *prometheus.Desc
	UpForSeconds    *prometheus.Desc
	ReportsCreated  *prometheus.Desc
	AuditsCreated   *prometheus.Desc
	AuditsValidated *prometheus.Desc
	JobsEnqueued    *prometheus.Desc

	BadRequestErrors *prometheus.Desc
	NotFoundErrors   *prometheus.Desc
	InternalErrors   *prometheus.Desc
	EnqueueErrors    *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "recy-api",
	}

	return &Collector{
		StartTimestamp:  prometheus.NewDesc("start_timestamp", "", nil, labels),
		UpForSeconds:    prometheus.NewDesc("up_for_seconds", "", nil, labels),
		ReportsCreated:  prometheus.NewDesc("reports_created", "", nil, labels),
		AuditsCreated:   prometheus.NewDesc("audits_created", "", nil, labels),
		AuditsValidated: prometheus.NewDesc("audits_validated", "", nil, labels),
		JobsEnqueued:    prometheus.NewDesc("jobs_enqueued", "", nil, labels),

		// Errors
		BadRequestErrors: prometheus.NewDesc("error_bad_request", "", nil, labels),
		NotFoundErrors:   prometheus.NewDesc("error_not_found", "", nil, labels),
		InternalErrors:   prometheus.NewDesc("error_internal", "", nil, labels),
		EnqueueErrors:    prometheus.NewDesc("error_enqueue", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.StartTimestamp
	ch <- self.UpForSeconds
	ch <- self.ReportsCreated
	ch <- self.AuditsCreated
	ch <- self.AuditsValidated
	ch <- self.JobsEnqueued
	ch <- self.BadRequestErrors
	ch <- self.NotFoundErrors
	ch <- self.InternalErrors
	ch <- self.EnqueueErrors
}

func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	report := self.monitor.GetReport()

	ch <- prometheus.MustNewConstMetric(self.StartTimestamp, prometheus.GaugeValue, float64(report.Run.State.StartTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(report.Run.State.UpForSeconds.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReportsCreated, prometheus.CounterValue, float64(report.Api.State.ReportsCreated.Load()))
	ch <- prometheus.MustNewConstMetric(self.AuditsCreated, prometheus.CounterValue, float64(report.Api.State.AuditsCreated.Load()))
	ch <- prometheus.MustNewConstMetric(self.AuditsValidated, prometheus.CounterValue, float64(report.Api.State.AuditsValidated.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsEnqueued, prometheus.CounterValue, float64(report.Queue.State.JobsEnqueued.Load()))
	ch <- prometheus.MustNewConstMetric(self.BadRequestErrors, prometheus.CounterValue, float64(report.Api.Errors.BadRequest.Load()))
	ch <- prometheus.MustNewConstMetric(self.NotFoundErrors, prometheus.CounterValue, float64(report.Api.Errors.NotFound.Load()))
	ch <- prometheus.MustNewConstMetric(self.InternalErrors, prometheus.CounterValue, float64(report.Api.Errors.Internal.Load()))
	ch <- prometheus.MustNewConstMetric(self.EnqueueErrors, prometheus.CounterValue, float64(report.Queue.Errors.Enqueue.Load()))
}
