package monitor_evidence

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	StartTimestamp      *prometheus.Desc
	UpForSeconds        *prometheus.Desc
	NumWatchdogRestarts *prometheus.Desc
	JobsEnqueued        *prometheus.Desc
	JobsClaimed         *prometheus.Desc
	JobsCompleted       *prometheus.Desc
	JobsRetried         *prometheus.Desc
	JobsDeadLettered    *prometheus.Desc
	JobsRequeued        *prometheus.Desc

	JobsProcessed        *prometheus.Desc
	CertificatesRendered *prometheus.Desc
	ArtifactsUploaded    *prometheus.Desc
	ReportsPersisted     *prometheus.Desc
	MessagesPublished    *prometheus.Desc

	ClaimErrors          *prometheus.Desc
	AckErrors            *prometheus.Desc
	NackErrors           *prometheus.Desc
	SchedulerErrors      *prometheus.Desc
	JanitorErrors        *prometheus.Desc
	MalformedJobs        *prometheus.Desc
	ReportNotFoundErrors *prometheus.Desc
	UserNotFoundErrors   *prometheus.Desc
	RenderErrors         *prometheus.Desc
	UploadErrors         *prometheus.Desc
	PersistErrors        *prometheus.Desc
	PublishErrors        *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "evidence-worker",
	}

	return &Collector{
		StartTimestamp:      prometheus.NewDesc("start_timestamp", "", nil, labels),
		UpForSeconds:        prometheus.NewDesc("up_for_seconds", "", nil, labels),
		NumWatchdogRestarts: prometheus.NewDesc("num_watchdog_restarts", "", nil, labels),
		JobsEnqueued:        prometheus.NewDesc("jobs_enqueued", "", nil, labels),
		JobsClaimed:         prometheus.NewDesc("jobs_claimed", "", nil, labels),
		JobsCompleted:       prometheus.NewDesc("jobs_completed", "", nil, labels),
		JobsRetried:         prometheus.NewDesc("jobs_retried", "", nil, labels),
		JobsDeadLettered:    prometheus.NewDesc("jobs_dead_lettered", "", nil, labels),
		JobsRequeued:        prometheus.NewDesc("jobs_requeued", "", nil, labels),

		JobsProcessed:        prometheus.NewDesc("jobs_processed", "", nil, labels),
		CertificatesRendered: prometheus.NewDesc("certificates_rendered", "", nil, labels),
		ArtifactsUploaded:    prometheus.NewDesc("artifacts_uploaded", "", nil, labels),
		ReportsPersisted:     prometheus.NewDesc("reports_persisted", "", nil, labels),
		MessagesPublished:    prometheus.NewDesc("messages_published", "", nil, labels),

		// Errors
		ClaimErrors:          prometheus.NewDesc("error_claim", "", nil, labels),
		AckErrors:            prometheus.NewDesc("error_ack", "", nil, labels),
		NackErrors:           prometheus.NewDesc("error_nack", "", nil, labels),
		SchedulerErrors:      prometheus.NewDesc("error_scheduler", "", nil, labels),
		JanitorErrors:        prometheus.NewDesc("error_janitor", "", nil, labels),
		MalformedJobs:        prometheus.NewDesc("error_malformed_jobs", "", nil, labels),
		ReportNotFoundErrors: prometheus.NewDesc("error_report_not_found", "", nil, labels),
		UserNotFoundErrors:   prometheus.NewDesc("error_user_not_found", "", nil, labels),
		RenderErrors:         prometheus.NewDesc("error_render", "", nil, labels),
		UploadErrors:         prometheus.NewDesc("error_upload", "", nil, labels),
		PersistErrors:        prometheus.NewDesc("error_persist", "", nil, labels),
		PublishErrors:        prometheus.NewDesc("error_publish", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.StartTimestamp
	ch <- self.UpForSeconds
	ch <- self.NumWatchdogRestarts
	ch <- self.JobsEnqueued
	ch <- self.JobsClaimed
	ch <- self.JobsCompleted
	ch <- self.JobsRetried
	ch <- self.JobsDeadLettered
	ch <- self.JobsRequeued
	ch <- self.JobsProcessed
	ch <- self.CertificatesRendered
	ch <- self.ArtifactsUploaded
	ch <- self.ReportsPersisted
	ch <- self.MessagesPublished
	ch <- self.ClaimErrors
	ch <- self.AckErrors
	ch <- self.NackErrors
	ch <- self.SchedulerErrors
	ch <- self.JanitorErrors
	ch <- self.MalformedJobs
	ch <- self.ReportNotFoundErrors
	ch <- self.UserNotFoundErrors
	ch <- self.RenderErrors
	ch <- self.UploadErrors
	ch <- self.PersistErrors
	ch <- self.PublishErrors
}

func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	report := self.monitor.GetReport()

	ch <- prometheus.MustNewConstMetric(self.StartTimestamp, prometheus.GaugeValue, float64(report.Run.State.StartTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(report.Run.State.UpForSeconds.Load()))
	ch <- prometheus.MustNewConstMetric(self.NumWatchdogRestarts, prometheus.CounterValue, float64(report.Run.State.NumWatchdogRestarts.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsEnqueued, prometheus.CounterValue, float64(report.Queue.State.JobsEnqueued.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsClaimed, prometheus.CounterValue, float64(report.Queue.State.JobsClaimed.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsCompleted, prometheus.CounterValue, float64(report.Queue.State.JobsCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsRetried, prometheus.CounterValue, float64(report.Queue.State.JobsRetried.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsDeadLettered, prometheus.CounterValue, float64(report.Queue.State.JobsDeadLettered.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsRequeued, prometheus.CounterValue, float64(report.Queue.State.JobsRequeued.Load()))
	ch <- prometheus.MustNewConstMetric(self.JobsProcessed, prometheus.CounterValue, float64(report.Evidence.State.JobsProcessed.Load()))
	ch <- prometheus.MustNewConstMetric(self.CertificatesRendered, prometheus.CounterValue, float64(report.Evidence.State.CertificatesRendered.Load()))
	ch <- prometheus.MustNewConstMetric(self.ArtifactsUploaded, prometheus.CounterValue, float64(report.Evidence.State.ArtifactsUploaded.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReportsPersisted, prometheus.CounterValue, float64(report.Evidence.State.ReportsPersisted.Load()))
	ch <- prometheus.MustNewConstMetric(self.MessagesPublished, prometheus.CounterValue, float64(report.RedisPublisher.State.MessagesPublished.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimErrors, prometheus.CounterValue, float64(report.Queue.Errors.Claim.Load()))
	ch <- prometheus.MustNewConstMetric(self.AckErrors, prometheus.CounterValue, float64(report.Queue.Errors.Ack.Load()))
	ch <- prometheus.MustNewConstMetric(self.NackErrors, prometheus.CounterValue, float64(report.Queue.Errors.Nack.Load()))
	ch <- prometheus.MustNewConstMetric(self.SchedulerErrors, prometheus.CounterValue, float64(report.Queue.Errors.Scheduler.Load()))
	ch <- prometheus.MustNewConstMetric(self.JanitorErrors, prometheus.CounterValue, float64(report.Queue.Errors.Janitor.Load()))
	ch <- prometheus.MustNewConstMetric(self.MalformedJobs, prometheus.CounterValue, float64(report.Queue.Errors.MalformedJobs.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReportNotFoundErrors, prometheus.CounterValue, float64(report.Evidence.Errors.ReportNotFound.Load()))
	ch <- prometheus.MustNewConstMetric(self.UserNotFoundErrors, prometheus.CounterValue, float64(report.Evidence.Errors.UserNotFound.Load()))
	ch <- prometheus.MustNewConstMetric(self.RenderErrors, prometheus.CounterValue, float64(report.Evidence.Errors.Render.Load()))
	ch <- prometheus.MustNewConstMetric(self.UploadErrors, prometheus.CounterValue, float64(report.Evidence.Errors.Upload.Load()))
	ch <- prometheus.MustNewConstMetric(self.PersistErrors, prometheus.CounterValue, float64(report.Evidence.Errors.Persist.Load()))
	ch <- prometheus.MustNewConstMetric(self.PublishErrors, prometheus.CounterValue, float64(report.RedisPublisher.Errors.Publish.Load()))
}
