package monitor_evidence

import (
	"time"

	"github.com/detrash/recy-pipeline/src/utils/monitoring/report"
	"github.com/detrash/recy-pipeline/src/utils/task"

	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes monitor counters of the evidence worker
type Monitor struct {
	*task.Task

	Report report.Report

	collector *Collector

	// Max allowed silence on the wait queue before the watchdog kicks in
	maxTimeBetweenPolls time.Duration
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:            &report.RunReport{},
		Queue:          &report.QueueReport{},
		Evidence:       &report.EvidenceReport{},
		RedisPublisher: &report.RedisPublisherReport{},
	}

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())
	self.maxTimeBetweenPolls = 5 * time.Minute

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorUptime)
	return
}

func (self *Monitor) WithMaxTimeBetweenPolls(d time.Duration) *Monitor {
	self.maxTimeBetweenPolls = d
	return self
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

// Consumer is healthy as long as it keeps polling the wait queue.
// An idle queue still gets polled, so a stuck poll loop is the only way this trips.
func (self *Monitor) IsOK() bool {
	lastPoll := self.Report.Queue.State.LastPollTimestamp.Load()
	if lastPoll == 0 {
		// Not a single poll yet, give the consumer time to connect
		return time.Since(time.Unix(self.Report.Run.State.StartTimestamp.Load(), 0)) < self.maxTimeBetweenPolls
	}
	return time.Since(time.Unix(lastPoll, 0)) < self.maxTimeBetweenPolls
}

func (self *Monitor) monitorUptime() (err error) {
	self.Report.Run.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.State.StartTimestamp.Load()))
	return
}
