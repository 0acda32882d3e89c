package monitor_api

import (
	"time"

	"github.com/detrash/recy-pipeline/src/utils/monitoring/report"
	"github.com/detrash/recy-pipeline/src/utils/task"

	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes monitor counters of the REST API
type Monitor struct {
	*task.Task

	Report report.Report

	collector *Collector
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:   &report.RunReport{},
		Queue: &report.QueueReport{},
		Api:   &report.ApiReport{},
	}

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorUptime)
	return
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func (self *Monitor) IsOK() bool {
	// The API serves as long as the process lives
	return true
}

func (self *Monitor) monitorUptime() (err error) {
	self.Report.Run.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.State.StartTimestamp.Load()))
	return
}
