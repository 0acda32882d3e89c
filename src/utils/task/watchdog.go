package task

import (
	"time"

	"github.com/detrash/recy-pipeline/src/utils/config"
)

// Restarts a task tree when the health check fails.
// The watched tree is recreated from scratch, so tasks get fresh contexts and channels.
type Watchdog struct {
	*Task

	taskFunc func() *Task
	isOK     func() bool
	interval time.Duration

	watched *Task
}

func NewWatchdog(config *config.Config) (self *Watchdog) {
	self = new(Watchdog)

	self.Task = NewTask(config, "watchdog").
		WithOnBeforeStart(self.startWatched).
		WithOnStop(self.stopWatched)

	return
}

func (self *Watchdog) WithTask(f func() *Task) *Watchdog {
	self.taskFunc = f
	return self
}

func (self *Watchdog) WithIsOK(interval time.Duration, f func() bool) *Watchdog {
	self.isOK = f
	if interval <= 0 {
		interval = 30 * time.Second
	}
	self.interval = interval
	self.Task = self.Task.
		WithPeriodicSubtaskFunc(interval, self.check)
	return self
}

func (self *Watchdog) startWatched() (err error) {
	self.watched = self.taskFunc()
	return self.watched.Start()
}

func (self *Watchdog) stopWatched() {
	if self.watched != nil {
		self.watched.StopWait()
	}
}

func (self *Watchdog) check() (err error) {
	if self.IsStopping.Load() {
		return
	}

	if self.isOK == nil || self.isOK() {
		return
	}

	self.Log.Warn("Health check failed, restarting watched task")

	self.watched.StopWait()

	self.watched = self.taskFunc()
	err = self.watched.Start()
	if err != nil {
		self.Log.WithError(err).Error("Failed to restart watched task")
	}
	return
}
