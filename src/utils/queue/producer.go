package queue

import (
	"context"
	"time"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	"github.com/detrash/recy-pipeline/src/utils/task"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Enqueues jobs. Fire and forget from the caller's perspective,
// the job is durable once Enqueue returns.
type Producer struct {
	*task.Task

	client  *redis.Client
	keys    keys
	monitor monitoring.Monitor
}

func NewProducer(config *config.Config) (self *Producer) {
	self = new(Producer)

	self.keys = newKeys(config.Queue.Prefix)

	self.Task = task.NewTask(config, "queue-producer").
		WithSubtaskFunc(self.run).
		WithOnBeforeStart(self.connect).
		WithOnAfterStop(self.disconnect)

	return
}

func (self *Producer) WithMonitor(monitor monitoring.Monitor) *Producer {
	self.monitor = monitor
	return self
}

func (self *Producer) connect() (err error) {
	self.client, err = Connect(self.Ctx, self.Config, self.Name)
	if err != nil {
		self.Log.WithError(err).Error("Failed to connect to Redis")
	}
	return
}

func (self *Producer) disconnect() {
	err := self.client.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close connection")
	}
}

// Keeps the task alive until Stop
func (self *Producer) run() (err error) {
	<-self.StopChannel
	return
}

// Enqueue persists the job and pushes it onto the wait queue.
// Returns the job id once the job is durable.
func (self *Producer) Enqueue(ctx context.Context, job *Job) (id string, err error) {
	err = job.Validate()
	if err != nil {
		return
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.EnqueuedAt = time.Now()
	id = job.ID

	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(self.Config.Redis.MaxElapsedTime).
		WithMaxInterval(self.Config.Redis.MaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			self.Log.WithError(err).WithField("job_id", job.ID).Error("Failed to enqueue job, retrying")
			return err
		}).
		Run(func() (err error) {
			pipe := self.client.TxPipeline()
			pipe.Set(ctx, self.keys.job(job.ID), job, 0)
			pipe.LPush(ctx, self.keys.wait, job.ID)
			_, err = pipe.Exec(ctx)
			return
		})
	if err != nil {
		self.monitor.GetReport().Queue.Errors.Enqueue.Inc()
		return
	}

	self.monitor.GetReport().Queue.State.JobsEnqueued.Inc()
	self.Log.WithField("job_id", job.ID).WithField("report_id", job.ReportID()).Debug("Job enqueued")

	return
}
