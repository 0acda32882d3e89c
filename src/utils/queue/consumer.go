package queue

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/detrash/recy-pipeline/src/utils/config"
	"github.com/detrash/recy-pipeline/src/utils/monitoring"
	"github.com/detrash/recy-pipeline/src/utils/task"

	"github.com/redis/go-redis/v9"
)

// Handles one claimed job. A nil return acks the job, an error schedules
// a redelivery unless the error is permanent.
type Handler func(ctx context.Context, job *Job) error

// Removes a due id from the delayed set and puts it back on the wait queue.
// One script call, so a crash can't leave the id on no list at all.
// KEYS: delayed, wait. ARGV: job id.
var promoteScript = redis.NewScript(`
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
if removed == 1 then
	redis.call('LPUSH', KEYS[2], ARGV[1])
end
return removed
`)

// Requeues an id from the active list unless its lease is still held.
// KEYS: lease, active, wait. ARGV: job id.
var requeueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local removed = redis.call('LREM', KEYS[2], 1, ARGV[1])
if removed == 1 then
	redis.call('LPUSH', KEYS[3], ARGV[1])
end
return removed
`)

// Claims jobs from the wait queue and dispatches them to a worker pool.
// Delivery is at least once: a claimed job holds a lease for the visibility
// timeout, the janitor requeues jobs whose lease expired without an ack.
type Consumer struct {
	*task.Task

	client   *redis.Client
	keys     keys
	monitor  monitoring.Monitor
	handlers map[Kind]Handler

	// Lifecycle notifications, dropped when no one keeps up
	events     chan *JobEvent
	ownsEvents bool
}

func NewConsumer(config *config.Config) (self *Consumer) {
	self = new(Consumer)

	self.keys = newKeys(config.Queue.Prefix)
	self.handlers = make(map[Kind]Handler)
	self.events = make(chan *JobEvent, 100)
	self.ownsEvents = true

	self.Task = task.NewTask(config, "queue-consumer").
		WithWorkerPool(config.Queue.MaxWorkers, config.Queue.MaxQueueSize).
		WithSubtaskFunc(self.claim).
		WithPeriodicSubtaskFunc(config.Queue.SchedulerInterval, self.promoteDelayed).
		WithPeriodicSubtaskFunc(config.Queue.JanitorInterval, self.janitor).
		WithOnBeforeStart(self.connect).
		WithOnAfterStop(self.disconnect).
		WithOnAfterStop(func() {
			if self.ownsEvents {
				close(self.events)
			}
		})

	return
}

func (self *Consumer) WithMonitor(monitor monitoring.Monitor) *Consumer {
	self.monitor = monitor
	return self
}

func (self *Consumer) WithHandler(kind Kind, handler Handler) *Consumer {
	self.handlers[kind] = handler
	return self
}

// WithEventsChannel replaces the internal events channel with one owned by
// the caller. The consumer won't close it, so the channel can outlive a
// consumer restarted by the watchdog.
func (self *Consumer) WithEventsChannel(v chan *JobEvent) *Consumer {
	self.events = v
	self.ownsEvents = false
	return self
}

// Events returns job lifecycle notifications. Closed when the consumer stops.
func (self *Consumer) Events() <-chan *JobEvent {
	return self.events
}

func (self *Consumer) connect() (err error) {
	self.client, err = Connect(self.Ctx, self.Config, self.Name)
	if err != nil {
		self.Log.WithError(err).Error("Failed to connect to Redis")
	}
	return
}

func (self *Consumer) disconnect() {
	err := self.client.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close connection")
	}
}

// Moves one job id from the wait queue to the active list and hands it to
// the worker pool. Blocks for at most ClaimBlockTimeout per poll so stopping
// stays responsive.
func (self *Consumer) claim() (err error) {
	for {
		if self.IsStopping.Load() {
			return nil
		}

		id, err := self.client.BRPopLPush(self.Ctx, self.keys.wait, self.keys.active, self.Config.Queue.ClaimBlockTimeout).Result()
		self.monitor.GetReport().Queue.State.LastPollTimestamp.Store(time.Now().Unix())
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Queue was empty for the whole block, poll again
				continue
			}
			if self.Ctx.Err() != nil {
				return nil
			}
			self.monitor.GetReport().Queue.Errors.Claim.Inc()
			self.Log.WithError(err).Error("Failed to claim a job")
			time.Sleep(time.Second)
			continue
		}

		job, ok := self.load(id)
		if !ok {
			continue
		}

		self.monitor.GetReport().Queue.State.JobsClaimed.Inc()
		self.emit(EventActive, job, nil)

		self.SubmitToWorker(func() {
			self.process(job)
		})
	}
}

// Takes a lease on the claimed id and decodes the stored job.
// Jobs that can't be decoded go straight to the dead letter list.
func (self *Consumer) load(id string) (job *Job, ok bool) {
	err := self.client.Set(self.Ctx, self.keys.lease(id), 1, self.Config.Queue.VisibilityTimeout).Err()
	if err != nil {
		// The job stays on the active list without a lease,
		// the janitor will requeue it
		self.monitor.GetReport().Queue.Errors.Claim.Inc()
		self.Log.WithError(err).WithField("job_id", id).Error("Failed to take a lease")
		return nil, false
	}

	data, err := self.client.Get(self.Ctx, self.keys.job(id)).Bytes()
	if err == nil {
		job = new(Job)
		err = job.UnmarshalBinary(data)
		if err == nil {
			err = job.Validate()
		}
	}
	if err != nil {
		self.monitor.GetReport().Queue.Errors.MalformedJobs.Inc()
		self.Log.WithError(err).WithField("job_id", id).Error("Malformed job, dead-lettering")
		self.deadLetter(id)
		return nil, false
	}

	return job, true
}

func (self *Consumer) process(job *Job) {
	handler, ok := self.handlers[job.Kind]
	if !ok {
		self.nack(job, Permanent(errors.New("no handler for job kind: "+string(job.Kind))))
		return
	}

	err := handler(self.Ctx, job)
	if err != nil {
		self.nack(job, err)
		return
	}

	self.ack(job)
}

// Acknowledges a finished job, removing every trace of it from Redis
func (self *Consumer) ack(job *Job) {
	err := task.NewRetry().
		WithContext(self.Ctx).
		WithMaxElapsedTime(self.Config.Redis.MaxElapsedTime).
		WithMaxInterval(self.Config.Redis.MaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			self.Log.WithError(err).WithField("job_id", job.ID).Error("Failed to ack job, retrying")
			return err
		}).
		Run(func() (err error) {
			pipe := self.client.TxPipeline()
			pipe.LRem(self.Ctx, self.keys.active, 1, job.ID)
			pipe.Del(self.Ctx, self.keys.job(job.ID), self.keys.lease(job.ID))
			_, err = pipe.Exec(self.Ctx)
			return
		})
	if err != nil {
		// Lease will expire and the job gets redelivered, the handler
		// has to tolerate the duplicate
		self.monitor.GetReport().Queue.Errors.Ack.Inc()
		return
	}

	self.monitor.GetReport().Queue.State.JobsCompleted.Inc()
	self.emit(EventCompleted, job, nil)
}

// Records a failed attempt. The job is either scheduled for redelivery
// with exponential backoff or dead-lettered when attempts ran out or the
// error is permanent.
func (self *Consumer) nack(job *Job, jobErr error) {
	job.Attempts += 1
	job.LastError = jobErr.Error()

	isDead := IsPermanent(jobErr) || job.Attempts >= self.Config.Queue.MaxAttempts

	err := task.NewRetry().
		WithContext(self.Ctx).
		WithMaxElapsedTime(self.Config.Redis.MaxElapsedTime).
		WithMaxInterval(self.Config.Redis.MaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			self.Log.WithError(err).WithField("job_id", job.ID).Error("Failed to nack job, retrying")
			return err
		}).
		Run(func() (err error) {
			pipe := self.client.TxPipeline()
			pipe.Set(self.Ctx, self.keys.job(job.ID), job, 0)
			pipe.LRem(self.Ctx, self.keys.active, 1, job.ID)
			pipe.Del(self.Ctx, self.keys.lease(job.ID))
			if isDead {
				pipe.LPush(self.Ctx, self.keys.dead, job.ID)
			} else {
				pipe.ZAdd(self.Ctx, self.keys.delayed, redis.Z{
					Score:  float64(time.Now().Add(self.retryDelay(job.Attempts)).UnixMilli()),
					Member: job.ID,
				})
			}
			_, err = pipe.Exec(self.Ctx)
			return
		})
	if err != nil {
		self.monitor.GetReport().Queue.Errors.Nack.Inc()
		return
	}

	if isDead {
		self.monitor.GetReport().Queue.State.JobsDeadLettered.Inc()
		self.emit(EventFailed, job, jobErr)
		self.Log.WithField("job_id", job.ID).
			WithField("attempts", job.Attempts).
			WithError(jobErr).
			Error("Job dead-lettered")
	} else {
		self.monitor.GetReport().Queue.State.JobsRetried.Inc()
		self.Log.WithField("job_id", job.ID).
			WithField("attempts", job.Attempts).
			WithError(jobErr).
			Warn("Job failed, scheduled for redelivery")
	}
}

// Moves a job that can't be processed off the active list
func (self *Consumer) deadLetter(id string) {
	pipe := self.client.TxPipeline()
	pipe.LRem(self.Ctx, self.keys.active, 1, id)
	pipe.Del(self.Ctx, self.keys.lease(id))
	pipe.LPush(self.Ctx, self.keys.dead, id)
	_, err := pipe.Exec(self.Ctx)
	if err != nil {
		self.Log.WithError(err).WithField("job_id", id).Error("Failed to dead-letter job")
		return
	}
	self.monitor.GetReport().Queue.State.JobsDeadLettered.Inc()
}

// Delay before the next delivery, doubles per attempt up to the configured cap
func (self *Consumer) retryDelay(attempts int) time.Duration {
	delay := self.Config.Queue.RetryBaseDelay
	for i := 1; i < attempts; i += 1 {
		delay *= 2
		if delay >= self.Config.Queue.RetryMaxDelay {
			return self.Config.Queue.RetryMaxDelay
		}
	}
	return delay
}

// Moves due delayed jobs back onto the wait queue. The per-id move is a
// single script call, concurrent schedulers never double-promote.
func (self *Consumer) promoteDelayed() (err error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	ids, err := self.client.ZRangeByScore(self.Ctx, self.keys.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		if self.Ctx.Err() != nil {
			return nil
		}
		self.monitor.GetReport().Queue.Errors.Scheduler.Inc()
		self.Log.WithError(err).Error("Failed to list due delayed jobs")
		return nil
	}

	for _, id := range ids {
		// removed == 0 means someone else promoted it first
		_, err := promoteScript.Run(self.Ctx, self.client, []string{self.keys.delayed, self.keys.wait}, id).Int()
		if err != nil {
			self.monitor.GetReport().Queue.Errors.Scheduler.Inc()
			self.Log.WithError(err).WithField("job_id", id).Error("Failed to promote delayed job")
		}
	}

	return nil
}

// Requeues jobs sitting on the active list without a live lease.
// Covers consumers that crashed mid-processing.
func (self *Consumer) janitor() (err error) {
	ids, err := self.client.LRange(self.Ctx, self.keys.active, 0, -1).Result()
	if err != nil {
		if self.Ctx.Err() != nil {
			return nil
		}
		self.monitor.GetReport().Queue.Errors.Janitor.Inc()
		self.Log.WithError(err).Error("Failed to list active jobs")
		return nil
	}

	for _, id := range ids {
		requeued, err := requeueScript.Run(self.Ctx, self.client, []string{self.keys.lease(id), self.keys.active, self.keys.wait}, id).Int()
		if err != nil {
			self.monitor.GetReport().Queue.Errors.Janitor.Inc()
			self.Log.WithError(err).WithField("job_id", id).Error("Failed to requeue job")
			continue
		}
		if requeued == 0 {
			// Lease is still live or another janitor got there first
			continue
		}
		self.monitor.GetReport().Queue.State.JobsRequeued.Inc()
		self.Log.WithField("job_id", id).Warn("Requeued a job with an expired lease")
	}

	return nil
}

func (self *Consumer) emit(name EventName, job *Job, jobErr error) {
	select {
	case self.events <- newJobEvent(name, job, jobErr):
	default:
		self.Log.WithField("event", string(name)).Debug("Event channel full, dropping event")
	}
}
