package config

import (
	"time"

	"github.com/spf13/viper"
)

type Queue struct {
	// Common prefix for all Redis keys owned by the queue
	Prefix string

	// Pub/sub channel for job lifecycle events
	EventsChannel string

	// How long a claimed job stays invisible to other consumers.
	// A job whose lease expired without an ack is requeued by the janitor.
	VisibilityTimeout time.Duration

	// Max delivery attempts before the job is dead-lettered
	MaxAttempts int

	// Exponential backoff between redeliveries
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Max time a single blocking claim waits before polling again
	ClaimBlockTimeout time.Duration

	// How often expired leases are checked
	JanitorInterval time.Duration

	// How often delayed jobs are promoted back to the wait queue
	SchedulerInterval time.Duration

	// Num of workers processing claimed jobs
	MaxWorkers int

	// Max num of claimed jobs waiting for a worker
	MaxQueueSize int
}

func setQueueDefaults() {
	viper.SetDefault("Queue.Prefix", "recy:evidence")
	viper.SetDefault("Queue.EventsChannel", "recy:evidence:events")
	viper.SetDefault("Queue.VisibilityTimeout", "5m")
	viper.SetDefault("Queue.MaxAttempts", "5")
	viper.SetDefault("Queue.RetryBaseDelay", "5s")
	viper.SetDefault("Queue.RetryMaxDelay", "5m")
	viper.SetDefault("Queue.ClaimBlockTimeout", "5s")
	viper.SetDefault("Queue.JanitorInterval", "30s")
	viper.SetDefault("Queue.SchedulerInterval", "5s")
	viper.SetDefault("Queue.MaxWorkers", "3")
	viper.SetDefault("Queue.MaxQueueSize", "1")
}
