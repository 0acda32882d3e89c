package report

import (
	"go.uber.org/atomic"
)

type QueueErrors struct {
	Enqueue   atomic.Int64 `json:"enqueue"`
	Claim     atomic.Int64 `json:"claim"`
	Ack       atomic.Int64 `json:"ack"`
	Nack      atomic.Int64 `json:"nack"`
	Scheduler atomic.Int64 `json:"scheduler"`
	Janitor   atomic.Int64 `json:"janitor"`

	// Jobs whose payload could not be decoded, they go straight to the dead letter list
	MalformedJobs atomic.Int64 `json:"malformed_jobs"`
}

type QueueState struct {
	JobsEnqueued     atomic.Uint64 `json:"jobs_enqueued"`
	JobsClaimed      atomic.Uint64 `json:"jobs_claimed"`
	JobsCompleted    atomic.Uint64 `json:"jobs_completed"`
	JobsRetried      atomic.Uint64 `json:"jobs_retried"`
	JobsDeadLettered atomic.Uint64 `json:"jobs_dead_lettered"`
	JobsRequeued     atomic.Uint64 `json:"jobs_requeued"`

	// Unix time of the last wait queue poll, used by the health check
	LastPollTimestamp atomic.Int64 `json:"last_poll_timestamp"`
}

type QueueReport struct {
	State  QueueState  `json:"state"`
	Errors QueueErrors `json:"errors"`
}
