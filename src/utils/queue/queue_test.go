package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/detrash/recy-pipeline/src/utils/config"
	monitor_evidence "github.com/detrash/recy-pipeline/src/utils/monitoring/evidence"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestQueueTestSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

type QueueTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	redis    *miniredis.Miniredis
	config   *config.Config
	monitor  *monitor_evidence.Monitor
	producer *Producer
	consumer *Consumer
}

func (s *QueueTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	var err error
	s.redis, err = miniredis.Run()
	require.Nil(s.T(), err)

	s.config = config.Default()
	s.config.Redis.Host = s.redis.Host()
	port, err := strconv.Atoi(s.redis.Port())
	require.Nil(s.T(), err)
	s.config.Redis.Port = uint16(port)

	// Tight timings so tests don't wait for production intervals
	s.config.Queue.ClaimBlockTimeout = 50 * time.Millisecond
	s.config.Queue.RetryBaseDelay = 10 * time.Millisecond
	s.config.Queue.RetryMaxDelay = 50 * time.Millisecond
	s.config.Queue.SchedulerInterval = 20 * time.Millisecond
	s.config.Queue.JanitorInterval = 20 * time.Millisecond

	s.monitor = monitor_evidence.NewMonitor()
	require.Nil(s.T(), s.monitor.Start())
}

func (s *QueueTestSuite) TearDownTest() {
	if s.consumer != nil {
		s.consumer.StopWait()
		s.consumer = nil
	}
	if s.producer != nil {
		s.producer.StopWait()
		s.producer = nil
	}
	s.monitor.StopWait()
	s.redis.Close()
	s.cancel()
}

func (s *QueueTestSuite) startProducer() *Producer {
	s.producer = NewProducer(s.config).WithMonitor(s.monitor)
	require.Nil(s.T(), s.producer.Start())
	return s.producer
}

func (s *QueueTestSuite) startConsumer(handler Handler) *Consumer {
	s.consumer = NewConsumer(s.config).
		WithMonitor(s.monitor).
		WithHandler(KindReportEvidence, handler)
	require.Nil(s.T(), s.consumer.Start())
	return s.consumer
}

func evidenceJob(reportId string) *Job {
	return &Job{
		Kind: KindReportEvidence,
		Evidence: &EvidencePayload{
			ReportID: reportId,
			User:     UserSnapshot{ID: "user-1", Email: "user@example.com"},
		},
	}
}

func (s *QueueTestSuite) TestValidate() {
	err := (&Job{Kind: "no-such-kind"}).Validate()
	require.NotNil(s.T(), err)

	err = (&Job{Kind: KindReportEvidence}).Validate()
	require.NotNil(s.T(), err)

	err = evidenceJob("report-1").Validate()
	require.Nil(s.T(), err)
}

func (s *QueueTestSuite) TestEnqueueClaimAck() {
	var mtx sync.Mutex
	var handled []string
	s.startConsumer(func(ctx context.Context, job *Job) error {
		mtx.Lock()
		defer mtx.Unlock()
		handled = append(handled, job.ReportID())
		return nil
	})

	producer := s.startProducer()
	id, err := producer.Enqueue(s.ctx, evidenceJob("report-1"))
	require.Nil(s.T(), err)
	require.NotEmpty(s.T(), id)

	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Queue.State.JobsCompleted.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	mtx.Lock()
	require.Equal(s.T(), []string{"report-1"}, handled)
	mtx.Unlock()

	// Every trace of the job is gone
	keys := newKeys(s.config.Queue.Prefix)
	require.False(s.T(), s.redis.Exists(keys.job(id)))
	require.False(s.T(), s.redis.Exists(keys.lease(id)))
	require.False(s.T(), s.redis.Exists(keys.active))
}

func (s *QueueTestSuite) TestRetryAfterFailure() {
	var mtx sync.Mutex
	attempts := 0
	s.startConsumer(func(ctx context.Context, job *Job) error {
		mtx.Lock()
		defer mtx.Unlock()
		attempts += 1
		if attempts == 1 {
			return errors.New("transient failure")
		}
		return nil
	})

	producer := s.startProducer()
	_, err := producer.Enqueue(s.ctx, evidenceJob("report-2"))
	require.Nil(s.T(), err)

	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Queue.State.JobsCompleted.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.EqualValues(s.T(), 1, s.monitor.Report.Queue.State.JobsRetried.Load())
	require.EqualValues(s.T(), 0, s.monitor.Report.Queue.State.JobsDeadLettered.Load())
}

func (s *QueueTestSuite) TestDeadLetterAfterMaxAttempts() {
	s.config.Queue.MaxAttempts = 2

	s.startConsumer(func(ctx context.Context, job *Job) error {
		return errors.New("always failing")
	})

	producer := s.startProducer()
	id, err := producer.Enqueue(s.ctx, evidenceJob("report-3"))
	require.Nil(s.T(), err)

	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Queue.State.JobsDeadLettered.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	keys := newKeys(s.config.Queue.Prefix)
	dead, err := s.redis.List(keys.dead)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{id}, dead)

	// The stored job keeps the failure context for inspection
	require.True(s.T(), s.redis.Exists(keys.job(id)))
}

func (s *QueueTestSuite) TestPermanentErrorSkipsRetries() {
	var mtx sync.Mutex
	attempts := 0
	s.startConsumer(func(ctx context.Context, job *Job) error {
		mtx.Lock()
		defer mtx.Unlock()
		attempts += 1
		return Permanent(errors.New("report does not exist"))
	})

	producer := s.startProducer()
	_, err := producer.Enqueue(s.ctx, evidenceJob("report-4"))
	require.Nil(s.T(), err)

	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Queue.State.JobsDeadLettered.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	mtx.Lock()
	require.Equal(s.T(), 1, attempts)
	mtx.Unlock()
	require.EqualValues(s.T(), 0, s.monitor.Report.Queue.State.JobsRetried.Load())
}

func (s *QueueTestSuite) TestJanitorRequeuesAbandonedJob() {
	// Simulate a consumer that crashed mid-processing: the job id sits on
	// the active list, the job body is stored, no lease exists
	job := evidenceJob("report-5")
	job.ID = "abandoned-job"
	data, err := job.MarshalBinary()
	require.Nil(s.T(), err)

	keys := newKeys(s.config.Queue.Prefix)
	require.Nil(s.T(), s.redis.Set(keys.job(job.ID), string(data)))
	s.redis.Lpush(keys.active, job.ID)

	s.startConsumer(func(ctx context.Context, job *Job) error {
		return nil
	})

	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Queue.State.JobsCompleted.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.EqualValues(s.T(), 1, s.monitor.Report.Queue.State.JobsRequeued.Load())
}

func (s *QueueTestSuite) TestMalformedJobIsDeadLettered() {
	keys := newKeys(s.config.Queue.Prefix)
	require.Nil(s.T(), s.redis.Set(keys.job("bad-job"), "this is not json"))
	s.redis.Lpush(keys.wait, "bad-job")

	s.startConsumer(func(ctx context.Context, job *Job) error {
		s.T().Error("handler must not run for a malformed job")
		return nil
	})

	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Queue.Errors.MalformedJobs.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	dead, err := s.redis.List(keys.dead)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{"bad-job"}, dead)
}

func (s *QueueTestSuite) TestCompletedEventIsEmitted() {
	s.startConsumer(func(ctx context.Context, job *Job) error {
		return nil
	})
	events := s.consumer.Events()

	producer := s.startProducer()
	id, err := producer.Enqueue(s.ctx, evidenceJob("report-6"))
	require.Nil(s.T(), err)

	seen := make(map[EventName]bool)
	deadline := time.After(5 * time.Second)
	for !seen[EventCompleted] {
		select {
		case event := <-events:
			require.Equal(s.T(), id, event.JobID)
			require.Equal(s.T(), "report-6", event.ReportID)
			seen[event.Event] = true
		case <-deadline:
			s.T().Fatal("timed out waiting for the completed event")
		}
	}
	require.True(s.T(), seen[EventActive])
}

// A promoted id must never exist outside both the delayed set and the wait
// queue, so the move happens in a single script call
func (s *QueueTestSuite) TestPromoteMovesJobInOneCall() {
	client, err := Connect(s.ctx, s.config, "test")
	require.Nil(s.T(), err)
	defer client.Close()

	keys := newKeys(s.config.Queue.Prefix)
	due := float64(time.Now().Add(-time.Second).UnixMilli())
	require.Nil(s.T(), client.ZAdd(s.ctx, keys.delayed, redis.Z{Score: due, Member: "job-9"}).Err())

	promoted, err := promoteScript.Run(s.ctx, client, []string{keys.delayed, keys.wait}, "job-9").Int()
	require.Nil(s.T(), err)
	require.Equal(s.T(), 1, promoted)

	wait, err := s.redis.List(keys.wait)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{"job-9"}, wait)
	require.False(s.T(), s.redis.Exists(keys.delayed))

	// A concurrent scheduler lost the race, nothing gets pushed twice
	promoted, err = promoteScript.Run(s.ctx, client, []string{keys.delayed, keys.wait}, "job-9").Int()
	require.Nil(s.T(), err)
	require.Equal(s.T(), 0, promoted)

	wait, err = s.redis.List(keys.wait)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{"job-9"}, wait)
}

func (s *QueueTestSuite) TestRequeueHonorsLiveLease() {
	client, err := Connect(s.ctx, s.config, "test")
	require.Nil(s.T(), err)
	defer client.Close()

	keys := newKeys(s.config.Queue.Prefix)
	s.redis.Lpush(keys.active, "job-10")
	require.Nil(s.T(), client.Set(s.ctx, keys.lease("job-10"), 1, time.Minute).Err())

	// Live lease, the job stays with its consumer
	requeued, err := requeueScript.Run(s.ctx, client, []string{keys.lease("job-10"), keys.active, keys.wait}, "job-10").Int()
	require.Nil(s.T(), err)
	require.Equal(s.T(), 0, requeued)

	active, err := s.redis.List(keys.active)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{"job-10"}, active)

	// Expired lease, the job moves back to the wait queue in one call
	s.redis.Del(keys.lease("job-10"))
	requeued, err = requeueScript.Run(s.ctx, client, []string{keys.lease("job-10"), keys.active, keys.wait}, "job-10").Int()
	require.Nil(s.T(), err)
	require.Equal(s.T(), 1, requeued)

	wait, err := s.redis.List(keys.wait)
	require.Nil(s.T(), err)
	require.Equal(s.T(), []string{"job-10"}, wait)
	require.False(s.T(), s.redis.Exists(keys.active))
}
