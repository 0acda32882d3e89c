package task

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/detrash/recy-pipeline/src/utils/config"

	"github.com/stretchr/testify/require"
)

// StopWait blocks until every subtask finished, not just until the stop
// signal got delivered.
func TestStopWaitDrainsSubtasks(t *testing.T) {
	var finished atomic.Bool

	tsk := NewTask(config.Default(), "drain-test")
	tsk.WithSubtaskFunc(func() error {
		<-tsk.StopChannel
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	require.Nil(t, tsk.Start())
	tsk.StopWait()
	require.True(t, finished.Load())
}

// Jobs already handed to the worker pool finish before StopWait returns
func TestStopWaitDrainsWorkerPool(t *testing.T) {
	var finished atomic.Bool

	tsk := NewTask(config.Default(), "pool-drain-test")
	tsk.WithWorkerPool(1, 1).
		WithSubtaskFunc(func() error {
			<-tsk.StopChannel
			return nil
		})

	require.Nil(t, tsk.Start())
	tsk.SubmitToWorker(func() {
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	})

	tsk.StopWait()
	require.True(t, finished.Load())
}

func TestWatchdogRestartsUnhealthyTask(t *testing.T) {
	var starts atomic.Int32
	var restarts atomic.Int32
	var healthy atomic.Bool

	watchdog := NewWatchdog(config.Default()).
		WithTask(func() *Task {
			starts.Add(1)
			tsk := NewTask(config.Default(), "watched-test")
			tsk.WithSubtaskFunc(func() error {
				<-tsk.StopChannel
				return nil
			})
			return tsk
		}).
		WithIsOK(20*time.Millisecond, func() bool {
			isOK := healthy.Load()
			if !isOK {
				restarts.Add(1)
				healthy.Store(true)
			}
			return isOK
		})

	require.Nil(t, watchdog.Start())
	require.Eventually(t, func() bool {
		return starts.Load() == 2
	}, 5*time.Second, 10*time.Millisecond)

	watchdog.StopWait()
	require.EqualValues(t, 1, restarts.Load())
}
