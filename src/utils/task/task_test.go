package task

import (
	"testing"
	"time"

	"github.com/solignition/ignitor/src/utils/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestStartIsIdempotent(t *testing.T) {
	var armed atomic.Int32

	task := NewTask(config.Default(), "test-task")
	task.WithSubtaskFunc(func() error {
		armed.Inc()
		<-task.StopChannel
		return nil
	})

	require.NoError(t, task.Start())
	require.NoError(t, task.Start())
	time.Sleep(50 * time.Millisecond)

	require.EqualValues(t, 1, armed.Load())

	task.StopWait()
}

func TestPeriodicSubtaskStartedOnce(t *testing.T) {
	var sweeps atomic.Int32

	task := NewTask(config.Default(), "test-task")
	task.WithPeriodicSubtaskFunc(time.Hour, func() error {
		sweeps.Inc()
		return nil
	})

	require.NoError(t, task.Start())
	require.NoError(t, task.Start())
	time.Sleep(50 * time.Millisecond)

	// A second timer loop would run the first sweep again
	require.EqualValues(t, 1, sweeps.Load())

	task.StopWait()
}

func TestStopIsIdempotent(t *testing.T) {
	task := NewTask(config.Default(), "test-task")
	task.WithSubtaskFunc(func() error {
		<-task.StopChannel
		return nil
	})

	require.NoError(t, task.Start())
	task.Stop()
	require.NotPanics(t, task.Stop)
	task.StopWait()
}
