package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(3, 8)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		sum      atomic.Int64
		failures atomic.Int64
	)
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		require.NoError(t, js.Submit(metadata.JobTask{
			InputParams: i,
			OnStart: func(params interface{}, out chan<- interface{}) error {
				n := params.(int)
				if n%5 == 0 {
					return errors.New("multiple of five")
				}
				out <- n * 2
				return nil
			},
			OnComplete: func(result interface{}) {
				sum.Add(int64(result.(int)))
			},
			OnFailure: func(result interface{}) {
				failures.Add(1)
			},
			OnCompletionCallback: wg.Done,
		}))
	}
	wg.Wait()
	require.NoError(t, js.Shutdown())

	// 2*(1+...+10) minus the failed 5 and 10
	assert.Equal(t, int64(80), sum.Load())
	assert.Equal(t, int64(2), failures.Load())
	assert.ErrorIs(t, js.Submit(metadata.JobTask{}), ErrJobSystemClosed)
	assert.NoError(t, js.Shutdown())
}

func TestNewJobSystemValidates(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}
