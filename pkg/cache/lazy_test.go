package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLazy_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	lazy := NewLazy(func() (string, error) {
		calls.Add(1)
		<-release
		return "engine", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := lazy.Get()
			require.NoError(t, err)
			require.Equal(t, "engine", got)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.True(t, lazy.Loaded())
	_, _ = lazy.Get()
	require.Equal(t, int32(1), calls.Load())
}

func TestLazy_RetriesAfterFailure(t *testing.T) {
	attempts := 0
	lazy := NewLazy(func() (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("not yet")
		}
		return 7, nil
	})

	_, err := lazy.Get()
	require.Error(t, err)
	require.False(t, lazy.Loaded())

	got, err := lazy.Get()
	require.NoError(t, err)
	require.Equal(t, 7, got)
}
