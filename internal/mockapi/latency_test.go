package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatency(t *testing.T) {
	t.Run("zero scale returns immediately", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Latency{}.Delay(context.Background(), time.Hour))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("waits scaled duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Latency{Scale: 0.01}.Delay(context.Background(), time.Second))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Latency{Scale: 1}.Delay(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("call returns the value", func(t *testing.T) {
		v, err := Call(context.Background(), NoDelay, 42, DefaultDelay)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})
}
