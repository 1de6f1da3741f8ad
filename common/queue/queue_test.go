package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableturn/forecaster/common/logger"
)

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	q := NewMemoryQueue(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	require.NoError(t, q.Subscribe(ctx, TopicRollupRecompute, func(ctx context.Context, key string, value []byte) error {
		got <- key + ":" + string(value)
		return nil
	}))

	require.NoError(t, q.Publish(ctx, TopicRollupRecompute, "loc-1", []byte("a")))
	require.NoError(t, q.Publish(ctx, TopicRollupRecompute, "loc-2", []byte("b")))

	for _, want := range []string{"loc-1:a", "loc-2:b"} {
		select {
		case v := <-got:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestMemoryQueue_Closed(t *testing.T) {
	q := NewMemoryQueue(logger.Discard())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Publish(context.Background(), "t", "k", nil), ErrClosed)
	assert.ErrorIs(t, q.Subscribe(context.Background(), "t", nil), ErrClosed)
}

func TestMemoryQueue_FullTopicRejects(t *testing.T) {
	q := NewMemoryQueue(logger.Discard())
	ctx := context.Background()

	for i := 0; i < MemoryTopicCapacity; i++ {
		require.NoError(t, q.Publish(ctx, TopicRollupRecompute, fmt.Sprintf("loc-%d", i), []byte("{}")))
	}

	err := q.Publish(ctx, TopicRollupRecompute, "loc-overflow", []byte("{}"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestSettled(t *testing.T) {
	assert.True(t, Settled(nil))
	assert.True(t, Settled(fmt.Errorf("%w: bad payload", ErrPermanent)))
	assert.False(t, Settled(errors.New("connection refused")))
}
