package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tableturn/forecaster/common/logger"
	redisclient "github.com/tableturn/forecaster/common/redis"
)

var (
	// ErrClosed is returned when publishing to or subscribing on a closed queue
	ErrClosed = errors.New("queue closed")
	// ErrQueueFull is returned when a topic cannot take another message
	ErrQueueFull = errors.New("queue full")
	// ErrPermanent marks a handler failure that redelivery cannot fix
	ErrPermanent = errors.New("permanent failure")
)

// RedisStreamQueue publishes to Redis streams (one stream per topic) and
// consumes them through a consumer group. A message is acked once handled or
// permanently failed; other failures stay pending and are claimed again
// after claimIdle.
type RedisStreamQueue struct {
	client       *redisclient.Client
	log          *logger.Logger
	group        string
	consumer     string
	batchSize    int64
	blockTimeout time.Duration
	claimIdle    time.Duration

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewRedisStreamQueue creates a stream-backed queue
func NewRedisStreamQueue(client *redisclient.Client, group string, batchSize int, blockTimeout, claimIdle time.Duration, log *logger.Logger) *RedisStreamQueue {
	if batchSize <= 0 {
		batchSize = 10
	}
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	return &RedisStreamQueue{
		client:       client,
		log:          log,
		group:        group,
		consumer:     fmt.Sprintf("%s_%d", group, time.Now().UnixNano()),
		batchSize:    int64(batchSize),
		blockTimeout: blockTimeout,
		claimIdle:    claimIdle,
	}
}

// Publish appends the message to the topic's stream
func (q *RedisStreamQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	_, err := q.client.AddToStream(ctx, topic, map[string]interface{}{
		"key":     key,
		"payload": string(message),
	})
	return err
}

// Subscribe starts a consumer loop on topic until ctx ends
func (q *RedisStreamQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	if err := q.client.EnsureStreamGroup(ctx, topic, q.group); err != nil {
		return err
	}

	q.log.Info("subscribing to stream",
		"stream", topic,
		"consumer_group", q.group,
		"consumer_name", q.consumer)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		lastClaim := time.Now()
		for {
			select {
			case <-ctx.Done():
				q.log.Info("stream consumer stopping", "stream", topic)
				return
			default:
				if time.Since(lastClaim) >= q.claimIdle {
					lastClaim = time.Now()
					if err := q.reclaim(ctx, topic, handler); err != nil && ctx.Err() == nil {
						q.log.Error("failed to reclaim pending messages", "stream", topic, "error", err)
					}
				}
				if err := q.readBatch(ctx, topic, handler); err != nil {
					if ctx.Err() != nil {
						return
					}
					q.log.Error("failed to read stream", "stream", topic, "error", err)
					time.Sleep(1 * time.Second)
				}
			}
		}
	}()

	return nil
}

func (q *RedisStreamQueue) readBatch(ctx context.Context, topic string, handler MessageHandler) error {
	streams, err := q.client.ReadFromStreamGroup(ctx, q.group, q.consumer, topic, q.batchSize, q.blockTimeout)
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			q.deliver(ctx, topic, message, handler)
		}
	}
	return nil
}

// reclaim redelivers messages whose earlier handling failed or whose
// consumer died before acking
func (q *RedisStreamQueue) reclaim(ctx context.Context, topic string, handler MessageHandler) error {
	messages, err := q.client.ClaimPendingMessages(ctx, topic, q.group, q.consumer, q.claimIdle, q.batchSize)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		q.log.Info("reclaimed pending messages", "stream", topic, "count", len(messages))
	}
	for _, message := range messages {
		q.deliver(ctx, topic, message, handler)
	}
	return nil
}

func (q *RedisStreamQueue) deliver(ctx context.Context, topic string, message goredis.XMessage, handler MessageHandler) {
	key, _ := message.Values["key"].(string)
	payload, ok := message.Values["payload"].(string)

	var err error
	if !ok {
		err = fmt.Errorf("%w: message missing payload", ErrPermanent)
	} else {
		err = handler(ctx, key, []byte(payload))
	}
	if err != nil {
		q.log.Error("message handler error", "stream", topic, "message_id", message.ID, "error", err)
	}

	if !Settled(err) {
		return
	}
	_ = q.client.AckStreamMessage(ctx, topic, q.group, message.ID)
}

// Settled reports whether a message handled with err is done with: it
// succeeded, or failed in a way redelivery cannot fix
func Settled(err error) bool {
	return err == nil || errors.Is(err, ErrPermanent)
}

// Backlog returns the number of delivered but unacked messages on topic,
// which includes failed tasks waiting to be reclaimed
func (q *RedisStreamQueue) Backlog(ctx context.Context, topic string) (int64, error) {
	return q.client.PendingCount(ctx, topic, q.group)
}

// Close waits for consumer loops to exit. Callers cancel the subscribe context first.
func (q *RedisStreamQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
