package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/tableturn/forecaster/common/logger"
)

// TopicRollupRecompute carries models.RecomputeTask payloads
const TopicRollupRecompute = "rollup.recompute"

// MemoryTopicCapacity is how many unconsumed messages a MemoryQueue topic holds
const MemoryTopicCapacity = 1000

// Queue interface for message passing
type Queue interface {
	Publish(ctx context.Context, topic string, key string, message []byte) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}

// Backlogger is implemented by queues that can report unfinished work on a topic
type Backlogger interface {
	Backlog(ctx context.Context, topic string) (int64, error)
}

// MessageHandler processes messages
type MessageHandler func(ctx context.Context, key string, value []byte) error

// Message represents a queue message
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// MemoryQueue is an in-process queue used in development and tests
type MemoryQueue struct {
	topics map[string]chan *Message
	closed bool
	mu     sync.RWMutex
	log    *logger.Logger
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(log *logger.Logger) *MemoryQueue {
	return &MemoryQueue{
		topics: make(map[string]chan *Message),
		log:    log,
	}
}

func (q *MemoryQueue) topic(name string) chan *Message {
	ch, exists := q.topics[name]
	if !exists {
		ch = make(chan *Message, MemoryTopicCapacity)
		q.topics[name] = ch
	}
	return ch
}

// Publish publishes a message to a topic. A full topic rejects the message
// with ErrQueueFull.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	msg := &Message{
		Topic: topic,
		Key:   key,
		Value: message,
	}

	select {
	case q.topic(topic) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		q.log.Warn("queue full, rejecting message", "topic", topic, "key", key)
		return fmt.Errorf("%w: topic %s", ErrQueueFull, topic)
	}
}

// Subscribe processes messages on topic in a goroutine until ctx ends
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	ch := q.topic(topic)
	q.mu.Unlock()

	q.log.Info("subscribing to topic", "topic", topic)

	go func() {
		for {
			select {
			case <-ctx.Done():
				q.log.Info("subscription cancelled", "topic", topic)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				// no redelivery in process; the handler owns retries
				if err := handler(ctx, msg.Key, msg.Value); err != nil {
					q.log.Error("message handler error", "topic", topic, "key", msg.Key, "error", err)
				}
			}
		}
	}()

	return nil
}

// Backlog returns how many messages on topic are waiting for a subscriber
func (q *MemoryQueue) Backlog(ctx context.Context, topic string) (int64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	ch, ok := q.topics[topic]
	if !ok {
		return 0, nil
	}
	return int64(len(ch)), nil
}

// Close closes the queue
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for topic, ch := range q.topics {
		close(ch)
		q.log.Info("closed topic", "topic", topic)
	}

	return nil
}
