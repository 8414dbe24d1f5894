package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrBrokerClosed is returned by a MemoryBroker after Close.
var ErrBrokerClosed = errors.New("memory broker closed")

// MemoryBroker delivers messages in process. Messages published before a
// subscriber attaches are buffered per channel; a nacked message is dropped.
// Channel buffers are never closed, so Close can race with Publish safely.
type MemoryBroker struct {
	mu        sync.Mutex
	queues    map[string]chan Message
	done      chan struct{}
	closeOnce sync.Once
	capacity  int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues:   make(map[string]chan Message),
		done:     make(chan struct{}),
		capacity: 256,
	}
}

// Publish enqueues the message, blocking while the channel buffer is full.
func (b *MemoryBroker) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	queue, err := b.queue(channel)
	if err != nil {
		return "", err
	}

	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case queue <- msg:
		return msg.ID, nil
	case <-b.done:
		return "", ErrBrokerClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Subscribe runs handler for each message until ctx is done or the broker
// is closed.
func (b *MemoryBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}
	queue, err := b.queue(channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrBrokerClosed
		case msg := <-queue:
			_ = handler(ctx, msg)
		}
	}
}

func (b *MemoryBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	return nil
}

func (b *MemoryBroker) queue(channel string) (chan Message, error) {
	select {
	case <-b.done:
		return nil, ErrBrokerClosed
	default:
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	queue, ok := b.queues[channel]
	if !ok {
		queue = make(chan Message, b.capacity)
		b.queues[channel] = queue
	}
	return queue, nil
}
