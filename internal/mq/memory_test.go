package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/socialnet/apiserver/config"
)

func TestMemoryBrokerDeliversInOrder(t *testing.T) {
	broker := New(NewMemoryBroker())
	defer broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, body := range []string{"one", "two", "three"} {
		if _, err := broker.Publish(ctx, "events", []byte(body), map[string]string{"type": body}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	var got []string
	subCtx, stop := context.WithCancel(ctx)
	err := broker.Subscribe(subCtx, "events", func(_ context.Context, msg Message) error {
		got = append(got, string(msg.Data))
		if msg.Attributes["type"] != string(msg.Data) {
			t.Errorf("attributes not delivered: %v", msg.Attributes)
		}
		if len(got) == 3 {
			stop()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestMemoryBrokerRejectsEmptyChannel(t *testing.T) {
	broker := NewMemoryBroker()
	if _, err := broker.Publish(context.Background(), " ", nil, nil); err == nil {
		t.Fatalf("expected error for empty channel")
	}
}

func TestMemoryBrokerClose(t *testing.T) {
	broker := NewMemoryBroker()
	if err := broker.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := broker.Publish(context.Background(), "events", []byte("x"), nil); !errors.Is(err, ErrBrokerClosed) {
		t.Fatalf("expected ErrBrokerClosed, got %v", err)
	}
}

func TestMemoryBrokerCloseDuringPublish(t *testing.T) {
	broker := NewMemoryBroker()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Well past the buffer so some publishers block when Close runs.
			for j := 0; j < 100; j++ {
				if _, err := broker.Publish(ctx, "events", []byte("x"), nil); err != nil {
					if !errors.Is(err, ErrBrokerClosed) {
						t.Errorf("unexpected publish error: %v", err)
					}
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	if err := broker.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()
}

func TestMemoryBrokerCloseStopsSubscriber(t *testing.T) {
	broker := NewMemoryBroker()
	errCh := make(chan error, 1)
	go func() {
		errCh <- broker.Subscribe(context.Background(), "events", func(context.Context, Message) error { return nil })
	}()

	time.Sleep(10 * time.Millisecond)
	_ = broker.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrBrokerClosed) {
			t.Fatalf("expected ErrBrokerClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("subscriber did not stop after Close")
	}
}

func TestOpen(t *testing.T) {
	queue, err := Open(context.Background(), config.MQConfig{Backend: config.MQNone})
	if err != nil || queue != nil {
		t.Fatalf("none backend should yield nil queue, got %v, %v", queue, err)
	}
	queue, err = Open(context.Background(), config.MQConfig{Backend: config.MQMemory})
	if err != nil || queue == nil {
		t.Fatalf("memory backend: %v", err)
	}
	_ = queue.Close()
	if _, err := Open(context.Background(), config.MQConfig{Backend: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
