package broker

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once a broker has been closed.
var ErrClosed = errors.New("broker closed")

// Broker publishes payloads to topics and fans them out to subscribers.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

// Subscription receives the payloads published to one topic, in publish order.
type Subscription struct {
	Topic string

	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()
}

func newSubscription(topic string, buffer int) *Subscription {
	return &Subscription{
		Topic: topic,
		ch:    make(chan []byte, buffer),
		done:  make(chan struct{}),
	}
}

// C returns the delivery channel. It is never closed; use Done to stop reading.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Subscription) deliver(ctx context.Context, payload []byte) error {
	select {
	case s.ch <- payload:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
