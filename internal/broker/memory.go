package broker

import (
	"context"
	"sync"
)

const defaultSubscriptionBuffer = 64

// MemoryBroker fans messages out inside a single process.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

// NewMemoryBroker creates an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[*Subscription]struct{})}
}

// Publish delivers payload to every current subscriber of topic.
func (b *MemoryBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]*Subscription, 0, len(b.topics[topic]))
	for sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.deliver(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a new subscriber on topic.
func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (*Subscription, error) {
	sub := newSubscription(topic, defaultSubscriptionBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*Subscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}

	sub.onClose = func() { b.remove(sub) }
	return sub, nil
}

// Subscribers reports how many subscriptions topic currently has.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*Subscription
	for _, set := range b.topics {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	b.topics = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

func (b *MemoryBroker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.topics[sub.Topic]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.topics, sub.Topic)
	}
}
