package broker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans messages out through Redis pub/sub so that every backend
// instance sharing the Redis server sees every published response.
type RedisBroker struct {
	client *redis.Client
	prefix string

	mu   sync.Mutex
	subs map[*Subscription]*redis.PubSub
}

// NewRedisBroker connects to the Redis server at url and verifies it with PING.
func NewRedisBroker(ctx context.Context, url, prefix string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBroker{
		client: client,
		prefix: prefix,
		subs:   make(map[*Subscription]*redis.PubSub),
	}, nil
}

func (b *RedisBroker) channel(topic string) string {
	return b.prefix + topic
}

// Publish sends payload to the Redis channel backing topic.
func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel(topic), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a Redis subscription and waits for its confirmation, so a
// message published after Subscribe returns is always delivered.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	sub := newSubscription(topic, defaultSubscriptionBuffer)
	sub.onClose = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		if err := pubsub.Close(); err != nil {
			log.Printf("[broker] close redis subscription %s: %v", topic, err)
		}
	}

	b.mu.Lock()
	b.subs[sub] = pubsub
	b.mu.Unlock()

	go b.forward(pubsub, sub)
	return sub, nil
}

func (b *RedisBroker) forward(pubsub *redis.PubSub, sub *Subscription) {
	ch := pubsub.Channel()
	for {
		select {
		case <-sub.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				sub.Close()
				return
			}
			if err := sub.deliver(context.Background(), []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}

// Close ends all subscriptions and the Redis client.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return b.client.Close()
}
