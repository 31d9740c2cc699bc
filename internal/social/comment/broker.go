// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/polutek/tingtong/internal/platform/constants"
)

// # Live Event Fan-out

// Broker fans comment events out to live stream subscribers of an entity.
//
// Delivery is best effort. A subscriber that cannot keep up loses events;
// clients recover by reloading the thread.
type Broker interface {
	Publish(ctx context.Context, entityID string, event Event) error

	// Subscribe returns a channel of the entity's events. The channel is
	// closed after cancel is called or ctx ends.
	Subscribe(ctx context.Context, entityID string) (events <-chan Event, cancel func(), err error)
}

// # In-Memory Broker

// MemoryBroker delivers events within one process.
type MemoryBroker struct {
	mu          sync.Mutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

// NewMemoryBroker creates a broker with per-subscriber buffers of
// [constants.StreamBufferSize] events.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      constants.StreamBufferSize,
	}
}

// Publish implements [Broker]. It never blocks on a slow subscriber.
func (broker *MemoryBroker) Publish(_ context.Context, entityID string, event Event) error {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	for subscriber := range broker.subscribers[entityID] {
		select {
		case subscriber <- event:
		default:
		}
	}
	return nil
}

// Subscribe implements [Broker].
func (broker *MemoryBroker) Subscribe(ctx context.Context, entityID string) (<-chan Event, func(), error) {
	events := make(chan Event, broker.buffer)

	broker.mu.Lock()
	if broker.subscribers[entityID] == nil {
		broker.subscribers[entityID] = make(map[chan Event]struct{})
	}
	broker.subscribers[entityID][events] = struct{}{}
	broker.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			broker.mu.Lock()
			defer broker.mu.Unlock()

			delete(broker.subscribers[entityID], events)
			if len(broker.subscribers[entityID]) == 0 {
				delete(broker.subscribers, entityID)
			}
			close(events)
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return events, cancel, nil
}

// # Redis Broker

// RedisBroker delivers events through Redis Pub/Sub so that every API
// instance sees every comment. Channels are named "comments:entity:<id>".
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
	buffer int
}

// NewRedisBroker creates a broker on client.
func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger, buffer: constants.StreamBufferSize}
}

func entityChannel(entityID string) string {
	return constants.RedisPrefixEntityChannel + entityID
}

// Publish implements [Broker].
func (broker *RedisBroker) Publish(ctx context.Context, entityID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis_comment_event_encode_failed: %w", err)
	}

	if err := broker.client.Publish(ctx, entityChannel(entityID), payload).Err(); err != nil {
		return fmt.Errorf("redis_comment_event_publish_failed: %w", err)
	}
	return nil
}

// Subscribe implements [Broker].
func (broker *RedisBroker) Subscribe(ctx context.Context, entityID string) (<-chan Event, func(), error) {
	pubsub := broker.client.Subscribe(ctx, entityChannel(entityID))

	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis_comment_subscribe_failed: %w", err)
	}

	events := make(chan Event, broker.buffer)
	streamCtx, stop := context.WithCancel(ctx)

	go func() {
		defer close(events)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-streamCtx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
					broker.logger.Warn("comment_event_decode_failed",
						slog.String("channel", message.Channel),
						slog.Any("error", err),
					)
					continue
				}

				select {
				case events <- event:
				default:
				}
			}
		}
	}()

	return events, stop, nil
}
