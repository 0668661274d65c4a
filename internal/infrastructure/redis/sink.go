package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/eventsink"
)

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Sink publishes each event envelope as JSON on one pub/sub channel.
// The client belongs to the caller; Close leaves it open.
type Sink struct {
	client  publishClient
	channel string
}

func NewSink(client publishClient, channel string) *Sink {
	return &Sink{client: client, channel: channel}
}

func (s *Sink) Name() string { return "redis" }

func (s *Sink) Send(ctx context.Context, m eventsink.Message) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", m.Name, err)
	}
	return nil
}

func (s *Sink) Close() error { return nil }
