package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
)

// DefaultRedisChannel is the pub/sub channel used when none is configured
const DefaultRedisChannel = "shopdesk:messages"

// ConnectRedis parses a redis:// URL and verifies the server is reachable
func ConnectRedis(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return client, nil
}

// RedisBridge relays events between server instances. Publish sends events to
// a Redis channel; Run delivers every event received on that channel to the
// local publisher, including events this instance published itself.
type RedisBridge struct {
	client  *goredis.Client
	channel string
	local   Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRedisBridge creates a new RedisBridge instance
func NewRedisBridge(client *goredis.Client, channel string, local Publisher, logger *slog.Logger, m *metrics.Metrics) *RedisBridge {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logger,
		metrics: m,
	}
}

// Publish sends ev to every instance subscribed to the channel
func (b *RedisBridge) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Run relays channel messages to the local publisher until ctx is done.
// ready, when not nil, is closed once the subscription is active.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	if b.logger != nil {
		b.logger.Info("redis realtime bridge started", slog.String("channel", b.channel))
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := DecodeEvent([]byte(msg.Payload))
			if err != nil {
				b.metrics.RealtimeEvent("unknown", metrics.OutcomeMalformed)
				if b.logger != nil {
					b.logger.Warn("dropping malformed event from redis", slog.Any("error", err))
				}
				continue
			}
			if err := b.local.Publish(ctx, ev); err != nil && b.logger != nil {
				b.logger.Error("failed to relay event", slog.String("message_id", ev.Record.ID), slog.Any("error", err))
			}
		}
	}
}
