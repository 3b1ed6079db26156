/*
Package redisclient carries cache-invalidation events between gateway
replicas over a Redis Pub/Sub channel (github.com/redis/go-redis/v9).
It implements service.Invalidator on the publish side and drives a
subscriber loop on the receive side; per the resolved fan-out design,
a subscriber only ever applies an incoming eviction — it never
republishes, so a single origin publish can't echo around the channel.
*/
package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/config"
)

// Applier is the subset of service.Service the subscriber needs —
// narrowed to avoid an import cycle between service and redisclient.
type Applier interface {
	ApplyRemoteInvalidation(id uuid.UUID)
}

// Client wraps a Redis connection used purely as a Pub/Sub transport;
// the gateway keeps no other state in Redis.
type Client struct {
	rdb     *redis.Client
	channel string
	logger  zerolog.Logger
}

type invalidationMessage struct {
	HeuristicID string `json:"heuristic_id"`
	ChangeType  string `json:"change_type"`
}

// New creates a Client from the gateway config. Returns an error if the
// Redis URL cannot be parsed.
func New(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Client{
		rdb:     redis.NewClient(opt),
		channel: cfg.CacheInvalidationChannel,
		logger:  logger.With().Str("component", "redis_invalidator").Logger(),
	}, nil
}

// Ping verifies connectivity, used during startup.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Publish broadcasts a heuristic change to every subscribed replica.
// It satisfies service.Invalidator.
func (c *Client) Publish(ctx context.Context, heuristicID uuid.UUID, changeType string) error {
	payload, err := json.Marshal(invalidationMessage{HeuristicID: heuristicID.String(), ChangeType: changeType})
	if err != nil {
		return fmt.Errorf("marshal invalidation message: %w", err)
	}
	return c.rdb.Publish(ctx, c.channel, payload).Err()
}

// Subscribe runs until ctx is cancelled, applying every invalidation
// received on the channel, including ones this replica published
// itself (messages carry no origin, so none are filtered out; a repeat
// eviction of an absent id is a no-op). onReceived, if non-nil, is
// called once per applied message — wired to a metrics counter.
func (c *Client) Subscribe(ctx context.Context, applier Applier, onReceived func()) {
	sub := c.rdb.Subscribe(ctx, c.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m invalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				c.logger.Warn().Err(err).Msg("discarding malformed invalidation message")
				continue
			}
			id, err := uuid.Parse(m.HeuristicID)
			if err != nil {
				c.logger.Warn().Err(err).Str("heuristic_id", m.HeuristicID).Msg("discarding invalidation with unparseable id")
				continue
			}
			applier.ApplyRemoteInvalidation(id)
			if onReceived != nil {
				onReceived()
			}
		}
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
