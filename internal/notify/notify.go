package notify

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"strings"
	"time"

	"board-arena/internal/ids"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	metricPublishedTotal = expvar.NewInt("notify_published_total")
	metricPublishErrors  = expvar.NewInt("notify_publish_errors_total")
)

// Notifier delivers out-of-band notifications (push, mobile, mail) to users.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload any) error
}

type Message struct {
	UserID  string    `json:"user_id"`
	Kind    string    `json:"kind"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisPublisher publishes notifications on a Redis channel for a delivery
// worker to fan out.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(ctx context.Context, redisURL, channel string) (*RedisPublisher, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{rdb: rdb, channel: channel}, nil
}

func NewRedisPublisherFromClient(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Notify(ctx context.Context, userID, kind string, payload any) error {
	if ids.IsBot(userID) {
		return nil
	}
	raw, err := json.Marshal(Message{UserID: userID, Kind: kind, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		metricPublishErrors.Add(1)
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	metricPublishedTotal.Add(1)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// Nop drops everything. Used when no Redis is configured.
type Nop struct{}

func (Nop) Notify(_ context.Context, userID, kind string, _ any) error {
	log.Debug().Str("user_id", userID).Str("kind", kind).Msg("notification dropped")
	return nil
}
