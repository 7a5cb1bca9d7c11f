package eventstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisBackend republishes records onto a Redis pub/sub channel so other
// chains' subscriber processes (outside this binary) can consume the
// oracle_events stream without sharing memory with the registry process.
type RedisBackend struct {
	client  *redis.Client
	channel string
}

// NewRedisBackend wraps an already-connected *redis.Client.
func NewRedisBackend(client *redis.Client, channel string) *RedisBackend {
	if channel == "" {
		channel = "oracle_events"
	}
	return &RedisBackend{client: client, channel: channel}
}

// wireRecord is the JSON envelope published on the Redis channel. Event.Data
// is published as-is; consumers that need typed access decode Type
// themselves.
type wireRecord struct {
	ID    string `json:"id"`
	Index uint64 `json:"index"`
	Type  string `json:"type"`
	At    string `json:"at"`
	Data  any    `json:"data"`
}

func (b *RedisBackend) Publish(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(wireRecord{
		ID:    rec.ID,
		Index: rec.Index,
		Type:  string(rec.Event.Type),
		At:    rec.Event.At.Format("2006-01-02T15:04:05.000000000Z07:00"),
		Data:  rec.Event.Data,
	})
	if err != nil {
		return fmt.Errorf("eventstream: marshal record: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}
