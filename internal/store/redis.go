package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/Watch/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "watch"
	defaultTTL    = 24 * time.Hour
)

// RedisDirectory stores room:<id> as JSON and room:<id>:members as a set,
// both expiring after TTL so a crashed relay does not leave rooms behind.
type RedisDirectory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDirectory(cfg Config) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisDirectory(client, cfg), nil
}

func newRedisDirectory(client *redis.Client, cfg Config) *RedisDirectory {
	d := &RedisDirectory{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
	if d.prefix == "" {
		d.prefix = defaultPrefix
	}
	if d.ttl <= 0 {
		d.ttl = defaultTTL
	}
	return d
}

func (d *RedisDirectory) roomKey(id domain.RoomID) string {
	return fmt.Sprintf("%s:room:%s", d.prefix, id)
}

func (d *RedisDirectory) membersKey(id domain.RoomID) string {
	return fmt.Sprintf("%s:room:%s:members", d.prefix, id)
}

func (d *RedisDirectory) RoomCreated(ctx context.Context, rec RoomRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	if err := d.client.Set(ctx, d.roomKey(rec.ID), data, d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (d *RedisDirectory) MembersChanged(ctx context.Context, id domain.RoomID, members []string) error {
	key := d.membersKey(id)
	pipe := d.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		vals := make([]any, len(members))
		for i, m := range members {
			vals[i] = m
		}
		pipe.SAdd(ctx, key, vals...)
		pipe.Expire(ctx, key, d.ttl)
	}
	pipe.Expire(ctx, d.roomKey(id), d.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update members in redis: %w", err)
	}
	return nil
}

func (d *RedisDirectory) RoomDeleted(ctx context.Context, id domain.RoomID) error {
	if err := d.client.Del(ctx, d.roomKey(id), d.membersKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Close() error {
	return d.client.Close()
}
