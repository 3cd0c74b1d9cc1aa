package barstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/rustyeddy/trendline/market"
)

const redisPrefix = "trendline:bars:"

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Redis shares series between processes. Each series is one JSON value
// written with SETNX.
type Redis struct {
	client *goredis.Client
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{client: client}, nil
}

func redisKey(k Key) string { return redisPrefix + k.String() }

func (r *Redis) Get(ctx context.Context, key Key) ([]market.Bar, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err == goredis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	var bars []market.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return bars, nil
}

func (r *Redis) Put(ctx context.Context, key Key, bars []market.Bar) error {
	if err := key.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	ok, err := r.client.SetNX(ctx, redisKey(key), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]Key, error) {
	var keys []Key
	iter := r.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		rest := strings.TrimPrefix(iter.Val(), redisPrefix)
		i := strings.LastIndex(rest, ":")
		if i < 0 {
			continue
		}
		keys = append(keys, Key{Symbol: rest[:i], Period: market.Period(rest[i+1:])})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sortKeys(keys)
	return keys, nil
}

// Delete removes a series so that it can be stored again.
func (r *Redis) Delete(ctx context.Context, key Key) error {
	return r.client.Del(ctx, redisKey(key)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
