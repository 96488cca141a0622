package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mechflow/mechflow-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

// changeChannel carries ChangeEvent payloads between instances sharing the
// same Redis database.
const changeChannel = Namespace + ":changes"

// Redis persists keys in a shared Redis database and announces every write
// on a change channel, which is how other running instances observe writes
// they did not make (the cross-tab signal of the storage contract).
type Redis struct {
	client *redis.Client
	origin string
}

// NewRedis bootstraps the client, verifies connectivity and tags all writes
// with the given origin id.
func NewRedis(ctx context.Context, cfg config.RedisConfig, origin string) (*Redis, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, origin: origin}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return err
	}
	r.announce(ctx, key)
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return err
	}
	r.announce(ctx, key)
	return nil
}

// announce is best effort: a lost change message degrades liveness for
// other instances, not correctness of the write itself.
func (r *Redis) announce(ctx context.Context, key string) {
	payload, err := json.Marshal(ChangeEvent{Origin: r.origin, Key: key})
	if err != nil {
		return
	}
	_ = r.client.Publish(ctx, changeChannel, string(payload)).Err()
}

// Changes subscribes to the change channel and streams decoded events until
// the returned stop function is called or ctx ends.
func (r *Redis) Changes(ctx context.Context) (<-chan ChangeEvent, func() error) {
	sub := r.client.Subscribe(ctx, changeChannel)
	out := make(chan ChangeEvent)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event ChangeEvent
			if json.Unmarshal([]byte(msg.Payload), &event) != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close
}

func (r *Redis) Close() error {
	return r.client.Close()
}
