package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisArea keeps the object in one Redis hash named after the namespace.
// It plays the role of a synchronized area shared between machines.
type RedisArea struct {
	client *redis.Client
	key    string
}

var _ Area = (*RedisArea)(nil)

func OpenRedisArea(ctx context.Context, addr, namespace string) (*RedisArea, error) {
	if addr == "" {
		return nil, errors.New("redis storage: addr is required")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connect redis storage at %s", addr)
	}

	return &RedisArea{client: client, key: namespace}, nil
}

func (a *RedisArea) Get(ctx context.Context) (map[string]any, error) {
	fields, err := a.client.HGetAll(ctx, a.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read redis storage")
	}

	obj := make(map[string]any, len(fields))
	for k, raw := range fields {
		v, err := decodeValue(k, []byte(raw))
		if err != nil {
			return nil, err
		}
		obj[k] = v
	}

	return obj, nil
}

func (a *RedisArea) Set(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		data, err := encodeValue(v)
		if err != nil {
			return err
		}
		args = append(args, k, string(data))
	}

	return errors.Wrap(a.client.HSet(ctx, a.key, args...).Err(), "write redis storage")
}

func (a *RedisArea) Clear(ctx context.Context) error {
	return errors.Wrap(a.client.Del(ctx, a.key).Err(), "clear redis storage")
}

func (a *RedisArea) Close() error {
	return a.client.Close()
}
