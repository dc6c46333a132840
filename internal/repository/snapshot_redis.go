package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisSnapshotRepository 每个快照一个 string key，统一加前缀
type redisSnapshotRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotRepository 使用已连接的 client；prefix 用于与其它数据隔离
func NewRedisSnapshotRepository(client *redis.Client, prefix string) SnapshotRepository {
	return &redisSnapshotRepository{client: client, prefix: prefix}
}

func (r *redisSnapshotRepository) Load(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *redisSnapshotRepository) Save(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *redisSnapshotRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *redisSnapshotRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *redisSnapshotRepository) Close() error {
	return r.client.Close()
}
