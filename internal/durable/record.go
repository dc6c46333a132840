package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/repository"
	"github.com/d60-Lab/tradetok/pkg/logger"
	"github.com/d60-Lab/tradetok/pkg/metrics"
)

// Record 可能缺失的单个值（当前会话），每次 Get 都直读介质
type Record[V any] struct {
	repo repository.SnapshotRepository
	key  string

	mu     sync.Mutex
	status Status
}

// NewRecord 绑定到 repo 上的 key
func NewRecord[V any](repo repository.SnapshotRepository, key string) *Record[V] {
	return &Record[V]{repo: repo, key: key, status: Status{Key: key}}
}

func (r *Record[V]) Key() string { return r.key }

func (r *Record[V]) Health() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Load 只检查存储的值能否解码
func (r *Record[V]) Load(ctx context.Context) error {
	_, _, err := r.Get(ctx)
	return err
}

// Invalidate 无操作，Record 不缓存
func (r *Record[V]) Invalidate() {}

// Get 损坏的值按不存在处理
func (r *Record[V]) Get(ctx context.Context) (V, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var v V
	raw, ok, err := r.repo.Load(ctx, r.key)
	if err != nil {
		return v, false, fmt.Errorf("load %s: %w", r.key, err)
	}
	r.status.Loaded = true
	r.status.LoadedAt = time.Now()
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn("discarding corrupt snapshot", zap.String("key", r.key), zap.Error(err))
		metrics.SnapshotRecoveries.WithLabelValues(r.key).Inc()
		r.status.Recovered = true
		r.status.Cause = err.Error()
		var zero V
		return zero, false, nil
	}
	return v, true, nil
}

func (r *Record[V]) Set(ctx context.Context, v V) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.repo.Save(ctx, r.key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	metrics.SnapshotWrites.WithLabelValues(r.key).Inc()
	return nil
}

// Clear 删除存储的值
func (r *Record[V]) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Delete(ctx, r.key)
}
