// Package durable 基于 SnapshotRepository 的持久化内存容器。
// 每个容器独占介质中的一个 key，首次访问时加载，每次修改后同步写回完整快照。
//
// 无法解码的快照被丢弃：容器以空值启动，记录日志和指标，并在 Health 中体现。
// 介质 I/O 错误原样返回给调用方。
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

// Status 容器最近一次加载快照的情况
type Status struct {
	Key    string `json:"key"`
	Loaded bool   `json:"loaded"`
	Seeded bool   `json:"seeded,omitempty"`

	// Recovered 丢弃过损坏快照后置位，容器存活期间不再清除
	Recovered bool      `json:"recovered,omitempty"`
	Cause     string    `json:"cause,omitempty"`
	LoadedAt  time.Time `json:"loadedAt,omitempty"`
}

// Healthy 加载时没有丢数据
func (s Status) Healthy() bool { return !s.Recovered }

// Container 所有持久化容器的公共接口
type Container interface {
	Key() string
	Health() Status
	// Load 内存中没有时读取快照
	Load(ctx context.Context) error
	// Invalidate 丢弃内存副本，下次访问重新加载
	Invalidate()
}

type cell[T any] struct {
	repo  repository.SnapshotRepository
	key   string
	empty func() T
	seed  func() T

	mu     sync.Mutex
	loaded bool
	value  T
	status Status
}

func newCell[T any](repo repository.SnapshotRepository, key string, empty func() T) *cell[T] {
	return &cell[T]{repo: repo, key: key, empty: empty, status: Status{Key: key}}
}

func (c *cell[T]) Key() string { return c.key }

func (c *cell[T]) Health() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *cell[T]) Load(ctx context.Context) error {
	return c.view(ctx, func(T) {})
}

func (c *cell[T]) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// 调用方需持有 mu
func (c *cell[T]) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	raw, ok, err := c.repo.Load(ctx, c.key)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.key, err)
	}

	recovered, cause := c.status.Recovered, c.status.Cause
	c.status = Status{Key: c.key, LoadedAt: time.Now(), Recovered: recovered, Cause: cause}

	switch {
	case !ok && c.seed != nil:
		c.value = c.seed()
		if err := c.save(ctx); err != nil {
			return err
		}
		c.status.Seeded = true
	case !ok:
		c.value = c.empty()
	default:
		v := c.empty()
		if derr := json.Unmarshal([]byte(raw), &v); derr != nil {
			logger.Warn("discarding corrupt snapshot",
				zap.String("key", c.key), zap.Int("bytes", len(raw)), zap.Error(derr))
			metrics.SnapshotRecoveries.WithLabelValues(c.key).Inc()
			v = c.empty()
			c.status.Recovered = true
			c.status.Cause = derr.Error()
		}
		c.value = v
	}
	c.loaded = true
	c.status.Loaded = true
	return nil
}

// 调用方需持有 mu
func (c *cell[T]) save(ctx context.Context) error {
	raw, err := json.Marshal(c.value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.repo.Save(ctx, c.key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	metrics.SnapshotWrites.WithLabelValues(c.key).Inc()
	metrics.SnapshotBytes.WithLabelValues(c.key).Set(float64(len(raw)))
	return nil
}

func (c *cell[T]) view(ctx context.Context, fn func(T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return err
	}
	fn(c.value)
	return nil
}

// update 加载、修改、写回作为一步完成。fn 必须在改动 value 之前返回错误；
// 写回失败则丢弃内存副本，读者回落到最后一次落盘的快照
func (c *cell[T]) update(ctx context.Context, fn func(*T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return err
	}
	if err := fn(&c.value); err != nil {
		return err
	}
	if err := c.save(ctx); err != nil {
		c.loaded = false
		return err
	}
	return nil
}
