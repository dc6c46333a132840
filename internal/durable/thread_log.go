package durable

import (
	"context"
	"encoding/json"

	"github.com/d60-Lab/tradetok/internal/repository"
)

// logs 编码为 {id: [entry, ...]}
type logs[V any] map[string][]V

func (l *logs[V]) UnmarshalJSON(b []byte) error {
	var m map[string][]V
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if m == nil {
		m = make(map[string][]V)
	}
	*l = m
	return nil
}

// ThreadLog 按 id 分组的只追加日志，例如 thread id -> 消息；条目保持插入顺序且不可修改
type ThreadLog[V any] struct {
	c *cell[logs[V]]
}

// NewThreadLog 绑定到 repo 上的 key
func NewThreadLog[V any](repo repository.SnapshotRepository, key string) *ThreadLog[V] {
	return &ThreadLog[V]{c: newCell(repo, key, func() logs[V] { return make(logs[V]) })}
}

func (t *ThreadLog[V]) Key() string    { return t.c.Key() }
func (t *ThreadLog[V]) Health() Status { return t.c.Health() }
func (t *ThreadLog[V]) Invalidate()    { t.c.Invalidate() }

func (t *ThreadLog[V]) Load(ctx context.Context) error { return t.c.Load(ctx) }

// Get 日志副本；未知 id 返回空切片
func (t *ThreadLog[V]) Get(ctx context.Context, id string) ([]V, error) {
	out := []V{}
	err := t.c.view(ctx, func(l logs[V]) {
		out = append(out, l[id]...)
	})
	return out, err
}

// Append 追加，日志不存在时创建
func (t *ThreadLog[V]) Append(ctx context.Context, id string, v V) error {
	return t.c.update(ctx, func(l *logs[V]) error {
		(*l)[id] = append((*l)[id], v)
		return nil
	})
}

// IDs 所有日志 id（有序）
func (t *ThreadLog[V]) IDs(ctx context.Context) ([]string, error) {
	var out []string
	err := t.c.view(ctx, func(l logs[V]) {
		out = sortedKeys(l)
	})
	return out, err
}
