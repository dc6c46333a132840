package durable

import (
	"context"
	"encoding/json"

	"github.com/d60-Lab/tradetok/internal/repository"
)

// entries nil 切片编码为 [] 而不是 null
type entries[V any] []V

func (e entries[V]) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]V(e))
}

// List 只追加的持久化列表
type List[V any] struct {
	c *cell[entries[V]]
}

// NewList 绑定到 repo 上的 key
func NewList[V any](repo repository.SnapshotRepository, key string) *List[V] {
	return &List[V]{c: newCell(repo, key, func() entries[V] { return entries[V]{} })}
}

// WithSeed 介质中没有该 key 时写入的初始数据
func (l *List[V]) WithSeed(seed ...V) *List[V] {
	l.c.seed = func() entries[V] {
		return append(entries[V]{}, seed...)
	}
	return l
}

func (l *List[V]) Key() string    { return l.c.Key() }
func (l *List[V]) Health() Status { return l.c.Health() }
func (l *List[V]) Invalidate()    { l.c.Invalidate() }

func (l *List[V]) Load(ctx context.Context) error { return l.c.Load(ctx) }

// Append 追加到末尾
func (l *List[V]) Append(ctx context.Context, v V) error {
	return l.c.update(ctx, func(e *entries[V]) error {
		*e = append(*e, v)
		return nil
	})
}

// Filter 按追加顺序返回满足 keep 的条目
func (l *List[V]) Filter(ctx context.Context, keep func(V) bool) ([]V, error) {
	out := []V{}
	err := l.c.view(ctx, func(e entries[V]) {
		for _, v := range e {
			if keep == nil || keep(v) {
				out = append(out, v)
			}
		}
	})
	return out, err
}

// All 全部条目的副本
func (l *List[V]) All(ctx context.Context) ([]V, error) {
	return l.Filter(ctx, nil)
}
