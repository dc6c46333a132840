package durable

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/d60-Lab/tradetok/internal/repository"
)

// records 编码为 [[key, {record}], ...]，key 有序
type records[V any] map[string]V

func (r records[V]) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pair[V], 0, len(keys))
	for _, k := range keys {
		out = append(out, pair[V]{Key: k, Value: r[k]})
	}
	return json.Marshal(out)
}

func (r *records[V]) UnmarshalJSON(b []byte) error {
	var ps []pair[V]
	if err := json.Unmarshal(b, &ps); err != nil {
		return err
	}
	m := make(records[V], len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value
	}
	*r = m
	return nil
}

// RecordMap 按字符串 key 存放记录的持久化 map
type RecordMap[V any] struct {
	c *cell[records[V]]
}

// NewRecordMap 绑定到 repo 上的 key
func NewRecordMap[V any](repo repository.SnapshotRepository, key string) *RecordMap[V] {
	return &RecordMap[V]{c: newCell(repo, key, func() records[V] { return make(records[V]) })}
}

// WithSeed 介质中没有该 key 时写入的初始数据
func (m *RecordMap[V]) WithSeed(seed map[string]V) *RecordMap[V] {
	m.c.seed = func() records[V] {
		out := make(records[V], len(seed))
		for k, v := range seed {
			out[k] = v
		}
		return out
	}
	return m
}

func (m *RecordMap[V]) Key() string    { return m.c.Key() }
func (m *RecordMap[V]) Health() Status { return m.c.Health() }
func (m *RecordMap[V]) Invalidate()    { m.c.Invalidate() }

func (m *RecordMap[V]) Load(ctx context.Context) error { return m.c.Load(ctx) }

func (m *RecordMap[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var (
		out V
		ok  bool
	)
	err := m.c.view(ctx, func(r records[V]) {
		out, ok = r[key]
	})
	return out, ok, err
}

func (m *RecordMap[V]) Put(ctx context.Context, key string, v V) error {
	return m.c.update(ctx, func(r *records[V]) error {
		(*r)[key] = v
		return nil
	})
}

// Update 用 fn(当前值, 是否存在) 的结果替换记录；fn 出错则放弃
func (m *RecordMap[V]) Update(ctx context.Context, key string, fn func(cur V, ok bool) (V, error)) (V, error) {
	var out V
	err := m.c.update(ctx, func(r *records[V]) error {
		cur, ok := (*r)[key]
		next, err := fn(cur, ok)
		if err != nil {
			return err
		}
		(*r)[key] = next
		out = next
		return nil
	})
	return out, err
}

// Find 按 key 顺序返回第一条匹配的记录
func (m *RecordMap[V]) Find(ctx context.Context, match func(key string, v V) bool) (string, V, bool, error) {
	var (
		foundKey string
		found    V
		ok       bool
	)
	err := m.c.view(ctx, func(r records[V]) {
		for _, k := range sortedKeys(r) {
			if match(k, r[k]) {
				foundKey, found, ok = k, r[k], true
				return
			}
		}
	})
	return foundKey, found, ok, err
}

func (m *RecordMap[V]) Len(ctx context.Context) (int, error) {
	var n int
	err := m.c.view(ctx, func(r records[V]) { n = len(r) })
	return n, err
}

// Entries map 的副本
func (m *RecordMap[V]) Entries(ctx context.Context) (map[string]V, error) {
	out := make(map[string]V)
	err := m.c.view(ctx, func(r records[V]) {
		for k, v := range r {
			out[k] = v
		}
	})
	return out, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
