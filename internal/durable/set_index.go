package durable

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/d60-Lab/tradetok/internal/repository"
)

// sets 编码为 [[key, [member, ...]], ...]，key 和成员均有序
type sets map[string]map[string]struct{}

func (s sets) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pair[[]string], 0, len(keys))
	for _, k := range keys {
		out = append(out, pair[[]string]{Key: k, Value: sortedMembers(s[k])})
	}
	return json.Marshal(out)
}

func (s *sets) UnmarshalJSON(b []byte) error {
	var ps []pair[[]string]
	if err := json.Unmarshal(b, &ps); err != nil {
		return err
	}
	m := make(sets, len(ps))
	for _, p := range ps {
		set, ok := m[p.Key]
		if !ok {
			set = make(map[string]struct{}, len(p.Value))
			m[p.Key] = set
		}
		for _, member := range p.Value {
			set[member] = struct{}{}
		}
	}
	*s = m
	return nil
}

func sortedMembers(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// SetIndex 持久化的集合索引，例如 viewer -> 点赞的 item id
type SetIndex struct {
	c *cell[sets]
}

// NewSetIndex 绑定到 repo 上的 key
func NewSetIndex(repo repository.SnapshotRepository, key string) *SetIndex {
	return &SetIndex{c: newCell(repo, key, func() sets { return make(sets) })}
}

func (s *SetIndex) Key() string    { return s.c.Key() }
func (s *SetIndex) Health() Status { return s.c.Health() }
func (s *SetIndex) Invalidate()    { s.c.Invalidate() }

func (s *SetIndex) Load(ctx context.Context) error { return s.c.Load(ctx) }

func (s *SetIndex) Has(ctx context.Context, key, member string) (bool, error) {
	var ok bool
	err := s.c.view(ctx, func(v sets) {
		_, ok = v[key][member]
	})
	return ok, err
}

// Members 有序成员
func (s *SetIndex) Members(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := s.c.view(ctx, func(v sets) {
		out = sortedMembers(v[key])
	})
	return out, err
}

func (s *SetIndex) Count(ctx context.Context, key string) (int, error) {
	var n int
	err := s.c.view(ctx, func(v sets) { n = len(v[key]) })
	return n, err
}

// Toggle 翻转成员关系并返回新状态
func (s *SetIndex) Toggle(ctx context.Context, key, member string) (bool, error) {
	var now bool
	err := s.c.update(ctx, func(v *sets) error {
		set, ok := (*v)[key]
		if !ok {
			set = make(map[string]struct{})
			(*v)[key] = set
		}
		if _, has := set[member]; has {
			delete(set, member)
			now = false
		} else {
			set[member] = struct{}{}
			now = true
		}
		return nil
	})
	return now, err
}

// Add 已存在的成员也会重写快照
func (s *SetIndex) Add(ctx context.Context, key, member string) error {
	return s.c.update(ctx, func(v *sets) error {
		set, ok := (*v)[key]
		if !ok {
			set = make(map[string]struct{})
			(*v)[key] = set
		}
		set[member] = struct{}{}
		return nil
	})
}

// Remove 保留该 key 的（可能为空的）集合
func (s *SetIndex) Remove(ctx context.Context, key, member string) error {
	return s.c.update(ctx, func(v *sets) error {
		delete((*v)[key], member)
		return nil
	})
}

// Snapshot 整个索引的副本
func (s *SetIndex) Snapshot(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	err := s.c.view(ctx, func(v sets) {
		for k, set := range v {
			out[k] = sortedMembers(set)
		}
	})
	return out, err
}

// Replace 一次写入替换整个索引
func (s *SetIndex) Replace(ctx context.Context, snap map[string][]string) error {
	return s.c.update(ctx, func(v *sets) error {
		next := make(sets, len(snap))
		for k, members := range snap {
			set := make(map[string]struct{}, len(members))
			for _, m := range members {
				set[m] = struct{}{}
			}
			next[k] = set
		}
		*v = next
		return nil
	})
}
