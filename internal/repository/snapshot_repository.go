package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrClosed 介质已关闭
var ErrClosed = errors.New("snapshot repository closed")

// SnapshotRepository 字符串键的持久化介质：每个键保存一份完整快照
type SnapshotRepository interface {
	// Load 读取快照；键不存在时 ok=false 且 err=nil
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	// Save 覆盖写入完整快照
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys 返回所有键（升序）
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

type memorySnapshotRepository struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemorySnapshotRepository 进程内介质，重启即丢失（测试、基准使用）
func NewMemorySnapshotRepository() SnapshotRepository {
	return &memorySnapshotRepository{data: make(map[string]string)}
}

func (r *memorySnapshotRepository) Load(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return "", false, ErrClosed
	}
	v, ok := r.data[key]
	return v, ok, nil
}

func (r *memorySnapshotRepository) Save(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.data[key] = value
	return nil
}

func (r *memorySnapshotRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	delete(r.data, key)
	return nil
}

func (r *memorySnapshotRepository) Keys(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *memorySnapshotRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
