package repository

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

const pebbleKeyPrefix = "snap:"

// pebbleSnapshotRepository 本地 LSM 介质，写入走 pebble.Sync
type pebbleSnapshotRepository struct {
	db *pebble.DB
}

// NewPebbleSnapshotRepository 打开（不存在则创建）path 处的 pebble 库
func NewPebbleSnapshotRepository(path string) (SnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &pebbleSnapshotRepository{db: db}, nil
}

func (r *pebbleSnapshotRepository) Load(ctx context.Context, key string) (string, bool, error) {
	v, closer, err := r.db.Get([]byte(pebbleKeyPrefix + key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer closer.Close()
	// v 只在 closer 关闭前有效
	return string(v), true, nil
}

func (r *pebbleSnapshotRepository) Save(ctx context.Context, key, value string) error {
	return r.db.Set([]byte(pebbleKeyPrefix+key), []byte(value), pebble.Sync)
}

func (r *pebbleSnapshotRepository) Delete(ctx context.Context, key string) error {
	return r.db.Delete([]byte(pebbleKeyPrefix+key), pebble.Sync)
}

func (r *pebbleSnapshotRepository) Keys(ctx context.Context) ([]string, error) {
	prefix := []byte(pebbleKeyPrefix)
	it, err := r.db.NewIter(&pebble.IterOptions{LowerBound: prefix})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var keys []string
	for ok := it.First(); ok; ok = it.Next() {
		k := it.Key()
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		keys = append(keys, string(k[len(prefix):]))
	}
	return keys, it.Error()
}

func (r *pebbleSnapshotRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
