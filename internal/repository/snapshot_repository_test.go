package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func backends(t *testing.T) map[string]SnapshotRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// :memory: 每个连接一个库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	gormRepo, err := NewGormSnapshotRepository(db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisRepo := NewRedisSnapshotRepository(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")

	pebbleRepo, err := NewPebbleSnapshotRepository(filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)

	repos := map[string]SnapshotRepository{
		"memory": NewMemorySnapshotRepository(),
		"gorm":   gormRepo,
		"redis":  redisRepo,
		"pebble": pebbleRepo,
	}
	t.Cleanup(func() {
		for _, r := range repos {
			_ = r.Close()
		}
	})
	return repos
}

func TestSnapshotRepository_Contract(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := repo.Load(ctx, "tradetok_likes")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, repo.Save(ctx, "tradetok_likes", `[["u1",["i1"]]]`))
			v, ok, err := repo.Load(ctx, "tradetok_likes")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[["u1",["i1"]]]`, v)

			// 覆盖写
			require.NoError(t, repo.Save(ctx, "tradetok_likes", `[]`))
			v, _, err = repo.Load(ctx, "tradetok_likes")
			require.NoError(t, err)
			assert.Equal(t, `[]`, v)

			require.NoError(t, repo.Save(ctx, "tradetok_follows", `[]`))
			keys, err := repo.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"tradetok_follows", "tradetok_likes"}, keys)

			require.NoError(t, repo.Delete(ctx, "tradetok_likes"))
			_, ok, err = repo.Load(ctx, "tradetok_likes")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPebbleSnapshotRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pebble")

	repo, err := NewPebbleSnapshotRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "tradetok_uploads", `[["u1",{"count":2,"month":"2023-11"}]]`))
	require.NoError(t, repo.Close())

	repo, err = NewPebbleSnapshotRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	v, ok, err := repo.Load(ctx, "tradetok_uploads")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[["u1",{"count":2,"month":"2023-11"}]]`, v)
}

func TestMemorySnapshotRepository_Closed(t *testing.T) {
	repo := NewMemorySnapshotRepository()
	require.NoError(t, repo.Close())
	err := repo.Save(context.Background(), "k", "v")
	assert.ErrorIs(t, err, ErrClosed)
}
