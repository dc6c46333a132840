package durable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/internal/repository"
)

// failingRepo 包装介质，按开关让 Save 失败
type failingRepo struct {
	repository.SnapshotRepository
	failSave bool
}

var errMediumDown = errors.New("medium down")

func (r *failingRepo) Save(ctx context.Context, key, value string) error {
	if r.failSave {
		return errMediumDown
	}
	return r.SnapshotRepository.Save(ctx, key, value)
}

func TestSetIndex_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()

	idx := NewSetIndex(repo, "tradetok_likes")
	for _, m := range [][2]string{{"u1", "i1"}, {"u1", "i2"}, {"u2", "i3"}} {
		require.NoError(t, idx.Add(ctx, m[0], m[1]))
	}

	raw, ok, err := repo.Load(ctx, "tradetok_likes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[["u1",["i1","i2"]],["u2",["i3"]]]`, raw)

	reloaded := NewSetIndex(repo, "tradetok_likes")
	snap, err := reloaded.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"u1": {"i1", "i2"}, "u2": {"i3"}}, snap)
	assert.True(t, reloaded.Health().Healthy())
}

func TestSetIndex_ReadsExistingSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	// 旧快照：插入顺序、未排序
	require.NoError(t, repo.Save(ctx, "tradetok_follows", `[["u3",["u1","u2"]],["u1",[]]]`))

	idx := NewSetIndex(repo, "tradetok_follows")
	ok, err := idx.Has(ctx, "u3", "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := idx.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetIndex_ToggleInvolution(t *testing.T) {
	ctx := context.Background()
	idx := NewSetIndex(repository.NewMemorySnapshotRepository(), "k")

	now, err := idx.Toggle(ctx, "u1", "i1")
	require.NoError(t, err)
	assert.True(t, now)

	now, err = idx.Toggle(ctx, "u1", "i1")
	require.NoError(t, err)
	assert.False(t, now)

	has, err := idx.Has(ctx, "u1", "i1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSetIndex_CorruptSnapshotStartsEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":   `{"u1":`,
		"not array":  `{"u1":["i1"]}`,
		"bad pair":   `[["u1"]]`,
		"bad member": `[["u1",[1,2]]]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := repository.NewMemorySnapshotRepository()
			require.NoError(t, repo.Save(ctx, "tradetok_likes", raw))

			idx := NewSetIndex(repo, "tradetok_likes")
			has, err := idx.Has(ctx, "u1", "i1")
			require.NoError(t, err)
			assert.False(t, has)

			st := idx.Health()
			assert.True(t, st.Recovered)
			assert.False(t, st.Healthy())
			assert.NotEmpty(t, st.Cause)

			// 第一次写入覆盖坏快照
			_, err = idx.Toggle(ctx, "u1", "i1")
			require.NoError(t, err)
			raw, _, err := repo.Load(ctx, "tradetok_likes")
			require.NoError(t, err)
			assert.JSONEq(t, `[["u1",["i1"]]]`, raw)
		})
	}
}

func TestSetIndex_NullSnapshotIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	require.NoError(t, repo.Save(ctx, "k", `null`))

	idx := NewSetIndex(repo, "k")
	snap, err := idx.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
	assert.True(t, idx.Health().Healthy())
}

func TestSetIndex_FailedSaveKeepsCommittedState(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{SnapshotRepository: repository.NewMemorySnapshotRepository()}
	idx := NewSetIndex(repo, "k")

	require.NoError(t, idx.Add(ctx, "u1", "i1"))

	repo.failSave = true
	_, err := idx.Toggle(ctx, "u1", "i1")
	assert.ErrorIs(t, err, errMediumDown)

	repo.failSave = false
	has, err := idx.Has(ctx, "u1", "i1")
	require.NoError(t, err)
	assert.True(t, has, "reader must see the last committed snapshot")
}

func TestRecordMap_UpdateAndSeed(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()

	m := NewRecordMap[model.UploadRecord](repo, "tradetok_uploads").
		WithSeed(map[string]model.UploadRecord{"u9": {Count: 1, Month: "2023-10"}})

	got, err := m.Update(ctx, "u1", func(cur model.UploadRecord, ok bool) (model.UploadRecord, error) {
		assert.False(t, ok)
		return model.UploadRecord{Count: 1, Month: "2023-11"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)

	raw, _, err := repo.Load(ctx, "tradetok_uploads")
	require.NoError(t, err)
	assert.JSONEq(t, `[["u1",{"count":1,"month":"2023-11"}],["u9",{"count":1,"month":"2023-10"}]]`, raw)
	assert.True(t, m.Health().Seeded)

	boom := errors.New("boom")
	_, err = m.Update(ctx, "u1", func(model.UploadRecord, bool) (model.UploadRecord, error) {
		return model.UploadRecord{}, boom
	})
	assert.ErrorIs(t, err, boom)
	rec, ok, err := m.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, rec.Count)
}

func TestRecordMap_Find(t *testing.T) {
	ctx := context.Background()
	m := NewRecordMap[model.User](repository.NewMemorySnapshotRepository(), "tradetok_users")
	require.NoError(t, m.Put(ctx, "b@example.com", model.User{ID: "u2"}))
	require.NoError(t, m.Put(ctx, "a@example.com", model.User{ID: "u1"}))

	key, u, ok, err := m.Find(ctx, func(_ string, u model.User) bool { return u.ID == "u2" })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b@example.com", key)
	assert.Equal(t, "u2", u.ID)

	n, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestThreadLog_AppendOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	log := NewThreadLog[model.Message](repo, "tradetok_messages")

	msgs, err := log.Get(ctx, "u1-u2")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	for _, text := range []string{"hi", "is it available?", "yes"} {
		require.NoError(t, log.Append(ctx, "u1-u2", model.Message{ID: text, Text: text}))
	}

	reloaded := NewThreadLog[model.Message](repo, "tradetok_messages")
	msgs, err = reloaded.Get(ctx, "u1-u2")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "yes", msgs[2].Text)

	ids, err := reloaded.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1-u2"}, ids)
}

func TestList_SeedAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	l := NewList[model.Review](repo, "tradetok_reviews").
		WithSeed(model.Review{ID: "r1", TargetUserID: "u1"}, model.Review{ID: "r3", TargetUserID: "u2"})

	got, err := l.Filter(ctx, func(r model.Review) bool { return r.TargetUserID == "u1" })
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	_, ok, err := repo.Load(ctx, "tradetok_reviews")
	require.NoError(t, err)
	assert.True(t, ok, "seed is persisted on first load")

	require.NoError(t, l.Append(ctx, model.Review{ID: "r4", TargetUserID: "u1"}))
	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestList_NullSnapshotAcceptsAppend(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	require.NoError(t, repo.Save(ctx, "k", "null"))

	l := NewList[model.Comment](repo, "k")
	require.NoError(t, l.Append(ctx, model.Comment{ID: "c1"}))
	l.Invalidate()
	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecord_GetSetClear(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	r := NewRecord[model.User](repo, "tradetok_session")

	_, ok, err := r.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, model.User{ID: "u4", Email: "test@test.com"}))
	u, ok, err := r.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u4", u.ID)

	require.NoError(t, r.Clear(ctx))
	_, ok, err = r.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, "tradetok_session", "not-json"))
	_, ok, err = r.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, r.Health().Recovered)
}
