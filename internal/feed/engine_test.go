package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/internal/repository"
	"github.com/d60-Lab/tradetok/internal/service"
)

// stubCatalog 按调用返回预置结果，可选阻塞
type stubCatalog struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, page, size int, viewer string) (model.ItemPage, error)
}

func (c *stubCatalog) GetItems(ctx context.Context, page, size int, viewer string) (model.ItemPage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, fmt.Sprintf("%s:%d", viewer, page))
	c.mu.Unlock()
	return c.fn(ctx, page, size, viewer)
}

func (c *stubCatalog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type stubLiker struct {
	err error
}

func (l *stubLiker) ToggleLike(context.Context, string, string) (bool, error) {
	return true, l.err
}

func items(ids ...string) []model.Item {
	out := make([]model.Item, len(ids))
	for i, id := range ids {
		out[i] = model.Item{ID: id, Title: "title " + id, Likes: 10}
	}
	return out
}

func ids(snap Snapshot) []string {
	out := make([]string, len(snap.Items))
	for i, it := range snap.Items {
		out[i] = it.ID
	}
	return out
}

// newServiceEngine 接真实目录与点赞服务（无延迟）
func newServiceEngine(t *testing.T) (*Engine, *service.CatalogService) {
	t.Helper()
	rt := service.TestRuntime(time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))
	repo := repository.NewMemorySnapshotRepository()
	likes := service.NewLikeService(durable.NewSetIndex(repo, "tradetok_likes"), rt)
	catalog := service.NewCatalogService(likes, rt, service.SeedItems(service.SeedUsers()))
	return New(catalog, catalog, Options{PageSize: 3}), catalog
}

func TestEngine_PagesThroughCatalog(t *testing.T) {
	ctx := context.Background()
	e, _ := newServiceEngine(t)

	require.NoError(t, e.Mount(ctx, "u1"))
	snap := e.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, 1, snap.Page)
	assert.True(t, snap.HasMore)
	assert.Equal(t, []string{"i9", "i8", "i7"}, ids(snap))
	assert.True(t, e.Armed())

	for page := 2; page <= 3; page++ {
		fetched, err := e.OnLastItemVisible(ctx)
		require.NoError(t, err)
		assert.True(t, fetched)
	}
	snap = e.Snapshot()
	assert.Equal(t, 3, snap.Page)
	assert.False(t, snap.HasMore)
	assert.Len(t, snap.Items, 9)
	assert.Equal(t, "i1", snap.Items[8].ID)

	fetched, err := e.OnLastItemVisible(ctx)
	require.NoError(t, err)
	assert.False(t, fetched, "sensor disarmed when there is nothing more")
	assert.False(t, e.Armed())
}

func TestEngine_DedupKeepsFirstSeen(t *testing.T) {
	ctx := context.Background()
	cat := &stubCatalog{fn: func(_ context.Context, page, _ int, _ string) (model.ItemPage, error) {
		if page == 1 {
			return model.ItemPage{Items: items("a", "b", "c"), HasMore: true}, nil
		}
		// 新发布导致窗口后移，b/c 再次出现
		dup := items("b", "c", "d")
		dup[0].Title = "changed"
		return model.ItemPage{Items: dup, HasMore: false}, nil
	}}
	e := New(cat, &stubLiker{}, Options{})

	require.NoError(t, e.Mount(ctx, "u1"))
	_, err := e.OnLastItemVisible(ctx)
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(snap))
	assert.Equal(t, "title b", snap.Items[1].Title)
}

func TestEngine_ErrorThenRetry(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("network down")
	fail := true
	cat := &stubCatalog{fn: func(_ context.Context, page, _ int, _ string) (model.ItemPage, error) {
		if page == 2 && fail {
			return model.ItemPage{}, boom
		}
		return model.ItemPage{Items: items(fmt.Sprintf("p%d", page)), HasMore: page < 3}, nil
	}}
	e := New(cat, &stubLiker{}, Options{})

	require.NoError(t, e.Mount(ctx, "u1"))
	_, err := e.OnLastItemVisible(ctx)
	assert.ErrorIs(t, err, boom)

	snap := e.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Equal(t, []string{"p1"}, ids(snap), "items untouched on failure")
	assert.True(t, e.Armed(), "sensor re-armed after failure")

	fail = false
	require.NoError(t, e.Retry(ctx))
	snap = e.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, []string{"p1", "p2"}, ids(snap))
	assert.Equal(t, []string{"u1:1", "u1:2", "u1:2"}, cat.Calls())

	assert.NoError(t, e.Retry(ctx), "retry outside error state is a no-op")
	assert.Len(t, cat.Calls(), 3)
}

func TestEngine_SingleFetchInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{}, 4)
	cat := &stubCatalog{fn: func(_ context.Context, page, _ int, _ string) (model.ItemPage, error) {
		if page == 2 {
			entered <- struct{}{}
			<-release
		}
		return model.ItemPage{Items: items(fmt.Sprintf("p%d", page)), HasMore: true}, nil
	}}
	e := New(cat, &stubLiker{}, Options{})
	require.NoError(t, e.Mount(ctx, "u1"))

	done := make(chan error, 1)
	go func() {
		_, err := e.OnLastItemVisible(ctx)
		done <- err
	}()
	<-entered

	assert.False(t, e.Armed())
	fetched, err := e.OnLastItemVisible(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, StateLoading, e.Snapshot().State)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"u1:1", "u1:2"}, cat.Calls())
	assert.Equal(t, []string{"p1", "p2"}, ids(e.Snapshot()))
}

func TestEngine_StaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	cat := &stubCatalog{fn: func(_ context.Context, page, _ int, viewer string) (model.ItemPage, error) {
		if viewer == "u1" {
			entered <- struct{}{}
			<-release
			return model.ItemPage{Items: items("u1-item"), HasMore: true}, nil
		}
		return model.ItemPage{Items: items("u2-item"), HasMore: false}, nil
	}}
	e := New(cat, &stubLiker{}, Options{})

	first := make(chan error, 1)
	go func() { first <- e.Mount(ctx, "u1") }()
	<-entered

	require.NoError(t, e.Mount(ctx, "u2"))
	close(release)
	assert.ErrorIs(t, <-first, ErrStale)

	snap := e.Snapshot()
	assert.Equal(t, "u2", snap.Viewer)
	assert.Equal(t, []string{"u2-item"}, ids(snap))
	assert.Equal(t, StateLoaded, snap.State)
	assert.False(t, snap.HasMore)
}

func TestEngine_ToggleLikeCommitted(t *testing.T) {
	ctx := context.Background()
	e, catalog := newServiceEngine(t)
	require.NoError(t, e.Mount(ctx, "u2"))

	m, err := e.ToggleLike(ctx, "i9")
	require.NoError(t, err)
	assert.Equal(t, Committed, m.Outcome)
	assert.True(t, m.Liked)
	assert.Equal(t, 601, m.Likes)

	it, err := catalog.Item("i9")
	require.NoError(t, err)
	assert.Equal(t, 601, it.Likes)

	// 重新挂载后点赞状态来自服务端
	require.NoError(t, e.Mount(ctx, "u2"))
	assert.True(t, e.Snapshot().Items[0].IsLiked)
}

func TestEngine_ToggleLikeRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("like store unavailable")
	cat := &stubCatalog{fn: func(context.Context, int, int, string) (model.ItemPage, error) {
		return model.ItemPage{Items: items("a")}, nil
	}}
	e := New(cat, &stubLiker{err: boom}, Options{})
	require.NoError(t, e.Mount(ctx, "u1"))

	m, err := e.ToggleLike(ctx, "a")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, RolledBack, m.Outcome)
	assert.False(t, m.Liked)
	assert.Equal(t, 10, m.Likes)

	it := e.Snapshot().Items[0]
	assert.False(t, it.IsLiked)
	assert.Equal(t, 10, it.Likes)

	m, err = e.ToggleLike(ctx, "zzz")
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Equal(t, Rejected, m.Outcome)
}

func TestEngine_NotMounted(t *testing.T) {
	e := New(&stubCatalog{}, &stubLiker{}, Options{})
	assert.ErrorIs(t, e.Retry(context.Background()), ErrNotMounted)
	_, err := e.ToggleLike(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNotMounted)
	assert.False(t, e.Armed())
}

func TestEngine_LimiterCancelled(t *testing.T) {
	cat := &stubCatalog{fn: func(context.Context, int, int, string) (model.ItemPage, error) {
		return model.ItemPage{Items: items("a"), HasMore: true}, nil
	}}
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	e := New(cat, &stubLiker{}, Options{Limiter: lim})
	require.NoError(t, e.Mount(context.Background(), "u1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.OnLastItemVisible(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, e.Snapshot().State)
	assert.Len(t, cat.Calls(), 1)
}
