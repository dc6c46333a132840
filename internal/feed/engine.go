// Package feed 单个浏览者的无限滚动商品流：按序拉页、去重合并、点赞乐观更新并在失败时回滚
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/pkg/logger"
	"github.com/d60-Lab/tradetok/pkg/metrics"
)

// State 分页状态机
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrStale 响应所属的 viewer 或 mount 已过期，响应被丢弃
	ErrStale = errors.New("feed: stale response")
	// ErrBusy 已有请求在途
	ErrBusy = errors.New("feed: fetch in flight")
	// ErrNotMounted 尚未 Mount
	ErrNotMounted = errors.New("feed: not mounted")
	// ErrUnknownItem ToggleLike 的 id 不在 feed 中
	ErrUnknownItem = errors.New("feed: unknown item")
)

// Catalog 提供分页数据
type Catalog interface {
	GetItems(ctx context.Context, page, pageSize int, viewerID string) (model.ItemPage, error)
}

// Liker 翻转点赞并返回新状态
type Liker interface {
	ToggleLike(ctx context.Context, viewerID, itemID string) (bool, error)
}

// Options 零值可用
type Options struct {
	PageSize int

	// Limiter 非空时限制拉页频率
	Limiter *rate.Limiter
}

// Engine 并发安全
type Engine struct {
	catalog Catalog
	liker   Liker
	opts    Options

	mu         sync.Mutex
	mounted    bool
	viewer     string
	gen        uint64
	state      State
	page       int
	loadedPage int
	hasMore    bool
	inFlight   bool
	items      []model.Item
	index      map[string]int
	lastErr    error
}

func New(catalog Catalog, liker Liker, opts Options) *Engine {
	if opts.PageSize < 1 {
		opts.PageSize = 3
	}
	return &Engine{catalog: catalog, liker: liker, opts: opts, index: make(map[string]int)}
}

// Snapshot 某一时刻的状态副本
type Snapshot struct {
	Viewer  string
	State   State
	Page    int
	HasMore bool
	Items   []model.Item
	Err     error
}

// Mount 为 viewerID 重置并加载第 1 页；之前发出的请求的响应都会被丢弃
func (e *Engine) Mount(ctx context.Context, viewerID string) error {
	e.mu.Lock()
	e.gen++
	e.mounted = true
	e.viewer = viewerID
	e.state = StateIdle
	e.page = 0
	e.loadedPage = 0
	e.hasMore = false
	e.inFlight = false
	e.items = nil
	e.index = make(map[string]int)
	e.lastErr = nil
	gen := e.gen
	e.mu.Unlock()

	return e.fetch(ctx, gen, viewerID, 1)
}

// Armed 滚到最后一项时是否会触发拉页
func (e *Engine) Armed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armedLocked()
}

func (e *Engine) armedLocked() bool {
	if !e.mounted || e.inFlight {
		return false
	}
	return e.state == StateError || (e.state == StateLoaded && e.hasMore)
}

// OnLastItemVisible 滚动哨兵：armed 时请求下一页，返回是否发出了请求
func (e *Engine) OnLastItemVisible(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if !e.armedLocked() {
		e.mu.Unlock()
		return false, nil
	}
	gen, viewer, next := e.gen, e.viewer, e.loadedPage+1
	e.mu.Unlock()

	return true, e.fetch(ctx, gen, viewer, next)
}

// Retry 重新请求失败的页；不在 StateError 时无操作
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return ErrNotMounted
	}
	if e.state != StateError {
		e.mu.Unlock()
		return nil
	}
	gen, viewer, next := e.gen, e.viewer, e.loadedPage+1
	e.mu.Unlock()

	return e.fetch(ctx, gen, viewer, next)
}

func (e *Engine) fetch(ctx context.Context, gen uint64, viewer string, page int) error {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return ErrStale
	}
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	e.inFlight = true
	e.state = StateLoading
	e.page = page
	e.mu.Unlock()

	start := time.Now()
	res, err := e.request(ctx, viewer, page)
	metrics.FeedFetchSeconds.Observe(time.Since(start).Seconds())

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || viewer != e.viewer {
		metrics.FeedFetches.WithLabelValues("stale").Inc()
		logger.Debug("dropping stale feed page", zap.String("viewer", viewer), zap.Int("page", page))
		return ErrStale
	}
	e.inFlight = false
	if err != nil {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		logger.Warn("feed page fetch failed", zap.String("viewer", viewer), zap.Int("page", page), zap.Error(err))
		e.state = StateError
		e.lastErr = err
		return err
	}
	metrics.FeedFetches.WithLabelValues("ok").Inc()
	e.merge(res.Items)
	e.loadedPage = page
	e.hasMore = res.HasMore
	e.state = StateLoaded
	e.lastErr = nil
	return nil
}

func (e *Engine) request(ctx context.Context, viewer string, page int) (model.ItemPage, error) {
	if e.opts.Limiter != nil {
		if err := e.opts.Limiter.Wait(ctx); err != nil {
			return model.ItemPage{}, err
		}
	}
	return e.catalog.GetItems(ctx, page, e.opts.PageSize, viewer)
}

// merge 按拉取顺序追加未见过的 id；已有 id 保持原位置和内容
func (e *Engine) merge(items []model.Item) {
	for _, it := range items {
		if _, ok := e.index[it.ID]; ok {
			continue
		}
		e.index[it.ID] = len(e.items)
		e.items = append(e.items, it)
	}
}

// Outcome 点赞操作的结果
type Outcome int

const (
	Committed Outcome = iota
	RolledBack
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Mutation ToggleLike 的结果及之后的 item 状态
type Mutation struct {
	ItemID  string
	Outcome Outcome
	Liked   bool
	Likes   int
	Err     error
}

// ToggleLike 先在本地翻转点赞标记和计数，再请求点赞存储；失败则翻转回来
func (e *Engine) ToggleLike(ctx context.Context, itemID string) (Mutation, error) {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return Mutation{ItemID: itemID, Outcome: Rejected, Err: ErrNotMounted}, ErrNotMounted
	}
	i, ok := e.index[itemID]
	if !ok {
		e.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
		return Mutation{ItemID: itemID, Outcome: Rejected, Err: err}, err
	}
	flip(&e.items[i])
	gen, viewer := e.gen, e.viewer
	e.mu.Unlock()

	_, err := e.liker.ToggleLike(ctx, viewer, itemID)

	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok = e.index[itemID]
	if gen != e.gen || !ok {
		// feed 已重新加载，本地状态不再属于这次操作
		if err != nil {
			return Mutation{ItemID: itemID, Outcome: RolledBack, Err: err}, err
		}
		return Mutation{ItemID: itemID, Outcome: Committed}, nil
	}
	if err != nil {
		flip(&e.items[i])
		metrics.FeedRollbacks.Inc()
		logger.Warn("like toggle failed, rolled back",
			zap.String("viewer", viewer), zap.String("item", itemID), zap.Error(err))
		return Mutation{ItemID: itemID, Outcome: RolledBack, Liked: e.items[i].IsLiked, Likes: e.items[i].Likes, Err: err}, err
	}
	return Mutation{ItemID: itemID, Outcome: Committed, Liked: e.items[i].IsLiked, Likes: e.items[i].Likes}, nil
}

// flip 自身可逆，回滚与其他翻转可交换
func flip(it *model.Item) {
	if it.IsLiked {
		it.Likes--
	} else {
		it.Likes++
	}
	it.IsLiked = !it.IsLiked
}

// Snapshot 当前状态的副本
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]model.Item, len(e.items))
	for i, it := range e.items {
		if it.Images != nil {
			it.Images = append([]string(nil), it.Images...)
		}
		items[i] = it
	}
	return Snapshot{
		Viewer:  e.viewer,
		State:   e.state,
		Page:    e.page,
		HasMore: e.hasMore,
		Items:   items,
		Err:     e.lastErr,
	}
}
