package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

var ErrItemNotFound = errors.New("item not found")

const defaultFeedPageSize = 3

// likeStore CatalogService 依赖的点赞能力
type likeStore interface {
	IsLiked(ctx context.Context, viewerID, itemID string) bool
	Toggle(ctx context.Context, viewerID, itemID string) (bool, error)
}

// CatalogService 商品目录，进程内保存，按发布顺序追加
type CatalogService struct {
	likes likeStore
	rt    Runtime

	mu    sync.RWMutex
	items []model.Item
}

func NewCatalogService(likes likeStore, rt Runtime, seed []model.Item) *CatalogService {
	items := make([]model.Item, len(seed))
	for i, it := range seed {
		items[i] = cloneItem(it)
	}
	return &CatalogService{likes: likes, rt: rt, items: items}
}

func cloneItem(it model.Item) model.Item {
	if it.Images != nil {
		it.Images = append([]string(nil), it.Images...)
	}
	return it
}

// GetItems 最新在前的分页，按 viewer 标注 IsLiked
func (s *CatalogService) GetItems(ctx context.Context, page, pageSize int, viewerID string) (res model.ItemPage, err error) {
	ctx, done := observe(ctx, "catalog", "get_items")
	defer func() { done(err) }()

	page, pageSize = normalizePage(page, pageSize, defaultFeedPageSize)
	if err = s.rt.Delay.Wait(ctx, latencyGetItems); err != nil {
		return model.ItemPage{}, err
	}

	s.mu.RLock()
	total := len(s.items)
	start := (page - 1) * pageSize
	end := start + pageSize
	var window []model.Item
	// 逆序下标 [start, end) 对应正序的 [total-end, total-start)
	for i := start; i < end && i < total; i++ {
		window = append(window, cloneItem(s.items[total-1-i]))
	}
	s.mu.RUnlock()

	for i := range window {
		window[i].IsLiked = s.likes.IsLiked(ctx, viewerID, window[i].ID)
	}
	if window == nil {
		window = []model.Item{}
	}
	return model.ItemPage{Items: window, HasMore: end < total}, nil
}

// GetItemsByUser 某用户发布的商品，最新在前
func (s *CatalogService) GetItemsByUser(ctx context.Context, userID string) (out []model.Item, err error) {
	ctx, done := observe(ctx, "catalog", "items_by_user")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyItemsByUser); err != nil {
		return nil, err
	}
	return s.OwnedBy(userID), nil
}

// OwnedBy 同步版本的 GetItemsByUser，不标注 IsLiked
func (s *CatalogService) OwnedBy(userID string) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Item{}
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].User.ID == userID {
			out = append(out, cloneItem(s.items[i]))
		}
	}
	return out
}

// Item 同步按 id 查找
func (s *CatalogService) Item(itemID string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == itemID {
			return cloneItem(it), nil
		}
	}
	return model.Item{}, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
}

// CreateItem 追加一条新商品
func (s *CatalogService) CreateItem(ctx context.Context, input model.CreateItemInput) (it model.Item, err error) {
	ctx, done := observe(ctx, "catalog", "create_item")
	defer func() { done(err) }()

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err = validateStruct(input); err != nil {
		return model.Item{}, err
	}
	if input.User.ID == "" {
		return model.Item{}, invalid("item owner is required")
	}
	if err = s.rt.Delay.Wait(ctx, latencyCreateItem); err != nil {
		return model.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items) + 1
	images := append([]string(nil), input.ImageURLs...)
	if len(images) == 0 {
		images = []string{picsum(fmt.Sprintf("new%d", n), 400, 700)}
	}
	it = model.Item{
		ID:          fmt.Sprintf("i%d", n),
		User:        input.User.Public(),
		ImageURL:    images[0],
		Images:      images,
		Title:       input.Title,
		Description: input.Description,
		Value:       input.Value,
	}
	s.items = append(s.items, it)
	logger.Info("item created", zap.String("item", it.ID), zap.String("user", it.User.ID))
	return cloneItem(it), nil
}

// AdjustLikes 调整点赞计数，不低于 0
func (s *CatalogService) AdjustLikes(itemID string, delta int) {
	s.adjust(itemID, func(it *model.Item) {
		it.Likes += delta
		if it.Likes < 0 {
			it.Likes = 0
		}
	})
}

// AdjustComments 调整评论计数，不低于 0
func (s *CatalogService) AdjustComments(itemID string, delta int) {
	s.adjust(itemID, func(it *model.Item) {
		it.Comments += delta
		if it.Comments < 0 {
			it.Comments = 0
		}
	})
}

func (s *CatalogService) adjust(itemID string, fn func(*model.Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			fn(&s.items[i])
			return
		}
	}
}

// ToggleLike 翻转点赞关系并同步目录计数
func (s *CatalogService) ToggleLike(ctx context.Context, viewerID, itemID string) (bool, error) {
	if _, err := s.Item(itemID); err != nil {
		return false, err
	}
	liked, err := s.likes.Toggle(ctx, viewerID, itemID)
	if err != nil {
		return false, err
	}
	if liked {
		s.AdjustLikes(itemID, 1)
	} else {
		s.AdjustLikes(itemID, -1)
	}
	return liked, nil
}

// Len 商品总数
func (s *CatalogService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
