package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

// LikeService 点赞关系（viewer -> liked item ids）
type LikeService struct {
	likes *durable.SetIndex
	rt    Runtime
}

func NewLikeService(likes *durable.SetIndex, rt Runtime) *LikeService {
	return &LikeService{likes: likes, rt: rt}
}

// IsLiked 同步查询，不模拟延迟；介质错误按未点赞处理
func (s *LikeService) IsLiked(ctx context.Context, viewerID, itemID string) bool {
	ok, err := s.likes.Has(ctx, viewerID, itemID)
	if err != nil {
		logger.Warn("like lookup failed", zap.String("viewer", viewerID), zap.String("item", itemID), zap.Error(err))
		return false
	}
	return ok
}

// Toggle 翻转点赞状态并返回新状态
func (s *LikeService) Toggle(ctx context.Context, viewerID, itemID string) (now bool, err error) {
	ctx, done := observe(ctx, "likes", "toggle")
	defer func() { done(err) }()

	if err = validateStruct(relationKey{From: viewerID, To: itemID}); err != nil {
		return false, err
	}

	unlock := s.rt.Locks.Lock("like:" + viewerID + "|" + itemID)
	defer unlock()

	if err = s.rt.Delay.Wait(ctx, latencyToggleLike); err != nil {
		return false, err
	}
	return s.likes.Toggle(ctx, viewerID, itemID)
}

// LikedItems viewer 点赞过的 item id（排序）
func (s *LikeService) LikedItems(ctx context.Context, viewerID string) ([]string, error) {
	return s.likes.Members(ctx, viewerID)
}

// Likers item id -> 点赞的 viewer（排序）
func (s *LikeService) Likers(ctx context.Context) (map[string][]string, error) {
	snap, err := s.likes.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for viewer, items := range snap {
		for _, it := range items {
			out[it] = append(out[it], viewer)
		}
	}
	for _, viewers := range out {
		sortStrings(viewers)
	}
	return out, nil
}
