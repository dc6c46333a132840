package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

var ErrUploadLimitReached = errors.New("monthly upload limit reached")

// ListingService 发布商品：额度校验 -> 创建 -> 计数
type ListingService struct {
	catalog *CatalogService
	uploads *UploadService
	rt      Runtime
}

func NewListingService(catalog *CatalogService, uploads *UploadService, rt Runtime) *ListingService {
	return &ListingService{catalog: catalog, uploads: uploads, rt: rt}
}

// Publish 未设置套餐的用户按 Basic 计算额度
func (s *ListingService) Publish(ctx context.Context, user model.User, input model.CreateItemInput) (it model.Item, err error) {
	ctx, done := observe(ctx, "listings", "publish")
	defer func() { done(err) }()

	if user.ID == "" {
		return model.Item{}, invalid("user id is required")
	}
	plan := user.Plan
	if plan == "" {
		plan = model.PlanBasic
	}

	// 同一用户的发布串行，额度检查与计数之间不会插入另一次发布
	unlock := s.rt.Locks.Lock("publish:" + user.ID)
	defer unlock()

	count, err := s.uploads.GetCount(ctx, user.ID)
	if err != nil {
		return model.Item{}, err
	}
	if !PlanLimit(plan).Allows(count) {
		logger.Info("upload limit reached",
			zap.String("user", user.ID), zap.String("plan", string(plan)), zap.Int("count", count))
		return model.Item{}, ErrUploadLimitReached
	}

	input.User = user
	if it, err = s.catalog.CreateItem(ctx, input); err != nil {
		return model.Item{}, err
	}
	if err = s.uploads.Increment(ctx, user.ID); err != nil {
		// 商品已创建，计数失败只记录
		logger.Error("increment upload count failed", zap.String("user", user.ID), zap.Error(err))
	}
	return it, nil
}
