package app

import (
	"context"

	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/internal/service"
)

func (a *App) GetItems(ctx context.Context, page, pageSize int, viewerID string) (model.ItemPage, error) {
	return a.catalog.GetItems(ctx, page, pageSize, viewerID)
}

func (a *App) GetItemsByUser(ctx context.Context, userID string) ([]model.Item, error) {
	return a.catalog.GetItemsByUser(ctx, userID)
}

func (a *App) CreateItem(ctx context.Context, input model.CreateItemInput) (model.Item, error) {
	return a.catalog.CreateItem(ctx, input)
}

func (a *App) GetMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	return a.threads.GetMessages(ctx, threadID)
}

func (a *App) SendMessage(ctx context.Context, threadID, senderID, text string) (model.Message, error) {
	return a.threads.SendMessage(ctx, threadID, senderID, text)
}

func (a *App) GetReviews(ctx context.Context, targetUserID string) ([]model.Review, error) {
	return a.reviews.GetReviews(ctx, targetUserID)
}

func (a *App) AddReview(ctx context.Context, targetUserID string, reviewer model.User, rating int, text string) (model.Review, error) {
	return a.reviews.AddReview(ctx, targetUserID, reviewer, rating, text)
}

func (a *App) GetUploadCount(ctx context.Context, userID string) (int, error) {
	return a.uploads.GetCount(ctx, userID)
}

func (a *App) IncrementUploadCount(ctx context.Context, userID string) error {
	return a.uploads.Increment(ctx, userID)
}

func (a *App) PlanLimit(plan model.Plan) service.Limit {
	return service.PlanLimit(plan)
}

func (a *App) IsLiked(ctx context.Context, viewerID, itemID string) bool {
	return a.likes.IsLiked(ctx, viewerID, itemID)
}

// ToggleLike 翻转点赞并同步目录中的计数
func (a *App) ToggleLike(ctx context.Context, viewerID, itemID string) (bool, error) {
	return a.catalog.ToggleLike(ctx, viewerID, itemID)
}

func (a *App) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	return a.follows.IsFollowing(ctx, followerID, targetID)
}

func (a *App) ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error) {
	return a.follows.Toggle(ctx, followerID, targetID)
}

func (a *App) MakeOffer(ctx context.Context, itemID string, buyer model.User, amount float64) (model.Offer, error) {
	return a.offers.MakeOffer(ctx, itemID, buyer, amount)
}

func (a *App) GetNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	return a.notifs.Notifications(ctx, userID)
}
