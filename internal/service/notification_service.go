package service

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/d60-Lab/tradetok/internal/model"
)

const welcomeText = "Welcome to TradeTok! Complete your profile to get started."

// NotificationService 从点赞、关注、出价关系推导通知
type NotificationService struct {
	likes   *LikeService
	follows *FollowService
	offers  *OfferService
	catalog *CatalogService
	users   *UserService
	rt      Runtime
}

func NewNotificationService(likes *LikeService, follows *FollowService, offers *OfferService,
	catalog *CatalogService, users *UserService, rt Runtime) *NotificationService {
	return &NotificationService{likes: likes, follows: follows, offers: offers, catalog: catalog, users: users, rt: rt}
}

// Notifications 顺序：点赞、关注、出价（最新在前），最后是欢迎消息
func (s *NotificationService) Notifications(ctx context.Context, userID string) (out []model.Notification, err error) {
	ctx, done := observe(ctx, "notifications", "list")
	defer func() { done(err) }()

	if userID == "" {
		return nil, invalid("user id is required")
	}
	if err = s.rt.Delay.Wait(ctx, latencyNotifications); err != nil {
		return nil, err
	}

	out = []model.Notification{}

	owned := s.catalog.OwnedBy(userID)
	likers, err := s.likes.Likers(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range owned {
		for _, viewer := range likers[it.ID] {
			if viewer == userID {
				continue
			}
			out = append(out, model.Notification{
				ID:          "n-like-" + viewer + "-" + it.ID,
				UserID:      userID,
				Type:        model.NotificationLike,
				Text:        "liked your " + it.Title,
				RelatedUser: s.related(ctx, viewer),
				RelatedItem: &model.RelatedItem{ID: it.ID, ImageURL: it.ImageURL},
			})
		}
	}

	// 以关注索引为准，不受粉丝索引复制延迟影响
	fans, err := s.follows.scanFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, fan := range fans {
		out = append(out, model.Notification{
			ID:          "n-follow-" + fan,
			UserID:      userID,
			Type:        model.NotificationFollow,
			Text:        "started following you",
			RelatedUser: s.related(ctx, fan),
		})
	}

	offers, err := s.offers.OffersFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		n := model.Notification{
			ID:          "n-offer-" + o.ID,
			UserID:      userID,
			Type:        model.NotificationOffer,
			Text:        fmt.Sprintf("made an offer of R %s", humanize.Commaf(o.Amount)),
			CreatedAt:   o.CreatedAt,
			RelatedUser: s.related(ctx, o.Buyer.ID),
		}
		if it, err := s.catalog.Item(o.ItemID); err == nil {
			n.RelatedItem = &model.RelatedItem{ID: it.ID, ImageURL: it.ImageURL}
		}
		out = append(out, n)
	}

	out = append(out, model.Notification{
		ID:     "n-system-welcome",
		UserID: userID,
		Type:   model.NotificationSystem,
		Text:   welcomeText,
		IsRead: true,
	})
	return out, nil
}

// related 查不到的用户只保留 id
func (s *NotificationService) related(ctx context.Context, userID string) *model.User {
	u, err := s.users.Lookup(ctx, userID)
	if err != nil {
		u = model.User{ID: userID}
	}
	return &u
}
