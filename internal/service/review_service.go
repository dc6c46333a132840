package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
)

// ReviewService 店铺评价（按被评价用户过滤的追加列表）
type ReviewService struct {
	reviews *durable.List[model.Review]
	rt      Runtime
}

func NewReviewService(reviews *durable.List[model.Review], rt Runtime) *ReviewService {
	return &ReviewService{reviews: reviews, rt: rt}
}

// GetReviews 最新的在前
func (s *ReviewService) GetReviews(ctx context.Context, targetUserID string) (out []model.Review, err error) {
	ctx, done := observe(ctx, "reviews", "get")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyGetReviews); err != nil {
		return nil, err
	}
	out, err = s.reviews.Filter(ctx, func(r model.Review) bool { return r.TargetUserID == targetUserID })
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

type addReviewInput struct {
	TargetUserID string `validate:"required"`
	ReviewerID   string `validate:"required"`
	Rating       int    `validate:"min=1,max=5"`
	Text         string `validate:"required,max=2000"`
}

func (s *ReviewService) AddReview(ctx context.Context, targetUserID string, reviewer model.User, rating int, text string) (r model.Review, err error) {
	ctx, done := observe(ctx, "reviews", "add")
	defer func() { done(err) }()

	text = strings.TrimSpace(text)
	in := addReviewInput{TargetUserID: targetUserID, ReviewerID: reviewer.ID, Rating: rating, Text: text}
	if err = validateStruct(in); err != nil {
		return model.Review{}, err
	}
	if err = s.rt.Delay.Wait(ctx, latencyAddReview); err != nil {
		return model.Review{}, err
	}
	r = model.Review{
		ID:           "r" + uuid.NewString(),
		TargetUserID: targetUserID,
		Reviewer:     reviewer.Public(),
		Rating:       rating,
		Text:         text,
		CreatedAt:    s.rt.Now().Format(time.RFC3339),
	}
	if err = s.reviews.Append(ctx, r); err != nil {
		return model.Review{}, err
	}
	return r, nil
}

// RatingSummary 平均分与评价数，无评价时平均分为 0
func (s *ReviewService) RatingSummary(ctx context.Context, targetUserID string) (avg float64, n int, err error) {
	rs, err := s.reviews.Filter(ctx, func(r model.Review) bool { return r.TargetUserID == targetUserID })
	if err != nil || len(rs) == 0 {
		return 0, 0, err
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs)), len(rs), nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
