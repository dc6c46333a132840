package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
)

// CommentService 商品评论
type CommentService struct {
	comments *durable.List[model.Comment]
	catalog  *CatalogService
	rt       Runtime
}

func NewCommentService(comments *durable.List[model.Comment], catalog *CatalogService, rt Runtime) *CommentService {
	return &CommentService{comments: comments, catalog: catalog, rt: rt}
}

// GetComments 最新的在前
func (s *CommentService) GetComments(ctx context.Context, itemID string) (out []model.Comment, err error) {
	ctx, done := observe(ctx, "comments", "get")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyComments); err != nil {
		return nil, err
	}
	out, err = s.comments.Filter(ctx, func(c model.Comment) bool { return c.ItemID == itemID })
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

type addCommentInput struct {
	ItemID string `validate:"required"`
	UserID string `validate:"required"`
	Text   string `validate:"required,max=1000"`
}

func (s *CommentService) AddComment(ctx context.Context, itemID string, user model.User, text string) (c model.Comment, err error) {
	ctx, done := observe(ctx, "comments", "add")
	defer func() { done(err) }()

	text = strings.TrimSpace(text)
	if err = validateStruct(addCommentInput{ItemID: itemID, UserID: user.ID, Text: text}); err != nil {
		return model.Comment{}, err
	}
	if _, err = s.catalog.Item(itemID); err != nil {
		return model.Comment{}, err
	}
	if err = s.rt.Delay.Wait(ctx, latencyComments); err != nil {
		return model.Comment{}, err
	}
	c = model.Comment{
		ID:        "c" + uuid.NewString(),
		ItemID:    itemID,
		User:      user.Public(),
		Text:      text,
		CreatedAt: s.rt.Now().Format(time.RFC3339),
	}
	if err = s.comments.Append(ctx, c); err != nil {
		return model.Comment{}, err
	}
	s.catalog.AdjustComments(itemID, 1)
	return c, nil
}

// RestoreCounts 把介质中种子以外的评论计入目录计数；启动时调用一次
func (s *CommentService) RestoreCounts(ctx context.Context, seed []model.Comment) error {
	seeded := make(map[string]struct{}, len(seed))
	for _, c := range seed {
		seeded[c.ID] = struct{}{}
	}
	all, err := s.comments.All(ctx)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, c := range all {
		if _, ok := seeded[c.ID]; !ok {
			counts[c.ItemID]++
		}
	}
	for itemID, n := range counts {
		s.catalog.AdjustComments(itemID, n)
	}
	return nil
}
