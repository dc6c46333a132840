package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
)

// FollowService 关注关系（follower -> targets），粉丝索引由 FanReplicator 异步维护
type FollowService struct {
	follows    *durable.SetIndex
	replicator *FanReplicator
	fans       *durable.SetIndex
	rt         Runtime
}

// NewFollowService replicator 可为 nil，此时 ListFollowers 退化为扫描关注索引
func NewFollowService(follows *durable.SetIndex, replicator *FanReplicator, rt Runtime) *FollowService {
	s := &FollowService{follows: follows, replicator: replicator, rt: rt}
	if replicator != nil {
		s.fans = replicator.fans
	}
	return s
}

type relationKey struct {
	From string `validate:"required"`
	To   string `validate:"required"`
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (ok bool, err error) {
	ctx, done := observe(ctx, "follows", "is_following")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyIsFollowing); err != nil {
		return false, err
	}
	return s.follows.Has(ctx, followerID, targetID)
}

// Toggle 翻转关注状态并返回新状态
func (s *FollowService) Toggle(ctx context.Context, followerID, targetID string) (now bool, err error) {
	ctx, done := observe(ctx, "follows", "toggle")
	defer func() { done(err) }()

	if err = validateStruct(relationKey{From: followerID, To: targetID}); err != nil {
		return false, err
	}
	if followerID == targetID {
		return false, ErrFollowSelf
	}

	unlock := s.rt.Locks.Lock("follow:" + followerID + "|" + targetID)
	defer unlock()

	if err = s.rt.Delay.Wait(ctx, latencyToggleFollow); err != nil {
		return false, err
	}
	if now, err = s.follows.Toggle(ctx, followerID, targetID); err != nil {
		return false, err
	}
	logger.Debug("follow toggled",
		zap.String("follower", followerID), zap.String("target", targetID), zap.Bool("following", now))

	if s.replicator != nil {
		if now {
			s.replicator.EnqueueAdd(targetID, followerID)
		} else {
			s.replicator.EnqueueRemove(targetID, followerID)
		}
	}
	return now, nil
}

func (s *FollowService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	ids, err := s.follows.Members(ctx, userID)
	if err != nil {
		return nil, err
	}
	return paginate(ids, page, pageSize), nil
}

func (s *FollowService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	var (
		ids []string
		err error
	)
	if s.fans != nil {
		ids, err = s.fans.Members(ctx, userID)
	} else {
		ids, err = s.scanFollowers(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return paginate(ids, page, pageSize), nil
}

func (s *FollowService) scanFollowers(ctx context.Context, userID string) ([]string, error) {
	snap, err := s.follows.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for follower, targets := range snap {
		for _, t := range targets {
			if t == userID {
				out = append(out, follower)
				break
			}
		}
	}
	sortStrings(out)
	return out, nil
}

func (s *FollowService) CountFollowing(ctx context.Context, userID string) (int, error) {
	return s.follows.Count(ctx, userID)
}
