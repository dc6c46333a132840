package service

import (
	"context"
	"errors"
	"sort"

	"github.com/d60-Lab/tradetok/internal/model"
)

// InboxService 从消息日志推导收件箱摘要
type InboxService struct {
	threads *ThreadService
	users   *UserService
	rt      Runtime
}

func NewInboxService(threads *ThreadService, users *UserService, rt Runtime) *InboxService {
	return &InboxService{threads: threads, users: users, rt: rt}
}

// Threads userID 参与的非空会话，最近更新的在前
func (s *InboxService) Threads(ctx context.Context, userID string) (out []model.InboxThread, err error) {
	ctx, done := observe(ctx, "inbox", "threads")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyInbox); err != nil {
		return nil, err
	}
	ids, err := s.threads.messages.IDs(ctx)
	if err != nil {
		return nil, err
	}

	out = []model.InboxThread{}
	for _, id := range ids {
		other, ok := otherParticipant(id, userID)
		if !ok {
			continue
		}
		msgs, err := s.threads.messages.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}

		otherUser, err := s.users.Lookup(ctx, other)
		if errors.Is(err, ErrUserNotFound) {
			otherUser = model.User{ID: other}
		} else if err != nil {
			return nil, err
		}

		last := msgs[len(msgs)-1]
		out = append(out, model.InboxThread{
			ID:          id,
			OtherUser:   otherUser,
			LastMessage: last.Text,
			UpdatedAt:   last.Timestamp,
			UnreadCount: unreadFor(msgs, userID),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

// unreadFor 用户最后一次发言之后对方发来的消息数
func unreadFor(msgs []model.Message, userID string) int {
	n := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == userID {
			break
		}
		n++
	}
	return n
}
