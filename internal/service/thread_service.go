package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
)

const threadSeparator = "-"

// ThreadID 两个参与者的规范会话 id，与参数顺序无关
func ThreadID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, threadSeparator)
}

// otherParticipant 返回 threadID 中除 userID 外的另一方
func otherParticipant(threadID, userID string) (string, bool) {
	if other, ok := strings.CutPrefix(threadID, userID+threadSeparator); ok && ThreadID(userID, other) == threadID {
		return other, true
	}
	if other, ok := strings.CutSuffix(threadID, threadSeparator+userID); ok && ThreadID(userID, other) == threadID {
		return other, true
	}
	return "", false
}

// ThreadService 会话消息日志（thread id -> 按时间追加的消息）
type ThreadService struct {
	messages *durable.ThreadLog[model.Message]
	rt       Runtime
}

func NewThreadService(messages *durable.ThreadLog[model.Message], rt Runtime) *ThreadService {
	return &ThreadService{messages: messages, rt: rt}
}

// GetMessages 未知会话返回空切片
func (s *ThreadService) GetMessages(ctx context.Context, threadID string) (msgs []model.Message, err error) {
	ctx, done := observe(ctx, "messages", "get")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyGetMessages); err != nil {
		return nil, err
	}
	return s.messages.Get(ctx, threadID)
}

type sendMessageInput struct {
	ThreadID string `validate:"required"`
	SenderID string `validate:"required"`
	Text     string `validate:"required"`
}

// SendMessage 追加一条消息；会话不存在时创建
func (s *ThreadService) SendMessage(ctx context.Context, threadID, senderID, text string) (msg model.Message, err error) {
	ctx, done := observe(ctx, "messages", "send")
	defer func() { done(err) }()

	text = strings.TrimSpace(text)
	if err = validateStruct(sendMessageInput{ThreadID: threadID, SenderID: senderID, Text: text}); err != nil {
		return model.Message{}, err
	}

	unlock := s.rt.Locks.Lock("thread:" + threadID)
	defer unlock()

	if err = s.rt.Delay.Wait(ctx, latencySendMessage); err != nil {
		return model.Message{}, err
	}
	now := s.rt.Now()
	msg = model.Message{
		ID:        "m" + uuid.NewString(),
		SenderID:  senderID,
		Text:      text,
		CreatedAt: now.Format("15:04"),
		Timestamp: now.UnixMilli(),
	}
	if err = s.messages.Append(ctx, threadID, msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}
