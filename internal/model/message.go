package model

// Message 会话消息，创建后不可变，按追加顺序即时间顺序
type Message struct {
	ID       string `json:"id"`
	SenderID string `json:"senderId"`
	Text     string `json:"text"`

	// CreatedAt 展示用的时钟文本（HH:MM）
	CreatedAt string `json:"createdAt"`

	// Timestamp unix 毫秒
	Timestamp int64 `json:"timestamp"`
}

// InboxThread 收件箱会话摘要，由消息日志推导
type InboxThread struct {
	ID          string `json:"id"`
	OtherUser   User   `json:"otherUser"`
	LastMessage string `json:"lastMessage"`
	UpdatedAt   int64  `json:"updatedAt"`
	UnreadCount int    `json:"unreadCount"`
}
