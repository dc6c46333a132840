package model

// Offer 买家对商品的出价，创建后不可变
type Offer struct {
	ID       string  `json:"id"`
	ItemID   string  `json:"itemId"`
	SellerID string  `json:"sellerId"`
	Buyer    User    `json:"buyer"`
	Amount   float64 `json:"amount"`

	// CreatedAt RFC3339
	CreatedAt string `json:"createdAt"`
}

// NotificationType 通知类别
type NotificationType string

const (
	NotificationLike   NotificationType = "like"
	NotificationFollow NotificationType = "follow"
	NotificationOffer  NotificationType = "offer"
	NotificationSystem NotificationType = "system"
)

// RelatedItem 通知里引用的商品缩略信息
type RelatedItem struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
}

// Notification 由点赞/关注/出价关系推导，不单独持久化
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Type        NotificationType `json:"type"`
	Text        string           `json:"text"`
	CreatedAt   string           `json:"createdAt,omitempty"`
	IsRead      bool             `json:"isRead"`
	RelatedUser *User            `json:"relatedUser,omitempty"`
	RelatedItem *RelatedItem     `json:"relatedItem,omitempty"`
}
