package model

// Review 店铺评价，按被评价用户追加
type Review struct {
	ID           string `json:"id"`
	TargetUserID string `json:"targetUserId"`
	Reviewer     User   `json:"reviewer"`
	Rating       int    `json:"rating"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
}

// Comment 商品评论
type Comment struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	User      User   `json:"user"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}
