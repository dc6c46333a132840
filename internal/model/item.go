package model

// Item 商品（listing）。IsLiked 按浏览者在读取时计算，不随 item 持久化
type Item struct {
	ID          string   `json:"id"`
	User        User     `json:"user"`
	ImageURL    string   `json:"imageUrl"`
	Images      []string `json:"images,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Likes       int      `json:"likes"`
	Comments    int      `json:"comments"`
	Value       float64  `json:"value"`
	IsLiked     bool     `json:"isLiked,omitempty"`
}

// ItemPage 分页结果
type ItemPage struct {
	Items   []Item `json:"items"`
	HasMore bool   `json:"hasMore"`
}

// CreateItemInput 发布商品入参
type CreateItemInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Value       float64  `json:"value" validate:"gt=0"`
	User        User     `json:"user"`
	ImageURLs   []string `json:"imageUrls" validate:"max=4"`
}
