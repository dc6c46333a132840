package model

// UploadRecord 某用户某自然月的上传计数；Month 形如 "2023-10"
type UploadRecord struct {
	Count int    `json:"count"`
	Month string `json:"month"`
}
