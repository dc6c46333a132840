package model

// Plan 订阅套餐
type Plan string

const (
	PlanBasic    Plan = "Basic"
	PlanStandard Plan = "Standard"
	PlanPremium  Plan = "Premium"
)

// Valid 是否为已知套餐
func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanStandard, PlanPremium:
		return true
	}
	return false
}

// User 用户；Items / Messages / Reviews 只引用不拥有
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
	Plan      Plan   `json:"plan,omitempty"`
	BannerURL string `json:"bannerUrl,omitempty"`

	// PasswordHash bcrypt 哈希，只存在于用户目录快照中
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Public 去掉凭据后的副本（写入 session、挂到 item/review 上）
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// ProfileUpdate 资料的部分更新，nil 字段保持不变
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=1,max=64"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	BannerURL *string `json:"bannerUrl,omitempty"`
}
