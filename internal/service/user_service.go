package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("user with this email already exists")
)

// Credentials 登录/注册入参
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	BannerURL string `json:"bannerUrl,omitempty"`
}

type loginInput struct {
	Email string `validate:"required,email"`
}

type signupInput struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,max=64"`
	Password string `validate:"omitempty,min=6,max=72"`
}

// UserService 用户目录（email -> user）与当前会话
type UserService struct {
	directory *durable.RecordMap[model.User]
	session   *durable.Record[model.User]
	rt        Runtime

	// signupMu 保证新 id 按目录大小递增
	signupMu sync.Mutex
}

func NewUserService(directory *durable.RecordMap[model.User], session *durable.Record[model.User], rt Runtime) *UserService {
	return &UserService{directory: directory, session: session, rt: rt}
}

// SeedDirectory 以 email 为 key 的初始目录
func SeedDirectory(users []model.User) map[string]model.User {
	out := make(map[string]model.User, len(users))
	for _, u := range users {
		out[u.Email] = u
	}
	return out
}

func (s *UserService) Login(ctx context.Context, creds Credentials) (u model.User, err error) {
	ctx, done := observe(ctx, "users", "login")
	defer func() { done(err) }()

	email := normalizeEmail(creds.Email)
	if err = validateStruct(loginInput{Email: email}); err != nil {
		return model.User{}, err
	}
	if err = s.rt.Delay.Wait(ctx, latencyAuth); err != nil {
		return model.User{}, err
	}
	stored, ok, err := s.directory.Get(ctx, email)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if stored.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(creds.Password)) != nil {
			return model.User{}, ErrInvalidCredentials
		}
	}
	u = stored.Public()
	if err = s.session.Set(ctx, u); err != nil {
		return model.User{}, err
	}
	logger.Info("user logged in", zap.String("user", u.ID))
	return u, nil
}

func (s *UserService) Signup(ctx context.Context, creds Credentials) (u model.User, err error) {
	ctx, done := observe(ctx, "users", "signup")
	defer func() { done(err) }()

	email := normalizeEmail(creds.Email)
	username := strings.TrimSpace(creds.Username)
	if err = validateStruct(signupInput{Email: email, Username: username, Password: creds.Password}); err != nil {
		return model.User{}, err
	}
	if err = s.rt.Delay.Wait(ctx, latencyAuth); err != nil {
		return model.User{}, err
	}

	var hash string
	if creds.Password != "" {
		b, herr := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if herr != nil {
			return model.User{}, fmt.Errorf("hash password: %w", herr)
		}
		hash = string(b)
	}

	s.signupMu.Lock()
	defer s.signupMu.Unlock()

	n, err := s.directory.Len(ctx)
	if err != nil {
		return model.User{}, err
	}
	created, err := s.directory.Update(ctx, email, func(_ model.User, exists bool) (model.User, error) {
		if exists {
			return model.User{}, ErrEmailTaken
		}
		nu := model.User{
			ID:           fmt.Sprintf("u%d", n+1),
			Username:     username,
			Email:        email,
			AvatarURL:    creds.AvatarURL,
			BannerURL:    creds.BannerURL,
			Plan:         model.PlanBasic,
			PasswordHash: hash,
		}
		if nu.AvatarURL == "" {
			nu.AvatarURL = picsum(username, 48, 48)
		}
		if nu.BannerURL == "" {
			nu.BannerURL = picsum(username+"-banner", 600, 200)
		}
		return nu, nil
	})
	if err != nil {
		return model.User{}, err
	}
	u = created.Public()
	if err = s.session.Set(ctx, u); err != nil {
		return model.User{}, err
	}
	logger.Info("user signed up", zap.String("user", u.ID))
	return u, nil
}

func (s *UserService) Logout(ctx context.Context) error {
	return s.session.Clear(ctx)
}

// Session 当前登录用户；无会话时 ok 为 false
func (s *UserService) Session(ctx context.Context) (u model.User, ok bool, err error) {
	ctx, done := observe(ctx, "users", "session")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencySession); err != nil {
		return model.User{}, false, err
	}
	return s.session.Get(ctx)
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (u model.User, err error) {
	ctx, done := observe(ctx, "users", "get")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyGetUser); err != nil {
		return model.User{}, err
	}
	return s.Lookup(ctx, userID)
}

// Lookup 同步按 id 查找，不模拟延迟
func (s *UserService) Lookup(ctx context.Context, userID string) (model.User, error) {
	_, u, ok, err := s.directory.Find(ctx, func(_ string, u model.User) bool { return u.ID == userID })
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}
	return u.Public(), nil
}

func (s *UserService) UpdatePlan(ctx context.Context, userID string, plan model.Plan) (u model.User, err error) {
	ctx, done := observe(ctx, "users", "update_plan")
	defer func() { done(err) }()

	if !plan.Valid() {
		return model.User{}, invalid("unknown plan %q", plan)
	}
	if err = s.rt.Delay.Wait(ctx, latencyUpdatePlan); err != nil {
		return model.User{}, err
	}
	return s.update(ctx, userID, func(u *model.User) { u.Plan = plan })
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (u model.User, err error) {
	ctx, done := observe(ctx, "users", "update_profile")
	defer func() { done(err) }()

	if upd.Username != nil {
		trimmed := strings.TrimSpace(*upd.Username)
		if trimmed == "" {
			return model.User{}, invalid("username must not be empty")
		}
		upd.Username = &trimmed
	}
	if err = validateStruct(upd); err != nil {
		return model.User{}, err
	}
	if err = s.rt.Delay.Wait(ctx, latencyUpdateProfile); err != nil {
		return model.User{}, err
	}
	return s.update(ctx, userID, func(u *model.User) {
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.AvatarURL != nil {
			u.AvatarURL = *upd.AvatarURL
		}
		if upd.BannerURL != nil {
			u.BannerURL = *upd.BannerURL
		}
	})
}

// update 修改目录中的用户，会话是同一用户时一并刷新
func (s *UserService) update(ctx context.Context, userID string, fn func(*model.User)) (model.User, error) {
	unlock := s.rt.Locks.Lock("user:" + userID)
	defer unlock()

	email, _, ok, err := s.directory.Find(ctx, func(_ string, u model.User) bool { return u.ID == userID })
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}
	updated, err := s.directory.Update(ctx, email, func(cur model.User, exists bool) (model.User, error) {
		if !exists {
			return model.User{}, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
		}
		fn(&cur)
		return cur, nil
	})
	if err != nil {
		return model.User{}, err
	}

	pub := updated.Public()
	cur, ok, err := s.session.Get(ctx)
	if err != nil {
		return model.User{}, err
	}
	if ok && cur.ID == userID {
		if err := s.session.Set(ctx, pub); err != nil {
			return model.User{}, err
		}
	}
	return pub, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
