// Package app 组装持久化容器、服务与 feed 引擎，对 UI 层暴露调用入口
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/tradetok/config"
	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/feed"
	"github.com/d60-Lab/tradetok/internal/model"
	"github.com/d60-Lab/tradetok/internal/repository"
	"github.com/d60-Lab/tradetok/internal/service"
	"github.com/d60-Lab/tradetok/pkg/database"
	"github.com/d60-Lab/tradetok/pkg/logger"
	"github.com/d60-Lab/tradetok/pkg/redisx"
)

// 介质中的存储 key
const (
	KeyLikes    = "tradetok_likes"
	KeyFollows  = "tradetok_follows"
	KeyFans     = "tradetok_fans"
	KeyMessages = "tradetok_messages"
	KeyUploads  = "tradetok_uploads"
	KeyReviews  = "tradetok_reviews"
	KeyComments = "tradetok_comments"
	KeyUsers    = "tradetok_users"
	KeySession  = "tradetok_session"
	KeyOffers   = "tradetok_offers"
)

const replicatorWorkers = 4

type App struct {
	cfg  *config.Config
	repo repository.SnapshotRepository
	rt   service.Runtime

	likes    *service.LikeService
	follows  *service.FollowService
	threads  *service.ThreadService
	uploads  *service.UploadService
	reviews  *service.ReviewService
	catalog  *service.CatalogService
	users    *service.UserService
	comments *service.CommentService
	inbox    *service.InboxService
	listings *service.ListingService
	offers   *service.OfferService
	notifs   *service.NotificationService

	fans     *service.FanReplicator
	stopFans func(context.Context) error

	followIndex *durable.SetIndex
	containers  []durable.Container
}

type Option func(*App)

// WithRuntime 替换延迟/时钟（测试使用）
func WithRuntime(rt service.Runtime) Option {
	return func(a *App) { a.rt = rt }
}

// OpenRepository 按 storage.driver 打开快照介质
func OpenRepository(ctx context.Context, cfg *config.Config) (repository.SnapshotRepository, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return repository.NewMemorySnapshotRepository(), nil
	case "sqlite", "postgres":
		db, err := database.InitDB(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewGormSnapshotRepository(db)
	case "redis":
		client, err := redisx.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisSnapshotRepository(client, cfg.Redis.Prefix), nil
	case "pebble":
		return repository.NewPebbleSnapshotRepository(cfg.Pebble.Path)
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	repo, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := NewWithRepository(ctx, cfg, repo, opts...)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return a, nil
}

// NewWithRepository 在已打开的介质上组装服务；Close 时关闭介质
func NewWithRepository(ctx context.Context, cfg *config.Config, repo repository.SnapshotRepository, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, repo: repo, rt: runtimeFor(cfg)}
	for _, opt := range opts {
		opt(a)
	}

	seedUsers := service.SeedUsers()

	likeIndex := durable.NewSetIndex(repo, KeyLikes)
	a.followIndex = durable.NewSetIndex(repo, KeyFollows)
	fanIndex := durable.NewSetIndex(repo, KeyFans)
	messages := durable.NewThreadLog[model.Message](repo, KeyMessages)
	uploads := durable.NewRecordMap[model.UploadRecord](repo, KeyUploads)
	reviews := durable.NewList[model.Review](repo, KeyReviews).WithSeed(service.SeedReviews(seedUsers)...)
	seedComments := service.SeedComments(seedUsers)
	comments := durable.NewList[model.Comment](repo, KeyComments).WithSeed(seedComments...)
	offers := durable.NewList[model.Offer](repo, KeyOffers)
	directory := durable.NewRecordMap[model.User](repo, KeyUsers).WithSeed(service.SeedDirectory(seedUsers))
	session := durable.NewRecord[model.User](repo, KeySession)
	a.containers = []durable.Container{likeIndex, a.followIndex, fanIndex, messages, uploads, reviews, comments, directory, session, offers}

	a.fans = service.NewFanReplicator(fanIndex, 0)
	a.likes = service.NewLikeService(likeIndex, a.rt)
	a.follows = service.NewFollowService(a.followIndex, a.fans, a.rt)
	a.threads = service.NewThreadService(messages, a.rt)
	a.uploads = service.NewUploadService(uploads, a.rt)
	a.reviews = service.NewReviewService(reviews, a.rt)
	a.catalog = service.NewCatalogService(a.likes, a.rt, service.SeedItems(seedUsers))
	a.users = service.NewUserService(directory, session, a.rt)
	a.comments = service.NewCommentService(comments, a.catalog, a.rt)
	a.inbox = service.NewInboxService(a.threads, a.users, a.rt)
	a.listings = service.NewListingService(a.catalog, a.uploads, a.rt)
	a.offers = service.NewOfferService(offers, a.catalog, a.rt)
	a.notifs = service.NewNotificationService(a.likes, a.follows, a.offers, a.catalog, a.users, a.rt)

	// 目录计数只在内存中，按持久化的评论补齐
	if err := a.comments.RestoreCounts(ctx, seedComments); err != nil {
		return nil, fmt.Errorf("restore comment counts: %w", err)
	}

	// 异步任务可能在上次退出时丢失，启动时以关注索引为准重建
	if err := a.fans.Rebuild(ctx, a.followIndex); err != nil {
		return nil, fmt.Errorf("rebuild fan index: %w", err)
	}
	a.stopFans = a.fans.Start(replicatorWorkers)

	logger.Info("app ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.Bool("latency", cfg.Latency.Enabled),
		zap.Float64("latency_scale", cfg.Latency.Scale))
	return a, nil
}

func runtimeFor(cfg *config.Config) service.Runtime {
	rt := service.DefaultRuntime()
	if !cfg.Latency.Enabled {
		rt.Delay = service.NoDelay{}
	} else {
		rt.Delay = service.SleepDelay{Scale: cfg.Latency.Scale}
	}
	return rt
}

// Close 排空复制队列后关闭介质
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.stopFans != nil {
		if err := a.stopFans(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop fan replicator: %w", err))
		}
	}
	if err := a.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repository: %w", err))
	}
	return errors.Join(errs...)
}

// Repository 底层快照介质
func (a *App) Repository() repository.SnapshotRepository { return a.repo }

func (a *App) Users() *service.UserService                 { return a.users }
func (a *App) Comments() *service.CommentService           { return a.comments }
func (a *App) Inbox() *service.InboxService                { return a.inbox }
func (a *App) Listings() *service.ListingService           { return a.listings }
func (a *App) Follows() *service.FollowService             { return a.follows }
func (a *App) Catalog() *service.CatalogService            { return a.catalog }
func (a *App) Offers() *service.OfferService               { return a.offers }
func (a *App) Notifications() *service.NotificationService { return a.notifs }

// FanReplicator 粉丝索引的异步复制器
func (a *App) FanReplicator() *service.FanReplicator { return a.fans }

// NewFeed 以配置的页大小和限速创建一个 feed 引擎
func (a *App) NewFeed() *feed.Engine {
	opts := feed.Options{PageSize: a.cfg.Feed.PageSize}
	if a.cfg.Feed.FetchesPerSecond > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(a.cfg.Feed.FetchesPerSecond), 1)
	}
	return feed.New(a.catalog, a.catalog, opts)
}
