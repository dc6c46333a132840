package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/tradetok/pkg/metrics"
)

// 各操作的模拟网络往返
const (
	latencyIsFollowing   = 100 * time.Millisecond
	latencyToggleLike    = 200 * time.Millisecond
	latencyToggleFollow  = 300 * time.Millisecond
	latencyGetMessages   = 200 * time.Millisecond
	latencySendMessage   = 300 * time.Millisecond
	latencyUploads       = 100 * time.Millisecond
	latencyGetReviews    = 400 * time.Millisecond
	latencyAddReview     = 600 * time.Millisecond
	latencyGetItems      = 500 * time.Millisecond
	latencyItemsByUser   = 300 * time.Millisecond
	latencyCreateItem    = 1500 * time.Millisecond
	latencyComments      = 400 * time.Millisecond
	latencyAuth          = 1000 * time.Millisecond
	latencySession       = 200 * time.Millisecond
	latencyGetUser       = 300 * time.Millisecond
	latencyUpdatePlan    = 500 * time.Millisecond
	latencyUpdateProfile = 800 * time.Millisecond
	latencyInbox         = 600 * time.Millisecond
	latencyNotifications = 600 * time.Millisecond
	latencyMakeOffer     = 1500 * time.Millisecond
)

var tracer = otel.Tracer("github.com/d60-Lab/tradetok/internal/service")

// Delay 模拟一次网络往返；ctx 取消时立即返回
type Delay interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepDelay 真实等待 d*Scale
type SleepDelay struct {
	Scale float64
}

func (s SleepDelay) Wait(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * s.Scale)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay 不等待（测试使用）
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// Runtime 服务共享的运行时依赖
type Runtime struct {
	Delay Delay
	Now   func() time.Time
	Locks *KeyedMutex
}

// DefaultRuntime 真实延迟 + 系统时钟
func DefaultRuntime() Runtime {
	return Runtime{Delay: SleepDelay{Scale: 1}, Now: time.Now, Locks: NewKeyedMutex()}
}

// TestRuntime 无延迟，时钟固定在 now
func TestRuntime(now time.Time) Runtime {
	return Runtime{Delay: NoDelay{}, Now: func() time.Time { return now }, Locks: NewKeyedMutex()}
}

// observe 为一次 store 调用开 span 并计数
func observe(ctx context.Context, store, op string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, store+"."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("tradetok.store", store)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.StoreOps.WithLabelValues(store, op, metrics.Result(err)).Inc()
	}
}
