package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/pkg/logger"
	"github.com/d60-Lab/tradetok/pkg/metrics"
)

type replicateAction int

const (
	actionAdd replicateAction = iota + 1
	actionRemove
)

type replicateJob struct {
	action replicateAction
	userID string
	fanID  string
	enqAt  time.Time
}

// FanReplicator 把关注关系异步冗余到粉丝索引（target -> followers）
// 同一 target 的任务总是落到同一个 worker，保证按入队顺序生效
type FanReplicator struct {
	fans *durable.SetIndex
	ch   chan replicateJob
	lag  chan time.Duration

	mu     sync.RWMutex
	shards []chan replicateJob
	closed bool
	wg     sync.WaitGroup
}

func NewFanReplicator(fans *durable.SetIndex, queueSize int) *FanReplicator {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &FanReplicator{fans: fans, ch: make(chan replicateJob, queueSize), lag: make(chan time.Duration, 4096)}
}

// shardFor 按 userID 路由到固定 worker
func shardFor(userID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(n))
}

// Start 启动一个分发协程和 workers 个消费者，返回停止函数；停止时先排空队列
func (r *FanReplicator) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	per := cap(r.ch)/workers + 1
	shards := make([]chan replicateJob, workers)
	for i := range shards {
		shards[i] = make(chan replicateJob, per)
	}
	r.mu.Lock()
	r.shards = shards
	r.mu.Unlock()

	for _, shard := range shards {
		r.wg.Add(1)
		go func(in <-chan replicateJob) {
			defer r.wg.Done()
			for job := range in {
				r.apply(job)
			}
		}(shard)
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for job := range r.ch {
			shards[shardFor(job.userID, len(shards))] <- job
		}
		for _, shard := range shards {
			close(shard)
		}
	}()

	return func(ctx context.Context) error {
		r.mu.Lock()
		if !r.closed {
			r.closed = true
			close(r.ch)
		}
		r.mu.Unlock()

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *FanReplicator) apply(job replicateJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch job.action {
	case actionAdd:
		err = r.fans.Add(ctx, job.userID, job.fanID)
	case actionRemove:
		err = r.fans.Remove(ctx, job.userID, job.fanID)
	}
	if err != nil {
		logger.Error("replicate fan index failed",
			zap.String("user", job.userID), zap.String("fan", job.fanID), zap.Error(err))
		return
	}
	select {
	case r.lag <- time.Since(job.enqAt):
	default:
	}
}

func (r *FanReplicator) EnqueueAdd(userID, fanID string) {
	r.enqueue(replicateJob{action: actionAdd, userID: userID, fanID: fanID, enqAt: time.Now()})
}

func (r *FanReplicator) EnqueueRemove(userID, fanID string) {
	r.enqueue(replicateJob{action: actionRemove, userID: userID, fanID: fanID, enqAt: time.Now()})
}

func (r *FanReplicator) enqueue(job replicateJob) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		logger.Warn("replicator stopped, drop job", zap.String("user", job.userID), zap.String("fan", job.fanID))
		metrics.ReplicatorDrops.Inc()
		return
	}
	select {
	case r.ch <- job:
	default:
		logger.Warn("replicator queue full, drop job", zap.String("user", job.userID), zap.String("fan", job.fanID))
		metrics.ReplicatorDrops.Inc()
	}
}

// Rebuild 从关注索引全量重建粉丝索引，修复丢弃或未落地的任务
func (r *FanReplicator) Rebuild(ctx context.Context, follows *durable.SetIndex) error {
	snap, err := follows.Snapshot(ctx)
	if err != nil {
		return err
	}
	fans := make(map[string][]string)
	for follower, targets := range snap {
		for _, target := range targets {
			fans[target] = append(fans[target], follower)
		}
	}
	return r.fans.Replace(ctx, fans)
}

// Lag 返回入队到落地耗时的只读通道（每处理一条发送一次，满则丢弃）
func (r *FanReplicator) Lag() <-chan time.Duration { return r.lag }

// QueueLen 返回当前排队任务数（采样值）
func (r *FanReplicator) QueueLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.ch)
	for _, shard := range r.shards {
		n += len(shard)
	}
	return n
}
