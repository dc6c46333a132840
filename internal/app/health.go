package app

import (
	"context"

	"github.com/d60-Lab/tradetok/internal/durable"
)

// HealthReport 各容器的加载状态与复制队列长度
type HealthReport struct {
	Driver          string           `json:"driver"`
	Healthy         bool             `json:"healthy"`
	Containers      []durable.Status `json:"containers"`
	ReplicatorQueue int              `json:"replicatorQueue"`
}

func (a *App) Health() HealthReport {
	r := HealthReport{Driver: a.cfg.Storage.Driver, Healthy: true, ReplicatorQueue: a.fans.QueueLen()}
	for _, c := range a.containers {
		st := c.Health()
		if !st.Healthy() {
			r.Healthy = false
		}
		r.Containers = append(r.Containers, st)
	}
	return r
}

// Keys 介质中现有的 key
func (a *App) Keys(ctx context.Context) ([]string, error) {
	return a.repo.Keys(ctx)
}

// Reload 丢弃所有内存副本，下次访问从介质重新读取
func (a *App) Reload() {
	for _, c := range a.containers {
		c.Invalidate()
	}
}

// Warm 加载全部容器；介质中缺失的种子数据在此时写入
func (a *App) Warm(ctx context.Context) error {
	for _, c := range a.containers {
		if err := c.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}
