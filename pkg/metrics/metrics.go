// Package metrics 存储层与 feed 引擎共用的 prometheus 指标，注册到默认 registry
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradetok_store_operations_total",
		Help: "Store operations by store, operation and result.",
	}, []string{"store", "op", "result"})

	SnapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradetok_snapshot_writes_total",
		Help: "Full snapshot writes per medium key.",
	}, []string{"key"})

	SnapshotBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradetok_snapshot_bytes",
		Help: "Size of the last snapshot written per medium key.",
	}, []string{"key"})

	SnapshotRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradetok_snapshot_recoveries_total",
		Help: "Corrupt snapshots discarded and replaced by an empty collection.",
	}, []string{"key"})

	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradetok_feed_fetches_total",
		Help: "Feed page fetches by result (ok, error, stale).",
	}, []string{"result"})

	FeedFetchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradetok_feed_fetch_seconds",
		Help:    "Latency of feed page fetches.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	FeedRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradetok_feed_rollbacks_total",
		Help: "Optimistic like mutations reverted after a failed toggle.",
	})

	ReplicatorDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradetok_fan_replicator_drops_total",
		Help: "Follower index jobs dropped because the queue was full.",
	})
)

// Result 把 error 映射成标签值
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
