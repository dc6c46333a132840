package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/repository"
)

func BenchmarkFollowToggle_And_FanRedundancy(b *testing.B) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	replicator := NewFanReplicator(durable.NewSetIndex(repo, "tradetok_fans"), 100000)
	stop := replicator.Start(4)
	svc := NewFollowService(durable.NewSetIndex(repo, "tradetok_follows"), replicator, TestRuntime(testNow))

	users := make([]string, 1000)
	for i := range users {
		users[i] = fmt.Sprintf("u%04d", i)
	}

	rng := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[rng.Intn(len(users))]
		to := users[rng.Intn(len(users))]
		if from == to {
			continue
		}
		_, _ = svc.Toggle(ctx, from, to)
	}
	b.StopTimer()
	_ = stop(ctx)
}

func BenchmarkQueryFansAndFollowing(b *testing.B) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	follows := durable.NewSetIndex(repo, "tradetok_follows")
	fans := durable.NewSetIndex(repo, "tradetok_fans")
	replicator := NewFanReplicator(fans, 1)
	svc := NewFollowService(follows, replicator, TestRuntime(testNow))

	// 构造：u0 有 N 个粉丝，同时 u0 也关注 N 个用户
	const N = 5000
	graph := map[string][]string{"u0": make([]string, 0, N)}
	for i := 1; i <= N; i++ {
		uid := fmt.Sprintf("u%v", i)
		graph[uid] = []string{"u0"}
		graph["u0"] = append(graph["u0"], uid)
	}
	if err := follows.Replace(ctx, graph); err != nil {
		b.Fatalf("seed follows: %v", err)
	}
	if err := replicator.Rebuild(ctx, follows); err != nil {
		b.Fatalf("rebuild fans: %v", err)
	}

	b.ResetTimer()
	b.Run("ListFollowers", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = svc.ListFollowers(ctx, "u0", 1, 50)
		}
	})

	b.Run("ListFollowing", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = svc.ListFollowing(ctx, "u0", 1, 50)
		}
	})
}
