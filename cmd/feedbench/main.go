package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dustin/go-humanize"

	"github.com/d60-Lab/tradetok/config"
	"github.com/d60-Lab/tradetok/internal/app"
	"github.com/d60-Lab/tradetok/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// runConc 用 conc 个 worker 执行 n 次 op，返回每次耗时
func runConc(n, conc int, op func(i int)) []time.Duration {
	if conc > n {
		conc = n
	}
	feed := make(chan int, n)
	for i := 0; i < n; i++ {
		feed <- i
	}
	close(feed)

	out := make(chan time.Duration, n)
	var wg sync.WaitGroup
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				op(i)
				out <- time.Since(st)
			}
		}()
	}
	wg.Wait()
	close(out)
	recs := make([]time.Duration, 0, n)
	for d := range out {
		recs = append(recs, d)
	}
	return recs
}

func report(name string, total time.Duration, recs []time.Duration) {
	per := time.Duration(0)
	if len(recs) > 0 {
		per = total / time.Duration(len(recs))
	}
	fmt.Printf("%-16s ops=%s total=%v per op=%v p50=%v p95=%v p99=%v\n",
		name, humanize.Comma(int64(len(recs))), total, per, pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
}

func main() {
	cfg := must(config.Load())
	must(0, logger.Init(cfg))
	defer logger.Sync()

	// INPROC_REDIS=1 跑在进程内 redis 上，不依赖外部实例
	if os.Getenv("INPROC_REDIS") != "" {
		mr := must(miniredis.Run())
		defer mr.Close()
		cfg.Storage.Driver = "redis"
		cfg.Redis.Addr = mr.Addr()
	}

	ctx := context.Background()
	a := must(app.New(ctx, cfg))
	defer a.Close(ctx)

	N := envInt("N", 1000)
	CONC := envInt("CONC", 8)
	PAGE := envInt("PAGE", 50)

	followers := make([]string, N)
	for i := range followers {
		followers[i] = fmt.Sprintf("bench-%06d", i)
	}
	const celeb = "u1"

	// 复制落地延迟
	var (
		repMu   sync.Mutex
		repRecs []time.Duration
	)
	doneRep := make(chan struct{})
	go func() {
		lag := a.FanReplicator().Lag()
		for {
			select {
			case d := <-lag:
				repMu.Lock()
				repRecs = append(repRecs, d)
				repMu.Unlock()
			case <-doneRep:
				return
			}
		}
	}()

	maxQ := 0
	quitSample := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := a.FanReplicator().QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	t0 := time.Now()
	followRecs := runConc(N, CONC, func(i int) {
		_, _ = a.ToggleFollow(ctx, followers[i], celeb)
	})
	followDur := time.Since(t0)
	close(quitSample)

	t1 := time.Now()
	likeRecs := runConc(N, CONC, func(i int) {
		_, _ = a.ToggleLike(ctx, followers[i], fmt.Sprintf("i%d", i%9+1))
	})
	likeDur := time.Since(t1)

	// 每个 viewer 挂载 feed 并滚动到底
	viewers := N / 10
	if viewers < 1 {
		viewers = 1
	}
	t2 := time.Now()
	feedRecs := runConc(viewers, CONC, func(i int) {
		f := a.NewFeed()
		if err := f.Mount(ctx, followers[i]); err != nil {
			return
		}
		for {
			fetched, err := f.OnLastItemVisible(ctx)
			if err != nil || !fetched {
				return
			}
		}
	})
	feedDur := time.Since(t2)

	q0 := time.Now()
	fans := must(a.Follows().ListFollowers(ctx, celeb, 1, PAGE))
	fansDur := time.Since(q0)

	sample := must(a.Follows().ListFollowing(ctx, followers[0], 1, PAGE))
	close(doneRep)
	<-sampled

	fmt.Printf("N=%d, CONC=%d, PAGE=%d, driver=%s, latency=%v x%.2f\n",
		N, CONC, PAGE, cfg.Storage.Driver, cfg.Latency.Enabled, cfg.Latency.Scale)
	report("follow toggle", followDur, followRecs)
	report("like toggle", likeDur, likeRecs)
	report("feed scroll", feedDur, feedRecs)
	fmt.Printf("Query followers(%d) latency: %v (got %d), following sample=%v\n", PAGE, fansDur, len(fans), sample)

	repMu.Lock()
	defer repMu.Unlock()
	if len(repRecs) > 0 {
		fmt.Printf("Replication landing: samples=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d\n",
			len(repRecs), pct(repRecs, 0.50), pct(repRecs, 0.95), pct(repRecs, 0.99), maxQ)
	}
}
