package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/d60-Lab/tradetok/config"
	"github.com/d60-Lab/tradetok/internal/app"
	"github.com/d60-Lab/tradetok/pkg/logger"
	"github.com/d60-Lab/tradetok/pkg/tracing"
)

const usage = `usage: tradetok <command> [flags]

commands:
  inspect   list stored keys and snapshot sizes (-key prints one snapshot)
  seed      write seed data for every absent key
  health    load every container and print its status as JSON
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "tradetok %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	var action func(context.Context, *app.App) error
	switch cmd {
	case "inspect":
		action = func(ctx context.Context, a *app.App) error { return inspect(ctx, a, args) }
	case "seed":
		action = seed
	case "health":
		action = health
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	shutdown, err := tracing.Init(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Tracing.ExportAfter)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	// 命令行工具不需要模拟延迟
	cfg.Latency.Enabled = false
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("close app", zap.Error(err))
		}
	}()
	return action(ctx, a)
}

func inspect(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	key := fs.String("key", "", "print the raw snapshot stored under key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo := a.Repository()
	if *key != "" {
		raw, ok, err := repo.Load(ctx, *key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found", *key)
		}
		fmt.Println(raw)
		return nil
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	var total uint64
	for _, k := range keys {
		raw, _, err := repo.Load(ctx, k)
		if err != nil {
			return err
		}
		total += uint64(len(raw))
		fmt.Printf("%-20s %10s\n", k, humanize.Bytes(uint64(len(raw))))
	}
	fmt.Printf("%d keys, %s\n", len(keys), humanize.Bytes(total))
	return nil
}

func seed(ctx context.Context, a *app.App) error {
	start := time.Now()
	if err := a.Warm(ctx); err != nil {
		return err
	}
	seeded := 0
	for _, st := range a.Health().Containers {
		if st.Seeded {
			seeded++
			fmt.Printf("seeded %s\n", st.Key)
		}
	}
	fmt.Printf("%d keys seeded in %s\n", seeded, time.Since(start).Round(time.Millisecond))
	return nil
}

func health(ctx context.Context, a *app.App) error {
	if err := a.Warm(ctx); err != nil {
		return err
	}
	report := a.Health()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Healthy {
		return fmt.Errorf("unhealthy: corrupt snapshots were discarded")
	}
	return nil
}
