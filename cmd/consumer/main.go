package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mteodoro/riskstream/internal/config"
	"github.com/mteodoro/riskstream/internal/consumer"
	"github.com/mteodoro/riskstream/internal/store"
)

func main() {
	duration := flag.Duration("duration", 0, "Run time budget (0 = run until interrupted)")
	writers := flag.Int("writers", 4, "Concurrent persistence writers")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	infra, err := config.InfraFromEnv()
	if err != nil {
		slog.Error("failed to load environment config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, infra.PostgresDSN)
	if err != nil {
		slog.Error("failed to create postgres pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st, err := store.New(pool)
	if err != nil {
		slog.Error("failed to create store", "err", err)
		os.Exit(1)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "err", err)
		os.Exit(1)
	}

	cons, err := consumer.New(consumer.Config{
		RedisURL:      infra.RedisURL,
		RedisPassword: infra.RedisPassword,
		Stream:        infra.StreamKey,
		Group:         infra.ConsumerGroup,
		Name:          infra.ConsumerName,
		Writers:       *writers,
		MaxDuration:   *duration,
	}, st, logger)
	if err != nil {
		slog.Error("failed to create consumer", "err", err)
		os.Exit(1)
	}
	defer cons.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(infra.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("interrupt received, stopping…")
		cancel()
	}()

	summary := cons.Run(ctx)
	slog.Info("final summary",
		"records_written", summary.RecordsWritten,
		"errors", summary.Errors,
		"elapsed", summary.Elapsed.Round(time.Second))
}
