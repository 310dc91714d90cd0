package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mteodoro/riskstream/internal/anomaly"
	"github.com/mteodoro/riskstream/internal/config"
	"github.com/mteodoro/riskstream/internal/dataset"
	"github.com/mteodoro/riskstream/internal/generator"
	"github.com/mteodoro/riskstream/internal/latency"
	"github.com/mteodoro/riskstream/internal/sim"
	"github.com/mteodoro/riskstream/internal/sink"
	"github.com/mteodoro/riskstream/internal/window"
)

func main() {
	cfgPath := flag.String("config", "configs/simulation.yaml", "Path to simulation profile YAML")
	count := flag.Int("count", 0, "Event count target (overrides profile; 0 = use profile)")
	seed := flag.Int64("seed", 0, "Random seed (overrides profile; 0 = use profile)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Configuration ─────────────────────────────────────────────────────────
	infra, err := config.InfraFromEnv()
	if err != nil {
		slog.Error("failed to load environment config", "err", err)
		os.Exit(1)
	}
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load profile", "err", err)
		os.Exit(1)
	}
	profile := loader.Profile()
	if err := config.Validate(profile); err != nil {
		slog.Error("profile validation failed", "err", err)
		os.Exit(1)
	}
	if *count > 0 {
		profile.Producer.MaxEvents = *count
	}
	if *seed != 0 {
		profile.Producer.Seed = *seed
	}

	// ── Dataset ───────────────────────────────────────────────────────────────
	ds, err := dataset.Load(profile.Dataset)
	if err != nil {
		slog.Error("failed to load dataset", "err", err)
		os.Exit(1)
	}
	slog.Info("dataset loaded", "records", ds.Len())

	// ── Core components, each with its own RNG ────────────────────────────────
	baseSeed := profile.Producer.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	gen := generator.New(ds)
	inj, err := anomaly.New(profile.Producer.AnomalyRate, rand.New(rand.NewSource(baseSeed)))
	if err != nil {
		slog.Error("failed to configure anomaly injector", "err", err)
		os.Exit(1)
	}
	lat := latency.New(profile.Latency.BaseMs, profile.Latency.JitterMs,
		profile.Latency.SpikeProbability, rand.New(rand.NewSource(baseSeed+1)))
	if cond := profile.Latency.NetworkCondition; cond != "" {
		if err := lat.SetNetworkCondition(cond); err != nil {
			slog.Error("failed to set network condition", "err", err)
			os.Exit(1)
		}
		slog.Info("network condition applied", "condition", cond, "base_ms", lat.BaseMs())
	}

	var windows []*window.Aggregator
	for _, secs := range profile.Windows {
		windows = append(windows, window.New(time.Duration(secs)*time.Second))
	}

	// ── Sinks ─────────────────────────────────────────────────────────────────
	streamSink, err := sink.NewStreamSink(infra.RedisURL, infra.RedisPassword, infra.StreamKey, logger)
	if err != nil {
		slog.Error("failed to connect stream sink", "err", err)
		os.Exit(1)
	}
	defer streamSink.Close()
	sinks := []sim.Sink{streamSink}

	var archive *sink.ArchiveSink
	if profile.Archive.Enabled {
		archive, err = sink.NewArchiveSink(sink.ArchiveConfig{
			Endpoint:  infra.MinioEndpoint,
			AccessKey: infra.MinioAccessKey,
			SecretKey: infra.MinioSecretKey,
			Bucket:    infra.MinioBucket,
			UseSSL:    infra.MinioUseSSL,
			BatchSize: profile.Archive.BatchSize,
		}, logger)
		if err != nil {
			slog.Error("failed to connect archive sink", "err", err)
			os.Exit(1)
		}
		sinks = append(sinks, archive)
	}

	// ── Driver ────────────────────────────────────────────────────────────────
	drv := sim.New(gen, inj, lat, windows, sinks, logger, sim.Options{
		MaxEvents:   profile.Producer.MaxEvents,
		MaxDuration: profile.Producer.MaxDuration(),
		ReportEvery: profile.Producer.ReportEvery,
		ShowDetails: profile.Producer.ShowDetails,
	})

	// ── Profile hot-reload: retune the running simulation ─────────────────────
	loader.OnChange(func(p *config.Profile) {
		if err := config.Validate(p); err != nil {
			slog.Warn("hot-reload skipped: profile invalid", "err", err)
			return
		}
		drv.Retune(sim.Tuning{
			NetworkCondition: p.Latency.NetworkCondition,
			AnomalyRate:      p.Producer.AnomalyRate,
		})
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("profile watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── Metrics endpoint ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(infra.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics server error", "err", err)
		}
	}()

	// ── Run until done or interrupted ─────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("interrupt received, stopping…")
		cancel()
	}()

	summary := drv.Run(ctx)
	cancel()

	if archive != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := archive.Close(flushCtx); err != nil {
			slog.Warn("archive flush failed", "err", err)
		}
		flushCancel()
	}

	slog.Info("final summary",
		"events_sent", summary.EventsSent,
		"errors", summary.Errors,
		"anomalies_injected", summary.Injector.AnomaliesInjected,
		"observed_anomaly_rate", summary.Injector.ObservedRate,
		"latency_mean_ms", summary.Latency.MeanMs,
		"latency_spikes", summary.Latency.SpikeCount,
		"elapsed", summary.Elapsed.Round(time.Second))
}
