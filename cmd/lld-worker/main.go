// Command lld-worker runs the LLD rule-processing pipeline: it
// subscribes to discovery-value envelopes on NATS, dispatches each to a
// bounded worker pool, and drives the S1-S8 pipeline against the
// discovery-rule catalog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/c360/lld/internal/lld"
	"github.com/c360/lld/internal/lld/catalog"
	"github.com/c360/lld/internal/lld/configcache"
	"github.com/c360/lld/internal/lld/eventbus"
	"github.com/c360/lld/internal/lld/filter"
	"github.com/c360/lld/internal/lld/macropath"
	"github.com/c360/lld/internal/lld/macrosub"
	"github.com/c360/lld/internal/lld/reconcile"
	"github.com/c360/lld/internal/lld/row"
	"github.com/c360/lld/metric"
	"github.com/c360/lld/natsclient"
	"github.com/c360/lld/pkg/timestamp"
	"github.com/c360/lld/pkg/worker"
)

// workerConfig wraps lld.Config with the deployment-level settings the
// module itself doesn't need to know about (NATS URL, worker pool
// sizing, metrics port), mirroring the split between component config
// and platform-level config in the teacher's config package.
type workerConfig struct {
	LLD lld.Config `yaml:"lld"`

	NatsURL          string `yaml:"nats_url"`
	DiscoverySubject string `yaml:"discovery_subject"`
	Workers          int    `yaml:"workers"`
	QueueSize        int    `yaml:"queue_size"`
	MetricsPort      int    `yaml:"metrics_port"`
}

func defaultWorkerConfig() workerConfig {
	return workerConfig{
		LLD:              lld.DefaultConfig(),
		NatsURL:          nats.DefaultURL,
		DiscoverySubject: "lld.discovery",
		Workers:          10,
		QueueSize:        1000,
		MetricsPort:      9090,
	}
}

func loadConfig(path string) (workerConfig, error) {
	cfg := defaultWorkerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// discoveryEnvelope is the wire format published to DiscoverySubject:
// the rule id the raw discovery payload belongs to, plus the payload
// itself (spec.md §6's array-or-legacy-object shape, untouched).
type discoveryEnvelope struct {
	RuleID int64           `json:"rule_id"`
	Value  json.RawMessage `json:"value"`
}

// discoveryValue is one unit of work handed to the worker pool.
type discoveryValue struct {
	ruleID int64
	value  []byte
	ts     time.Time
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", "lld-worker")

	configPath := os.Getenv("LLD_CONFIG")
	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg workerConfig, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()

	metricsServer := metric.NewServer(cfg.MetricsPort, "/metrics", registry)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer metricsServer.Stop()

	cat, err := catalog.OpenPostgres(cfg.LLD.CatalogDSN)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	cache, err := configcache.New(cfg.LLD.ItemCacheSize)
	if err != nil {
		return fmt.Errorf("build config cache: %w", err)
	}

	substitutor := macrosub.New(cache)
	namedExprs, err := macrosub.NewRegistry(cache, cfg.LLD.NamedExpressionCacheSize)
	if err != nil {
		return fmt.Errorf("build named-expression registry: %w", err)
	}

	filterLoader := filter.NewLoader(cat, substitutor, namedExprs)
	macroPathLoader := macropath.NewLoader(cat)
	extractor := row.New(logger, cfg.LLD.MaxRowWarnings, filter.DefaultCompiler)

	fanout := reconcile.NewFanout(
		reconcile.NewLoggingReconciler("items", logger),
		reconcile.NewLoggingReconciler("triggers", logger),
		reconcile.NewLoggingReconciler("graphs", logger),
		reconcile.NewLoggingReconciler("hosts", logger),
	)

	natsClient, err := natsclient.NewClient(cfg.NatsURL)
	if err != nil {
		return fmt.Errorf("build nats client: %w", err)
	}
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer natsClient.Close(ctx)

	bus := eventbus.NewNatsBus(natsClient, cfg.LLD.EventBusSubjectPrefix, cfg.LLD.EventBusRateLimit, int(cfg.LLD.EventBusRateLimit)+1)

	orchestrator := lld.New(cat, cache, filterLoader, macroPathLoader, extractor, fanout, bus, cfg.LLD, registry, logger)

	pool := worker.NewPool[discoveryValue](cfg.Workers, cfg.QueueSize, func(ctx context.Context, dv discoveryValue) error {
		return orchestrator.Process(ctx, dv.ruleID, dv.value, dv.ts)
	}, worker.WithMetricsRegistry[discoveryValue](registry, "lld_worker"))

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer pool.Stop(10 * time.Second)

	err = natsClient.Subscribe(ctx, cfg.DiscoverySubject, func(_ context.Context, data []byte) {
		var env discoveryEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("discarding malformed discovery envelope", "error", err)
			return
		}
		dv := discoveryValue{ruleID: env.RuleID, value: env.Value, ts: timestamp.FromUnixMs(timestamp.Now())}
		if err := pool.Submit(dv); err != nil {
			logger.Warn("dropped discovery value, pool saturated", "rule_id", dv.ruleID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
