package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"

	"github.com/ahaiya/essaydeliberate/internal/controller"
	"github.com/ahaiya/essaydeliberate/internal/corpus"
	"github.com/ahaiya/essaydeliberate/internal/evalregistry"
	"github.com/ahaiya/essaydeliberate/internal/graph"
	"github.com/ahaiya/essaydeliberate/internal/harness"
	"github.com/ahaiya/essaydeliberate/internal/metricslog"
	"github.com/ahaiya/essaydeliberate/internal/rubrics"
	"github.com/ahaiya/essaydeliberate/pkg/config"
	"github.com/ahaiya/essaydeliberate/pkg/generators"
	"github.com/ahaiya/essaydeliberate/pkg/logging"
	"github.com/ahaiya/essaydeliberate/pkg/metrics"
	"github.com/ahaiya/essaydeliberate/pkg/registry"
	"github.com/ahaiya/essaydeliberate/pkg/retry"
	"github.com/ahaiya/essaydeliberate/pkg/types"
)

const version = "0.1.0"

// runtime bundles everything a training or evaluation run needs, built once
// from a loaded Config.
type runtime struct {
	cfg         *config.Config
	corpus      *corpus.Loader
	ctrl        *controller.Controller
	graph       *graph.Graph
	harness     *harness.Harness
	promMetrics *metrics.Metrics
	metricsLog  *metricslog.Writer
	roles       []string
}

// buildRuntime wires config into a concrete Evaluator Registry, Controller,
// Graph, corpus, and Harness. startEpisode comes from resuming a checkpoint.
func buildRuntime(cfg *config.Config) (*runtime, func(), error) {
	logging.Configure(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, nil)

	rng := rand.New(rand.NewSource(42))

	var backend types.Generator
	if cfg.RunMode == config.RunModeProduction {
		g, err := generators.Create(cfg.Generator.Type, registry.Config(cfg.Generator.Options))
		if err != nil {
			return nil, nil, fmt.Errorf("building generator backend: %w", err)
		}
		backend = g
	}

	rubricsLoader := rubrics.NewLoader(cfg.Rubrics.Dir)

	evalReg := evalregistry.New(cfg, rubricsLoader, backend, retry.DefaultConfig(), rng, func(err error) {
		slog.Warn("rubric load failed, evaluating against placeholder", "err", err)
	})

	ctrl := controller.New(controller.Config{
		LearningRate: cfg.Training.LearningRate,
		Gamma:        cfg.Training.Gamma,
		BufferSize:   cfg.Training.BufferSize,
	}, rng)

	g := graph.New(evalReg, ctrl, cfg.GlobalSettings.MaxRounds)

	corpusLoader := corpus.NewLoader(cfg.Corpus.TSVPath, cfg.Corpus.MetadataPath, cfg.GlobalSettings.ScoreRange[1])
	if err := corpusLoader.Load(); err != nil {
		return nil, nil, fmt.Errorf("loading corpus: %w", err)
	}

	metricsLog, err := metricslog.Open(cfg.Metrics.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening metrics log: %w", err)
	}

	promMetrics := &metrics.Metrics{}
	var promServer *http.Server
	if cfg.Metrics.PrometheusAddr != "" {
		exporter := metrics.NewPrometheusExporter(promMetrics)
		mux := http.NewServeMux()
		mux.Handle("/metrics", exporter.Handler())
		promServer = &http.Server{Addr: cfg.Metrics.PrometheusAddr, Handler: mux}
		go func() {
			if err := promServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("prometheus server stopped", "err", err)
			}
		}()
		slog.Info("prometheus metrics listening", "addr", cfg.Metrics.PrometheusAddr)
	}

	h := harness.New(g, ctrl, corpusLoader, promMetrics, metricsLog, harness.Config{
		TotalEpisodes:   cfg.Training.TotalEpisodes,
		BatchSize:       cfg.Training.BatchSize,
		EpsilonStart:    cfg.Training.EpsilonStart,
		EpsilonEnd:      cfg.Training.EpsilonEnd,
		EpsilonDecay:    cfg.Training.EpsilonDecay,
		CheckpointEvery: cfg.Training.CheckpointEvery,
		CheckpointPath:  cfg.Checkpoint.Path,
	}, rng)

	cleanup := func() {
		if err := metricsLog.Close(); err != nil {
			slog.Warn("failed to close metrics log", "err", err)
		}
		if promServer != nil {
			if err := promServer.Close(); err != nil {
				slog.Warn("failed to close prometheus server", "err", err)
			}
		}
	}

	return &runtime{
		cfg:         cfg,
		corpus:      corpusLoader,
		ctrl:        ctrl,
		graph:       g,
		harness:     h,
		promMetrics: promMetrics,
		metricsLog:  metricsLog,
		roles:       evalReg.Roles(),
	}, cleanup, nil
}
