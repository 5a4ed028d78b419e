package main

// #region imports
import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/codec"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/config"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/consensus"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/hallucination"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/orchestrator"
)

// #endregion

// #region runtime

// runtime owns everything built from the config and closes it in reverse.
type runtime struct {
	pipeline *orchestrator.Pipeline
	store    memory.Store
	closers  []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// buildRouter registers every backend family the config can reach.
// The codec prefix is only served when an address is configured.
func buildRouter(cfg config.Config, logger *zap.Logger) (*backend.Router, []func() error, error) {
	router := backend.NewRouter().
		Register(backend.PrefixOpenAI, backend.NewOpenAIInvoker(cfg.OpenAIConfig(), logger)).
		Register(backend.PrefixScripted, backend.NewScriptedInvoker(cfg.Backends.Scripts))

	var closers []func() error
	if cfg.Backends.CodecAddr != "" {
		client, err := codec.NewClient(cfg.Backends.CodecAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect codec %s: %w", cfg.Backends.CodecAddr, err)
		}
		router.Register(backend.PrefixCodec, client)
		closers = append(closers, client.Close)
	}
	return router, closers, nil
}

func buildRuntime(cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*runtime, error) {
	roster, err := cfg.Roster()
	if err != nil {
		return nil, err
	}
	rt := &runtime{}

	router, closers, err := buildRouter(cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closers...)

	store, err := memory.Open(cfg.Memory.Driver, cfg.Memory.Path, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if store != nil {
		rt.store = store
		rt.closers = append(rt.closers, store.Close)
	}

	proc := agent.NewProcessor(
		backend.NewHeuristicSelector(roster, cfg.Routes()),
		router,
		cfg.AgentConfig(),
		agent.WithLogger(logger),
		agent.WithMetrics(metrics),
	)
	orch := orchestrator.NewOrchestrator(proc, cfg.OrchestratorConfig(),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(metrics))

	rt.pipeline = orchestrator.NewPipeline(orch, roster,
		consensus.NewBuilder(cfg.ConsensusConfig(),
			consensus.WithLogger(logger),
			consensus.WithMetrics(metrics)),
		hallucination.NewDetector(cfg.DetectorConfig(),
			hallucination.WithLogger(logger),
			hallucination.WithMetrics(metrics)),
		orchestrator.WithStore(rt.store),
		orchestrator.WithPipelineLogger(logger),
	)
	return rt, nil
}

// #endregion

// #region metrics

// startMetrics registers the collectors and, when addr is set, serves them.
func startMetrics(addr string, logger *zap.Logger) (*observability.Metrics, func() error, error) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	if addr == "" {
		return metrics, func() error { return nil }, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return metrics, srv.Close, nil
}

// #endregion
