package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/consensus"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/hallucination"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
)

// #region fixtures

// recordingStore keeps records in memory and can be told to fail.
type recordingStore struct {
	mu      sync.Mutex
	records []memory.CycleRecord
	fail    error
}

func (s *recordingStore) RecordCycle(_ context.Context, rec memory.CycleRecord) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) ListCycles(context.Context, int) ([]memory.CycleSummary, error) {
	return nil, nil
}

func (s *recordingStore) GetCycle(context.Context, string) (memory.CycleRecord, error) {
	return memory.CycleRecord{}, memory.ErrCycleNotFound
}

func (s *recordingStore) LearningNotes(context.Context, string, int) ([]memory.LearningNote, error) {
	return nil, nil
}

func (s *recordingStore) Close() error { return nil }

func warpScripts() map[string]backend.Script {
	return map[string]backend.Script{
		crew.GeordiLaForge: {Content: warpFull, Confidence: 0.8},
		crew.CommanderData: {Content: warpPeak, Confidence: 0.8},
		crew.Quark:         {Content: latinum, Confidence: 0.4},
	}
}

func newPipeline(t *testing.T, scripts map[string]backend.Script, cfg Config, opts ...PipelineOption) *Pipeline {
	t.Helper()
	roster := threeCrew(t)
	proc, _ := scriptedProcessor(t, roster, scripts, fastAgentConfig())
	logger := zaptest.NewLogger(t)
	opts = append([]PipelineOption{
		WithPipelineLogger(logger),
		WithPipelineClock(func() time.Time { return fixedTime }),
	}, opts...)
	return NewPipeline(
		newOrch(t, proc, cfg),
		roster,
		consensus.NewBuilder(consensus.DefaultConfig(), consensus.WithLogger(logger)),
		hallucination.NewDetector(hallucination.DefaultConfig(),
			hallucination.WithLogger(logger),
			hallucination.WithClock(func() time.Time { return fixedTime })),
		opts...,
	)
}

// #endregion

func TestPipeline_FlagsOutlierAndRecords(t *testing.T) {
	store := &recordingStore{}
	p := newPipeline(t, warpScripts(), DefaultConfig(), WithStore(store))

	report, err := p.ActivateAndAnalyze(context.Background(), "Report on the warp core.")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Activation.SuccessCount)
	assert.Equal(t, warpFull, report.Consensus.Response)
	assert.Equal(t, crew.GeordiLaForge, report.Consensus.DominantPersona)
	assert.InDelta(t, 2.0/3.0, report.Consensus.AgreementScore, 1e-9)
	assert.InDelta(t, 0.8, report.Consensus.Confidence, 1e-9)

	require.Len(t, report.Analyses, 3)
	assert.Equal(t, 1, report.HallucinationCount)
	assert.InDelta(t, 2.0/3.0, report.OverallHealth, 1e-9)
	flagged := report.Flagged()
	require.Len(t, flagged, 1)
	assert.Equal(t, crew.Quark, flagged[0].PersonaID)
	assert.Equal(t, crew.SeverityCritical, flagged[0].Severity)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, report.Activation.CycleID, rec.CycleID)
	assert.Equal(t, fixedTime, rec.RecordedAt)
	require.Len(t, rec.LearningNotes(), 1)
	assert.Equal(t, crew.Quark, rec.LearningNotes()[0].PersonaID)
}

func TestPipeline_StoreFailureDoesNotFailCycle(t *testing.T) {
	store := &recordingStore{fail: errors.New("disk full")}
	p := newPipeline(t, warpScripts(), DefaultConfig(), WithStore(store))

	report, err := p.ActivateAndAnalyze(context.Background(), "Report on the warp core.")
	require.NoError(t, err)
	assert.Equal(t, 1, report.HallucinationCount)
}

func TestPipeline_InsufficientPerspectives(t *testing.T) {
	scripts := warpScripts()
	scripts[crew.CommanderData] = backend.Script{AlwaysFail: true}
	scripts[crew.Quark] = backend.Script{AlwaysFail: true}
	cfg := DefaultConfig()
	cfg.FallbackEnabled = false
	store := &recordingStore{}
	p := newPipeline(t, scripts, cfg, WithStore(store))

	report, err := p.ActivateAndAnalyze(context.Background(), "Report on the warp core.")
	assert.ErrorIs(t, err, crew.ErrInsufficientPerspectives)
	require.NotNil(t, report)
	require.NotNil(t, report.Activation)
	assert.Equal(t, 1, report.Activation.SuccessCount)
	assert.Equal(t, 2, report.Activation.FailureCount)
	assert.Empty(t, report.Analyses)
	assert.Empty(t, store.records)
}

func TestPipeline_DisabledActivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UniversalActivation = false
	report, err := newPipeline(t, warpScripts(), cfg).ActivateAndAnalyze(context.Background(), "status")
	assert.ErrorIs(t, err, ErrActivationDisabled)
	assert.Nil(t, report)
}
