package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/consensus"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/hallucination"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
)

// #endregion

// #region report

// Report is everything one analyzed cycle produced.
type Report struct {
	Activation         *crew.ActivationResult     `json:"activation"`
	Consensus          crew.ConsensusResult       `json:"consensus"`
	Analyses           []crew.PerspectiveAnalysis `json:"analyses"`
	OverallHealth      float64                    `json:"overall_health"`
	HallucinationCount int                        `json:"hallucination_count"`
}

// Flagged returns the analyses marked as hallucinated.
func (r *Report) Flagged() []crew.PerspectiveAnalysis {
	return hallucination.Result{Analyses: r.Analyses}.Flagged()
}

// #endregion

// #region pipeline

// Pipeline chains activation, consensus and hallucination analysis, and
// records finished cycles when a store is attached.
type Pipeline struct {
	orch     *Orchestrator
	roster   crew.Roster
	builder  *consensus.Builder
	detector *hallucination.Detector
	store    memory.Store
	logger   *zap.Logger
	now      func() time.Time
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithStore records each analyzed cycle to s. A nil store disables recording.
func WithStore(s memory.Store) PipelineOption {
	return func(p *Pipeline) { p.store = s }
}

// WithPipelineLogger sets the logger. The pipeline logs under the "pipeline" name.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l.Named("pipeline")
		}
	}
}

// WithPipelineClock replaces time.Now for record timestamps.
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline wires a pipeline over roster.
func NewPipeline(orch *Orchestrator, roster crew.Roster, builder *consensus.Builder, detector *hallucination.Detector, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		orch:     orch,
		roster:   roster,
		builder:  builder,
		detector: detector,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Roster returns the pipeline's roster.
func (p *Pipeline) Roster() crew.Roster {
	return p.roster
}

// ActivateAndAnalyze runs one full cycle.
//
// When activation yields fewer than two perspectives the returned report
// still carries the ActivationResult alongside the error, so callers can
// see which personas failed.
func (p *Pipeline) ActivateAndAnalyze(ctx context.Context, input string) (*Report, error) {
	act, err := p.orch.Activate(ctx, input, p.roster)
	if err != nil {
		if act == nil {
			return nil, err
		}
		return &Report{Activation: act}, err
	}

	if len(act.Perspectives) < crew.MinPerspectives {
		return &Report{Activation: act}, fmt.Errorf("analyze cycle %s: %w", act.CycleID, crew.ErrInsufficientPerspectives)
	}

	cons, err := p.builder.Build(act.Perspectives)
	if err != nil {
		return &Report{Activation: act}, fmt.Errorf("consensus for cycle %s: %w", act.CycleID, err)
	}
	result, err := p.detector.Analyze(act.Perspectives, cons)
	if err != nil {
		return &Report{Activation: act, Consensus: cons}, fmt.Errorf("analyze cycle %s: %w", act.CycleID, err)
	}

	report := &Report{
		Activation:         act,
		Consensus:          cons,
		Analyses:           result.Analyses,
		OverallHealth:      result.OverallHealth,
		HallucinationCount: result.HallucinationCount,
	}
	p.record(ctx, report)
	return report, nil
}

// record writes the report to the store. Store failures are logged and
// never fail the cycle.
func (p *Pipeline) record(ctx context.Context, r *Report) {
	if p.store == nil {
		return
	}
	rec := memory.CycleRecord{
		CycleID:            r.Activation.CycleID,
		RecordedAt:         p.now(),
		Activation:         *r.Activation,
		Consensus:          r.Consensus,
		Analyses:           r.Analyses,
		OverallHealth:      r.OverallHealth,
		HallucinationCount: r.HallucinationCount,
	}
	if err := p.store.RecordCycle(ctx, rec); err != nil {
		p.logger.Error("record cycle failed",
			zap.String("cycle_id", rec.CycleID),
			zap.Error(err))
	}
}

// #endregion
