package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
)

// #endregion

// #region fallback

const (
	// FallbackConfidence is the fixed confidence of a synthetic perspective.
	FallbackConfidence = 0.3
	// FallbackBackendID marks a perspective that no backend produced.
	FallbackBackendID = "fallback:synthetic"
)

// FallbackPerspective builds the placeholder recorded for a persona whose
// task failed.
func FallbackPerspective(p crew.Persona, input string, at time.Time) crew.Perspective {
	var b strings.Builder
	fmt.Fprintf(&b, "This is %s. I was unable to complete a full analysis of this request.", p.Name)
	if len(p.Expertise) > 0 {
		fmt.Fprintf(&b, " From a %s standpoint I would treat it with caution", strings.Join(p.Expertise, ", "))
		b.WriteString(" until a complete assessment is available.")
	}
	return crew.Perspective{
		PersonaID:  p.ID,
		Content:    b.String(),
		BackendID:  FallbackBackendID,
		Confidence: FallbackConfidence,
		CreatedAt:  at,
		Input:      input,
	}
}

// #endregion

// #region orchestrator-struct

// Orchestrator runs activation cycles. It keeps no per-cycle state, so
// concurrent Activate calls never observe each other.
type Orchestrator struct {
	config    Config
	processor PersonaProcessor
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The orchestrator logs under the "orch" name.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l.Named("orch")
		}
	}
}

// WithMetrics attaches Prometheus recorders.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock replaces time.Now for durations and fallback timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires an orchestrator around processor.
func NewOrchestrator(processor PersonaProcessor, config Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		config:    config,
		processor: processor,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// #endregion

// #region activate

// outcome is one persona task's slot in the cycle.
type outcome struct {
	perspective crew.Perspective
	err         error
}

// Activate asks every persona in roster for a perspective on input.
//
// Persona failures are recorded in the result, replaced by a fallback
// perspective when enabled, and never abort the cycle. A panic anywhere in
// the cycle is fatal: the returned result then counts every persona as
// failed and the error is a *CycleError.
func (o *Orchestrator) Activate(ctx context.Context, input string, roster crew.Roster) (*crew.ActivationResult, error) {
	if !o.config.UniversalActivation {
		return nil, ErrActivationDisabled
	}
	mode := o.config.Mode
	if mode != crew.ModeParallel && mode != crew.ModeSequential {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	res := &crew.ActivationResult{
		CycleID: o.newID(),
		Input:   input,
		Mode:    mode,
	}
	ctx, span := observability.Tracer().Start(ctx, "orchestrator.Activate")
	defer span.End()
	span.SetAttributes(
		attribute.String("cycle.id", res.CycleID),
		attribute.String("cycle.mode", string(mode)),
		attribute.Int("cycle.personas", roster.Len()),
	)

	start := o.now()
	personas := roster.Personas()
	outcomes := make([]outcome, len(personas))

	var err error
	if mode == crew.ModeParallel {
		err = o.runParallel(ctx, input, personas, outcomes)
	} else {
		err = o.runSequential(ctx, input, personas, outcomes)
	}
	res.Duration = o.now().Sub(start)

	if err != nil {
		res.FailureCount = len(personas)
		res.Errors = []string{err.Error()}
		o.metrics.CycleFinished(string(mode), res.Duration, true)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cycle failed")
		o.logger.Error("cycle failed",
			zap.String("cycle_id", res.CycleID),
			zap.Duration("duration", res.Duration),
			zap.Error(err))
		return res, &CycleError{CycleID: res.CycleID, Err: err}
	}

	o.aggregate(res, personas, outcomes)
	o.metrics.CycleFinished(string(mode), res.Duration, false)
	span.SetAttributes(
		attribute.Int("cycle.success", res.SuccessCount),
		attribute.Int("cycle.failure", res.FailureCount),
	)
	o.logger.Info("cycle complete",
		zap.String("cycle_id", res.CycleID),
		zap.String("mode", string(mode)),
		zap.Int("success", res.SuccessCount),
		zap.Int("failure", res.FailureCount),
		zap.Float64("avg_confidence", res.AverageConfidence),
		zap.Bool("consensus_reached", res.ConsensusReached),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// #endregion

// #region schedulers

// runParallel gives each persona its own result slot, so tasks never
// share mutable state and roster order survives completion order.
func (o *Orchestrator) runParallel(ctx context.Context, input string, personas []crew.Persona, outcomes []outcome) error {
	g, gctx := errgroup.WithContext(ctx)
	if o.config.MaxConcurrency > 0 {
		g.SetLimit(o.config.MaxConcurrency)
	}
	for i, p := range personas {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("persona %s panicked: %v", p.ID, r)
				}
			}()
			outcomes[i] = o.runTask(gctx, p, input)
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) runSequential(ctx context.Context, input string, personas []crew.Persona, outcomes []outcome) (err error) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("persona %s panicked: %v", current, r)
		}
	}()
	for i, p := range personas {
		current = p.ID
		outcomes[i] = o.runTask(ctx, p, input)
	}
	return nil
}

func (o *Orchestrator) runTask(ctx context.Context, p crew.Persona, input string) outcome {
	perspective, err := o.processor.Process(ctx, p, input)
	return outcome{perspective: perspective, err: err}
}

// #endregion

// #region aggregate

func (o *Orchestrator) aggregate(res *crew.ActivationResult, personas []crew.Persona, outcomes []outcome) {
	for i, p := range personas {
		out := outcomes[i]
		if out.err == nil {
			res.Perspectives = append(res.Perspectives, out.perspective)
			res.SuccessCount++
			o.metrics.PersonaFinished(p.ID, observability.OutcomeSuccess)
			continue
		}

		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", p.ID, out.err))
		if o.config.FallbackEnabled {
			res.Perspectives = append(res.Perspectives, FallbackPerspective(p, res.Input, o.now()))
			res.SuccessCount++
			o.metrics.PersonaFinished(p.ID, observability.OutcomeFallback)
			o.logger.Warn("persona failed, using fallback",
				zap.String("cycle_id", res.CycleID),
				zap.String("persona", p.ID),
				zap.Error(out.err))
			continue
		}
		res.FailureCount++
		o.metrics.PersonaFinished(p.ID, observability.OutcomeFailure)
		o.logger.Warn("persona failed",
			zap.String("cycle_id", res.CycleID),
			zap.String("persona", p.ID),
			zap.Error(out.err))
	}

	if n := len(res.Perspectives); n > 0 {
		var sum float64
		for _, p := range res.Perspectives {
			sum += p.Confidence
		}
		res.AverageConfidence = sum / float64(n)
	}
	res.ConsensusReached = len(res.Perspectives) >= crew.MinPerspectives
}

// #endregion
