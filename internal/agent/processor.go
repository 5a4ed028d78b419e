// Package agent drives a single persona through backend selection, prompt
// construction, invocation with timeout and retry, and result packaging.
package agent

// #region imports
import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/similarity"
)

// #endregion

// #region processor-struct

// Processor turns one persona and one input into one Perspective.
// It holds no per-call state and is safe for concurrent use.
type Processor struct {
	selector Selector
	invoker  Invoker
	config   Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	jitter   func() float64
	now      func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithLogger sets the logger. The processor logs under the "agent" name.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l.Named("agent")
		}
	}
}

// WithMetrics attaches Prometheus recorders.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithJitter replaces the jitter source. fn must return values in [-1, 1];
// they are scaled by Config.JitterBound.
func WithJitter(fn func() float64) Option {
	return func(p *Processor) { p.jitter = fn }
}

// WithClock replaces time.Now for Perspective timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a processor over the given collaborators.
func NewProcessor(selector Selector, invoker Invoker, config Config, opts ...Option) *Processor {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	p := &Processor{
		selector: selector,
		invoker:  invoker,
		config:   config,
		logger:   zap.NewNop(),
		jitter:   func() float64 { return rand.Float64()*2 - 1 },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// #endregion

// #region process

// Process selects a backend, builds the persona prompt and invokes the
// backend with per-attempt timeout and linear backoff between attempts.
func (p *Processor) Process(ctx context.Context, persona crew.Persona, input string) (crew.Perspective, error) {
	ctx, span := observability.Tracer().Start(ctx, "agent.Process")
	defer span.End()
	span.SetAttributes(attribute.String("persona", persona.ID))

	sel, err := p.selector.Select(ctx, persona.ID, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "selection failed")
		return crew.Perspective{}, fmt.Errorf("select backend for %s: %w", persona.ID, err)
	}
	span.SetAttributes(attribute.String("backend", sel.BackendID))

	prompt := BuildPrompt(persona, input)
	resp, err := p.invokeWithRetry(ctx, persona.ID, sel.BackendID, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invocation failed")
		return crew.Perspective{}, err
	}

	return crew.Perspective{
		PersonaID:  persona.ID,
		Content:    truncate(resp.Content, p.config.MaxContentLength),
		BackendID:  sel.BackendID,
		Confidence: similarity.Clamp01(resp.Confidence + p.config.JitterBound*p.jitter()),
		CreatedAt:  p.now(),
		Input:      input,
		Selection: &crew.SelectionRecord{
			BackendID:  sel.BackendID,
			Confidence: sel.Confidence,
			Reasoning:  sel.Reasoning,
		},
	}, nil
}

// #endregion

// #region retry-loop

func (p *Processor) invokeWithRetry(ctx context.Context, personaID, backendID, prompt string) (Response, error) {
	var lastErr error
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		resp, err := p.attempt(ctx, backendID, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == p.config.MaxAttempts {
			break
		}
		delay := p.config.BaseDelay * time.Duration(attempt)
		p.logger.Warn("backend attempt failed, retrying",
			zap.String("persona", personaID),
			zap.String("backend", backendID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		p.metrics.RetryScheduled(personaID)

		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			return Response{}, &RetryError{PersonaID: personaID, BackendID: backendID, Attempts: attempt, Err: lastErr}
		}
	}
	return Response{}, &RetryError{PersonaID: personaID, BackendID: backendID, Attempts: p.config.MaxAttempts, Err: lastErr}
}

// attempt runs one invocation under the hard timeout. The invoker runs in
// its own goroutine so a backend that ignores ctx still cannot hold the
// attempt past its deadline.
func (p *Processor) attempt(ctx context.Context, backendID, prompt string) (Response, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := p.invoker.Invoke(ctx, backendID, prompt)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Response{}, r.err
		}
		if strings.TrimSpace(r.resp.Content) == "" {
			return Response{}, ErrEmptyResponse
		}
		return r.resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("invoke %s: %w", backendID, ctx.Err())
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// #endregion
