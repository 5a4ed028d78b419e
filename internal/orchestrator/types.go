// Package orchestrator fans an input out to every persona in a roster,
// collects their perspectives and, through Pipeline, feeds them to the
// consensus builder and the hallucination detector.
package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
)

// #endregion

// #region config

// Config controls how an activation cycle is scheduled.
type Config struct {
	// UniversalActivation is the kill switch. When false every Activate
	// call fails with ErrActivationDisabled.
	UniversalActivation bool
	Mode                crew.ActivationMode
	// FallbackEnabled substitutes a synthetic perspective for a persona
	// whose task failed.
	FallbackEnabled bool
	// MaxConcurrency caps in-flight persona tasks in parallel mode.
	// Zero means one slot per persona.
	MaxConcurrency int
}

// DefaultConfig returns parallel, fallback-enabled activation.
func DefaultConfig() Config {
	return Config{
		UniversalActivation: true,
		Mode:                crew.ModeParallel,
		FallbackEnabled:     true,
	}
}

// #endregion

// #region errors

var (
	// ErrActivationDisabled is returned when universal activation is off.
	ErrActivationDisabled = errors.New("universal activation is disabled")
	// ErrUnknownMode is returned for an activation mode other than parallel or sequential.
	ErrUnknownMode = errors.New("unknown activation mode")
	// ErrCycleFailed marks a cycle that failed as a whole.
	ErrCycleFailed = errors.New("activation cycle failed")
)

// CycleError reports a cycle-fatal failure. Individual persona failures
// never produce one; they are folded into the ActivationResult instead.
type CycleError struct {
	CycleID string
	Err     error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s: %v: %v", e.CycleID, ErrCycleFailed, e.Err)
}

// Unwrap exposes both ErrCycleFailed and the cause.
func (e *CycleError) Unwrap() []error {
	return []error{ErrCycleFailed, e.Err}
}

// #endregion

// #region processor

// PersonaProcessor produces one persona's perspective. *agent.Processor
// is the production implementation.
type PersonaProcessor interface {
	Process(ctx context.Context, persona crew.Persona, input string) (crew.Perspective, error)
}

// #endregion
