package agent

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"time"
)

// #endregion

// #region collaborators

// Selection is a backend choice for one persona/input pair.
type Selection struct {
	BackendID  string
	Confidence float64
	Reasoning  string
}

// Selector picks the backend a persona should use for an input.
// Errors must not be swallowed: they fail the persona's task.
type Selector interface {
	Select(ctx context.Context, personaID, input string) (Selection, error)
}

// Response is what a backend returns for a fully built prompt.
type Response struct {
	Content    string
	Confidence float64
}

// Invoker calls a backend. Implementations must be safe to retry with the
// same arguments.
type Invoker interface {
	Invoke(ctx context.Context, backendID, prompt string) (Response, error)
}

// #endregion

// #region errors

var (
	// ErrRetriesExhausted marks a persona task that failed every attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrEmptyResponse is returned for an attempt whose backend produced no text.
	ErrEmptyResponse = errors.New("backend returned empty content")
)

// RetryError reports the final failure of a persona task.
type RetryError struct {
	PersonaID string
	BackendID string
	Attempts  int
	Err       error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("persona %s via %s: %v after %d attempts: %v",
		e.PersonaID, e.BackendID, ErrRetriesExhausted, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the last attempt's cause.
func (e *RetryError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Err}
}

// #endregion

// #region config

// Config controls per-persona invocation policy.
type Config struct {
	Timeout          time.Duration // hard wall-clock limit per attempt
	MaxAttempts      int           // total attempts including the first
	BaseDelay        time.Duration // delay before retry n is BaseDelay*n
	MaxContentLength int           // runes kept from the backend response
	JitterBound      float64       // confidence jitter is drawn from [-bound, bound]
}

// DefaultConfig returns the standard invocation policy.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxAttempts:      3,
		BaseDelay:        500 * time.Millisecond,
		MaxContentLength: 1000,
		JitterBound:      0.05,
	}
}

// #endregion
