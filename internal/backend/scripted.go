package backend

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
)

// #endregion

// #region script

// Script describes how a scripted backend behaves across calls.
type Script struct {
	Content    string  `json:"content" yaml:"content"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// FailuresBeforeSuccess fails that many calls before answering.
	FailuresBeforeSuccess int `json:"failures_before_success,omitempty" yaml:"failures_before_success"`
	// AlwaysFail fails every call.
	AlwaysFail bool `json:"always_fail,omitempty" yaml:"always_fail"`
	// Hang blocks every call until its context ends.
	Hang bool `json:"hang,omitempty" yaml:"hang"`
	// DelayMS delays every call before it answers or fails.
	DelayMS int `json:"delay_ms,omitempty" yaml:"delay_ms"`
}

var (
	// ErrNoScript is returned for a scripted backend with no script.
	ErrNoScript = errors.New("no script for backend")

	// ErrScriptedFailure is the error produced by a scripted failing call.
	ErrScriptedFailure = errors.New("scripted failure")
)

// #endregion

// #region invoker

// ScriptedInvoker is a deterministic agent.Invoker. Backend ids take the
// form "scripted:<name>" and each name has its own Script and call counter.
// It is safe for concurrent use.
type ScriptedInvoker struct {
	scripts map[string]Script

	mu    sync.Mutex
	calls map[string]int
}

// NewScriptedInvoker creates an invoker over the given scripts, keyed by name.
func NewScriptedInvoker(scripts map[string]Script) *ScriptedInvoker {
	copied := make(map[string]Script, len(scripts))
	for k, v := range scripts {
		copied[k] = v
	}
	return &ScriptedInvoker{scripts: copied, calls: make(map[string]int)}
}

// Calls returns how many times name has been invoked.
func (s *ScriptedInvoker) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Invoke implements agent.Invoker.
func (s *ScriptedInvoker) Invoke(ctx context.Context, backendID, _ string) (agent.Response, error) {
	_, name := SplitBackendID(backendID)
	script, ok := s.scripts[name]
	if !ok {
		return agent.Response{}, fmt.Errorf("%s: %w", backendID, ErrNoScript)
	}

	s.mu.Lock()
	s.calls[name]++
	call := s.calls[name]
	s.mu.Unlock()

	if script.DelayMS > 0 {
		t := time.NewTimer(time.Duration(script.DelayMS) * time.Millisecond)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return agent.Response{}, ctx.Err()
		}
	}
	if script.Hang {
		<-ctx.Done()
		return agent.Response{}, ctx.Err()
	}
	if script.AlwaysFail || call <= script.FailuresBeforeSuccess {
		return agent.Response{}, fmt.Errorf("%s call %d: %w", backendID, call, ErrScriptedFailure)
	}
	return agent.Response{Content: script.Content, Confidence: script.Confidence}, nil
}

// #endregion
