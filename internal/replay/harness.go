// Package replay runs recorded activation cycles through the full pipeline
// against scripted backends, so consensus and hallucination behavior can be
// pinned by regression fixtures.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/consensus"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/hallucination"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/orchestrator"
)

// #region types

// Replay actions.
const (
	ActionAnalyzed     = "analyzed"
	ActionInsufficient = "insufficient"
	ActionFailed       = "failed"
)

// Cycle is a single recorded input with the backend behavior to replay.
type Cycle struct {
	TurnID  string
	Input   string
	Scripts map[string]backend.Script // keyed by persona id
}

// ReplayConfig bundles the pipeline configs for a replay run.
type ReplayConfig struct {
	Agent        agent.Config
	Orchestrator orchestrator.Config
	Consensus    consensus.Config
	Detector     hallucination.Config
}

// DefaultReplayConfig returns the production defaults with a short timeout.
func DefaultReplayConfig() ReplayConfig {
	ac := agent.DefaultConfig()
	ac.Timeout = time.Second
	ac.BaseDelay = time.Millisecond
	return ReplayConfig{
		Agent:        ac,
		Orchestrator: orchestrator.DefaultConfig(),
		Consensus:    consensus.DefaultConfig(),
		Detector:     hallucination.DefaultConfig(),
	}
}

// ReplayResult captures the outcome of replaying one cycle.
type ReplayResult struct {
	TurnID          string
	Action          string
	Reason          string
	DominantPersona string
	AgreementScore  float64
	Flagged         []string // persona ids, roster order
	Report          *orchestrator.Report
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalCycles    int
	Analyzed       int
	Insufficient   int
	Failed         int
	Hallucinations int
}

// #endregion types

// #region replay

// replayClock pins perspective and analysis timestamps so replays compare equal.
var replayClock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

// Replay runs each cycle through activation, consensus and detection with
// jitter disabled. Every cycle gets fresh scripted backends, so failure
// counters never leak between cycles.
func Replay(ctx context.Context, roster crew.Roster, cycles []Cycle, config ReplayConfig, logger *zap.Logger) []ReplayResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("replay")
	results := make([]ReplayResult, 0, len(cycles))

	for _, c := range cycles {
		inv := backend.NewScriptedInvoker(c.Scripts)
		sel := backend.NewHeuristicSelector(roster, backend.Routes{Default: backend.PrefixScripted + ":" + backend.PersonaPlaceholder})
		proc := agent.NewProcessor(sel, inv, config.Agent,
			agent.WithLogger(logger),
			agent.WithJitter(func() float64 { return 0 }),
			agent.WithClock(replayClock),
		)
		pipeline := orchestrator.NewPipeline(
			orchestrator.NewOrchestrator(proc, config.Orchestrator,
				orchestrator.WithLogger(logger),
				orchestrator.WithClock(replayClock)),
			roster,
			consensus.NewBuilder(config.Consensus, consensus.WithLogger(logger)),
			hallucination.NewDetector(config.Detector,
				hallucination.WithLogger(logger),
				hallucination.WithClock(replayClock)),
			orchestrator.WithPipelineLogger(logger),
		)

		report, err := pipeline.ActivateAndAnalyze(ctx, c.Input)
		res := ReplayResult{TurnID: c.TurnID, Report: report}
		switch {
		case errors.Is(err, crew.ErrInsufficientPerspectives):
			res.Action = ActionInsufficient
			res.Reason = err.Error()
		case err != nil:
			res.Action = ActionFailed
			res.Reason = err.Error()
		default:
			res.Action = ActionAnalyzed
			res.DominantPersona = report.Consensus.DominantPersona
			res.AgreementScore = report.Consensus.AgreementScore
			for _, a := range report.Flagged() {
				res.Flagged = append(res.Flagged, a.PersonaID)
			}
			res.Reason = fmt.Sprintf("health %.2f", report.OverallHealth)
		}
		logger.Debug("cycle replayed",
			zap.String("turn_id", c.TurnID),
			zap.String("action", res.Action),
			zap.Strings("flagged", res.Flagged))
		results = append(results, res)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalCycles: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionAnalyzed:
			s.Analyzed++
			s.Hallucinations += len(r.Flagged)
		case ActionInsufficient:
			s.Insufficient++
		case ActionFailed:
			s.Failed++
		}
	}
	return s
}

// #endregion replay
