package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/memory"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/orchestrator"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Personas        []string                `json:"personas"`
	Config          FixtureConfig           `json:"config"`
	Cycles          []FixtureCycle          `json:"cycles"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig holds the knobs a fixture may pin. Zero values fall back
// to DefaultReplayConfig.
type FixtureConfig struct {
	Mode                string  `json:"mode,omitempty"`
	FallbackEnabled     bool    `json:"fallback_enabled"`
	MaxAttempts         int     `json:"max_attempts,omitempty"`
	TimeoutMS           int     `json:"timeout_ms,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	DetectorThreshold   float64 `json:"detector_threshold,omitempty"`
}

// FixtureCycle mirrors Cycle with JSON tags.
type FixtureCycle struct {
	TurnID  string                    `json:"turn_id"`
	Input   string                    `json:"input"`
	Scripts map[string]backend.Script `json:"scripts"`
}

// FixtureExpectedResult captures the expected outcome per cycle.
type FixtureExpectedResult struct {
	TurnID          string   `json:"turn_id"`
	Action          string   `json:"action"`
	DominantPersona string   `json:"dominant_persona,omitempty"`
	Flagged         []string `json:"flagged,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Roster resolves the fixture's persona ids against the default crew.
// An empty list means the whole default crew.
func (f *Fixture) Roster() (crew.Roster, error) {
	all := crew.DefaultRoster()
	if len(f.Personas) == 0 {
		return all, nil
	}
	personas := make([]crew.Persona, 0, len(f.Personas))
	for _, id := range f.Personas {
		p, ok := all.Get(id)
		if !ok {
			return crew.Roster{}, fmt.Errorf("fixture persona %q: %w", id, backend.ErrUnknownPersona)
		}
		personas = append(personas, p)
	}
	return crew.NewRoster(personas...)
}

// ToCycles converts the fixture cycles to domain cycles.
func (f *Fixture) ToCycles() []Cycle {
	out := make([]Cycle, len(f.Cycles))
	for i, fc := range f.Cycles {
		out[i] = Cycle{TurnID: fc.TurnID, Input: fc.Input, Scripts: fc.Scripts}
	}
	return out
}

// ToReplayConfig overlays the fixture config on DefaultReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	rc := DefaultReplayConfig()
	if fc.Mode != "" {
		rc.Orchestrator.Mode = crew.ActivationMode(fc.Mode)
	}
	rc.Orchestrator.FallbackEnabled = fc.FallbackEnabled
	if fc.MaxAttempts > 0 {
		rc.Agent.MaxAttempts = fc.MaxAttempts
	}
	if fc.TimeoutMS > 0 {
		rc.Agent.Timeout = time.Duration(fc.TimeoutMS) * time.Millisecond
	}
	if fc.SimilarityThreshold > 0 {
		rc.Consensus.SimilarityThreshold = fc.SimilarityThreshold
	}
	if fc.DetectorThreshold > 0 {
		rc.Detector.Threshold = fc.DetectorThreshold
	}
	return rc
}

// #endregion fixture-loader

// #region fixture-export

// FixtureFromRecords builds a fixture that replays stored cycles. Each
// persona's recorded perspective becomes its script; personas that failed
// or fell back in the original cycle get an always-failing script. The
// recorded outcome becomes the expected result.
func FixtureFromRecords(description string, personas []string, config FixtureConfig, records []memory.CycleRecord) Fixture {
	f := Fixture{
		Description: description,
		Personas:    slices.Clone(personas),
		Config:      config,
	}
	for _, rec := range records {
		scripts := make(map[string]backend.Script, len(personas))
		for _, id := range personas {
			scripts[id] = backend.Script{AlwaysFail: true}
		}
		for _, p := range rec.Activation.Perspectives {
			if p.BackendID == orchestrator.FallbackBackendID {
				continue
			}
			scripts[p.PersonaID] = backend.Script{Content: p.Content, Confidence: p.Confidence}
		}
		f.Cycles = append(f.Cycles, FixtureCycle{
			TurnID:  rec.CycleID,
			Input:   rec.Activation.Input,
			Scripts: scripts,
		})

		expected := FixtureExpectedResult{
			TurnID:          rec.CycleID,
			Action:          ActionAnalyzed,
			DominantPersona: rec.Consensus.DominantPersona,
		}
		for _, a := range rec.Analyses {
			if a.Hallucinated {
				expected.Flagged = append(expected.Flagged, a.PersonaID)
			}
		}
		f.ExpectedResults = append(f.ExpectedResults, expected)
	}
	return f
}

// #endregion fixture-export
