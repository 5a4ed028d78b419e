// Package memory is the durable sink for finished activation cycles. The
// pipeline only writes to it; the read side exists for inspection and
// fixture export tooling.
package memory

// #region imports
import (
	"context"
	"errors"
	"time"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
)

// #endregion

// #region errors

// ErrCycleNotFound is returned by GetCycle for an unknown cycle id.
var ErrCycleNotFound = errors.New("cycle not found")

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown memory driver")

// #endregion

// #region records

// CycleRecord is everything retained about one analyzed cycle.
type CycleRecord struct {
	CycleID            string                     `json:"cycle_id"`
	RecordedAt         time.Time                  `json:"recorded_at"`
	Activation         crew.ActivationResult      `json:"activation"`
	Consensus          crew.ConsensusResult       `json:"consensus"`
	Analyses           []crew.PerspectiveAnalysis `json:"analyses"`
	OverallHealth      float64                    `json:"overall_health"`
	HallucinationCount int                        `json:"hallucination_count"`
}

// Summary condenses the record for listings.
func (r CycleRecord) Summary() CycleSummary {
	return CycleSummary{
		CycleID:            r.CycleID,
		Input:              r.Activation.Input,
		Mode:               r.Activation.Mode,
		RecordedAt:         r.RecordedAt,
		SuccessCount:       r.Activation.SuccessCount,
		FailureCount:       r.Activation.FailureCount,
		AgreementScore:     r.Consensus.AgreementScore,
		DominantPersona:    r.Consensus.DominantPersona,
		OverallHealth:      r.OverallHealth,
		HallucinationCount: r.HallucinationCount,
	}
}

// LearningNotes extracts the notes of flagged analyses.
func (r CycleRecord) LearningNotes() []LearningNote {
	var notes []LearningNote
	for _, a := range r.Analyses {
		if a.LearningNote == "" {
			continue
		}
		notes = append(notes, LearningNote{
			CycleID:   r.CycleID,
			PersonaID: a.PersonaID,
			Severity:  a.Severity,
			Deviation: a.DeviationScore,
			Note:      a.LearningNote,
			CreatedAt: r.RecordedAt,
		})
	}
	return notes
}

// CycleSummary is one row of a cycle listing.
type CycleSummary struct {
	CycleID            string              `json:"cycle_id"`
	Input              string              `json:"input"`
	Mode               crew.ActivationMode `json:"mode"`
	RecordedAt         time.Time           `json:"recorded_at"`
	SuccessCount       int                 `json:"success_count"`
	FailureCount       int                 `json:"failure_count"`
	AgreementScore     float64             `json:"agreement_score"`
	DominantPersona    string              `json:"dominant_persona"`
	OverallHealth      float64             `json:"overall_health"`
	HallucinationCount int                 `json:"hallucination_count"`
}

// LearningNote is a flagged persona's note from one cycle.
type LearningNote struct {
	CycleID   string        `json:"cycle_id"`
	PersonaID string        `json:"persona_id"`
	Severity  crew.Severity `json:"severity"`
	Deviation float64       `json:"deviation"`
	Note      string        `json:"note"`
	CreatedAt time.Time     `json:"created_at"`
}

// #endregion

// #region store

// Store persists cycle records. Implementations are safe for concurrent use.
type Store interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
	// ListCycles returns up to limit summaries, newest first. limit <= 0
	// means no limit.
	ListCycles(ctx context.Context, limit int) ([]CycleSummary, error)
	GetCycle(ctx context.Context, cycleID string) (CycleRecord, error)
	// LearningNotes returns up to limit notes for personaID, newest first.
	LearningNotes(ctx context.Context, personaID string, limit int) ([]LearningNote, error)
	Close() error
}

// #endregion
