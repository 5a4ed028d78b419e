package crew

// #region imports
import (
	"errors"
	"time"
)

// #endregion

// #region errors

// ErrInsufficientPerspectives is returned when fewer than two perspectives
// are available for consensus or hallucination analysis.
var ErrInsufficientPerspectives = errors.New("at least two perspectives are required")

// MinPerspectives is the smallest set that can form a consensus.
const MinPerspectives = 2

// #endregion

// #region perspective

// SelectionRecord captures why a backend was chosen for a persona.
type SelectionRecord struct {
	BackendID  string  `json:"backend_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Perspective is one persona's answer to one input.
type Perspective struct {
	PersonaID  string           `json:"persona_id"`
	Content    string           `json:"content"`
	BackendID  string           `json:"backend_id"`
	Confidence float64          `json:"confidence"`
	CreatedAt  time.Time        `json:"created_at"`
	Input      string           `json:"input"`
	Selection  *SelectionRecord `json:"selection,omitempty"`
}

// #endregion

// #region consensus-result

// ConsensusResult is the majority-cluster snapshot for one activation cycle.
type ConsensusResult struct {
	Response         string  `json:"response"`
	Confidence       float64 `json:"confidence"`
	ParticipantCount int     `json:"participant_count"`
	AgreementScore   float64 `json:"agreement_score"`
	DominantPersona  string  `json:"dominant_persona"`
	OutlierCount     int     `json:"outlier_count"`
}

// AgreeingCount returns the size of the consensus cluster.
func (c ConsensusResult) AgreeingCount() int {
	return c.ParticipantCount - c.OutlierCount
}

// #endregion

// #region severity

// Severity grades how far a perspective deviates from consensus.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// #endregion

// #region perspective-analysis

// PerspectiveAnalysis is the detector's verdict for one perspective.
type PerspectiveAnalysis struct {
	PersonaID          string    `json:"persona_id"`
	Hallucinated       bool      `json:"hallucinated"`
	DeviationScore     float64   `json:"deviation_score"`
	ConsensusAlignment float64   `json:"consensus_alignment"`
	CorrectionPrompt   string    `json:"correction_prompt,omitempty"`
	LearningNote       string    `json:"learning_note,omitempty"`
	Severity           Severity  `json:"severity"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
}

// #endregion

// #region activation-result

// ActivationMode selects how personas are scheduled within a cycle.
type ActivationMode string

const (
	ModeParallel   ActivationMode = "parallel"
	ModeSequential ActivationMode = "sequential"
)

// ActivationResult summarizes one activation cycle.
type ActivationResult struct {
	CycleID           string         `json:"cycle_id"`
	Input             string         `json:"input"`
	Mode              ActivationMode `json:"mode"`
	Perspectives      []Perspective  `json:"perspectives"`
	Duration          time.Duration  `json:"duration"`
	SuccessCount      int            `json:"success_count"`
	FailureCount      int            `json:"failure_count"`
	AverageConfidence float64        `json:"average_confidence"`
	ConsensusReached  bool           `json:"consensus_reached"`
	Errors            []string       `json:"errors,omitempty"`
}

// #endregion
