// Package hallucination scores how far each perspective strays from the
// crew consensus, grades the deviation and drafts corrections for the
// perspectives that are flagged.
package hallucination

// #region imports
import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/similarity"
)

// #endregion

// #region config

// Config holds the flag threshold and the deviation weights.
type Config struct {
	// Threshold flags a perspective when its deviation is strictly above it.
	// Severity tiers are fixed and independent of this value.
	Threshold        float64
	SemanticWeight   float64
	FactualWeight    float64
	ConfidenceWeight float64
}

// DefaultConfig returns threshold 0.3 and weights 0.4/0.4/0.2.
func DefaultConfig() Config {
	return Config{
		Threshold:        0.3,
		SemanticWeight:   0.4,
		FactualWeight:    0.4,
		ConfidenceWeight: 0.2,
	}
}

// #endregion

// #region result

// Result is the detector's output for one cycle.
type Result struct {
	Analyses           []crew.PerspectiveAnalysis `json:"analyses"`
	OverallHealth      float64                    `json:"overall_health"`
	HallucinationCount int                        `json:"hallucination_count"`
}

// Flagged returns the analyses marked as hallucinated.
func (r Result) Flagged() []crew.PerspectiveAnalysis {
	var out []crew.PerspectiveAnalysis
	for _, a := range r.Analyses {
		if a.Hallucinated {
			out = append(out, a)
		}
	}
	return out
}

// #endregion

// #region detector

// Detector analyzes perspectives against a consensus. It holds only
// configuration and may be shared across goroutines.
type Detector struct {
	config  Config
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option customizes a Detector.
type Option func(*Detector)

// WithLogger sets the logger, named "detector".
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l.Named("detector")
		}
	}
}

// WithMetrics attaches Prometheus recorders.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// WithClock replaces time.Now for analysis timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a detector.
func NewDetector(config Config, opts ...Option) *Detector {
	d := &Detector{config: config, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// #endregion

// #region score

// Score computes the deviation of one perspective from the consensus.
func (d *Detector) Score(p crew.Perspective, consensus crew.ConsensusResult) Scores {
	s := Scores{
		Semantic:   SemanticSimilarity(p.Content, consensus.Response),
		Factual:    FactualAlignment(p.Content, consensus.Response),
		Confidence: ConfidenceAlignment(p.Confidence, consensus.Confidence),
	}
	weighted := d.config.SemanticWeight*s.Semantic +
		d.config.FactualWeight*s.Factual +
		d.config.ConfidenceWeight*s.Confidence
	s.Deviation = similarity.Clamp01(1 - weighted)
	return s
}

// #endregion

// #region analyze

// Analyze returns one analysis per perspective, in input order, plus the
// overall health of the set. It needs at least two perspectives.
func (d *Detector) Analyze(perspectives []crew.Perspective, consensus crew.ConsensusResult) (Result, error) {
	if len(perspectives) < crew.MinPerspectives {
		return Result{}, fmt.Errorf("analyze %d perspectives: %w",
			len(perspectives), crew.ErrInsufficientPerspectives)
	}

	analyzedAt := d.now()
	res := Result{Analyses: make([]crew.PerspectiveAnalysis, len(perspectives))}
	for i, p := range perspectives {
		s := d.Score(p, consensus)
		a := crew.PerspectiveAnalysis{
			PersonaID:          p.PersonaID,
			Hallucinated:       s.Deviation > d.config.Threshold,
			DeviationScore:     s.Deviation,
			ConsensusAlignment: 1 - s.Deviation,
			Severity:           ClassifySeverity(s.Deviation),
			AnalyzedAt:         analyzedAt,
		}
		if a.Hallucinated {
			a.CorrectionPrompt = CorrectionPrompt(perspectives, i, consensus, s.Deviation)
			a.LearningNote = LearningNote(p, consensus, s.Deviation, a.Severity)
			res.HallucinationCount++
			d.metrics.HallucinationFlagged(string(a.Severity))
			d.logger.Info("perspective flagged",
				zap.String("persona", p.PersonaID),
				zap.Float64("deviation", s.Deviation),
				zap.String("severity", string(a.Severity)),
				zap.Float64("semantic", s.Semantic),
				zap.Float64("factual", s.Factual),
				zap.Float64("confidence", s.Confidence))
		}
		res.Analyses[i] = a
	}
	res.OverallHealth = 1 - float64(res.HallucinationCount)/float64(len(perspectives))

	d.logger.Debug("analysis complete",
		zap.Int("perspectives", len(perspectives)),
		zap.Int("flagged", res.HallucinationCount),
		zap.Float64("health", res.OverallHealth))
	return res, nil
}

// #endregion
