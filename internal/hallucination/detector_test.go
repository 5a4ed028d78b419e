package hallucination

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
)

const (
	warpFull = "The warp core is stable and running at full efficiency."
	warpPeak = "The warp core is stable and running at peak efficiency."
	latinum  = "Ferengi profit margins depend on latinum prices."
)

var analyzedAt = time.Date(2026, 10, 2, 9, 30, 0, 0, time.UTC)

func perspective(id, content string, conf float64) crew.Perspective {
	return crew.Perspective{PersonaID: id, Content: content, Confidence: conf}
}

func warpConsensus() crew.ConsensusResult {
	return crew.ConsensusResult{
		Response:         warpFull,
		Confidence:       0.8,
		ParticipantCount: 3,
		AgreementScore:   2.0 / 3.0,
		DominantPersona:  "geordi",
		OutlierCount:     1,
	}
}

// #region severity

func TestClassifySeverity_Boundaries(t *testing.T) {
	cases := []struct {
		deviation float64
		want      crew.Severity
	}{
		{1.0, crew.SeverityCritical},
		{0.8, crew.SeverityCritical},
		{0.79999, crew.SeverityHigh},
		{0.6, crew.SeverityHigh},
		{0.59999, crew.SeverityMedium},
		{0.4, crew.SeverityMedium},
		{0.39999, crew.SeverityLow},
		{0.31, crew.SeverityLow},
		{0, crew.SeverityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifySeverity(tc.deviation), "deviation %v", tc.deviation)
	}
}

// #endregion

// #region components

func TestFactualAlignment(t *testing.T) {
	assert.Equal(t, 1.0, FactualAlignment("Ferengi love profit.", "Klingons value honor."), "no claims on either side")
	assert.Equal(t, 0.0, FactualAlignment(latinum, warpFull), "claims on one side only")
	assert.Equal(t, 0.0, FactualAlignment(warpFull, latinum), "claims on one side only")
	assert.Equal(t, 1.0, FactualAlignment(warpPeak, warpFull))
	assert.InDelta(t, 0.5, FactualAlignment(
		"The warp core is stable. The replicators are offline.",
		"The warp core is stable."), 1e-9)
}

func TestConfidenceAlignment(t *testing.T) {
	assert.Equal(t, 1.0, ConfidenceAlignment(0.7, 0.7))
	assert.InDelta(t, 0.6, ConfidenceAlignment(0.5, 0.7), 1e-9)
	assert.Equal(t, 0.0, ConfidenceAlignment(0.1, 0.9))
	assert.InDelta(t, 0.0, ConfidenceAlignment(0.2, 0.7), 1e-9)
}

func TestScore_IdenticalTextNeverFlagged(t *testing.T) {
	d := NewDetector(DefaultConfig())
	for _, conf := range []float64{0, 0.3, 0.8, 1} {
		s := d.Score(perspective("geordi", warpFull, conf), warpConsensus())
		assert.InDelta(t, 1.0, s.Semantic, 1e-9)
		assert.LessOrEqual(t, s.Deviation, DefaultConfig().Threshold)
	}
}

func TestScore_DeviationIsBounded(t *testing.T) {
	d := NewDetector(DefaultConfig())
	texts := []string{
		warpFull, warpPeak, latinum,
		"No.",
		"The warp core is not stable. The warp core is stable.",
		strings.Repeat("Shields are holding. ", 40),
	}
	for _, a := range texts {
		for _, b := range texts {
			for _, conf := range []float64{0, 0.5, 1} {
				s := d.Score(perspective("x", a, conf), crew.ConsensusResult{Response: b, Confidence: 1 - conf})
				assert.GreaterOrEqual(t, s.Deviation, 0.0)
				assert.LessOrEqual(t, s.Deviation, 1.0)
			}
		}
	}
}

// #endregion

// #region analyze

func TestAnalyze_FlagsOutlier(t *testing.T) {
	d := NewDetector(DefaultConfig(), WithLogger(zaptest.NewLogger(t)), WithClock(func() time.Time { return analyzedAt }))
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.8),
		perspective("data", warpPeak, 0.8),
		perspective("quark", latinum, 0.4),
	}

	res, err := d.Analyze(ps, warpConsensus())
	require.NoError(t, err)
	require.Len(t, res.Analyses, 3)

	geordi, data, quark := res.Analyses[0], res.Analyses[1], res.Analyses[2]

	assert.Equal(t, "geordi", geordi.PersonaID)
	assert.False(t, geordi.Hallucinated)
	assert.InDelta(t, 0, geordi.DeviationScore, 1e-9)
	assert.Equal(t, crew.SeverityLow, geordi.Severity)
	assert.Empty(t, geordi.CorrectionPrompt)
	assert.Empty(t, geordi.LearningNote)

	assert.False(t, data.Hallucinated)
	assert.InDelta(t, 0.0952, data.DeviationScore, 1e-3)

	assert.True(t, quark.Hallucinated)
	assert.InDelta(t, 0.96, quark.DeviationScore, 1e-9)
	assert.InDelta(t, 0.04, quark.ConsensusAlignment, 1e-9)
	assert.Equal(t, crew.SeverityCritical, quark.Severity)
	assert.NotEmpty(t, quark.CorrectionPrompt)
	assert.Contains(t, quark.LearningNote, string(GeneralDeviation))
	assert.Equal(t, analyzedAt, quark.AnalyzedAt)

	assert.Equal(t, 1, res.HallucinationCount)
	assert.InDelta(t, 2.0/3.0, res.OverallHealth, 1e-9)
	require.Len(t, res.Flagged(), 1)
	assert.Equal(t, "quark", res.Flagged()[0].PersonaID)
}

func TestAnalyze_InsufficientPerspectives(t *testing.T) {
	d := NewDetector(DefaultConfig())
	_, err := d.Analyze([]crew.Perspective{perspective("geordi", warpFull, 0.8)}, warpConsensus())
	assert.ErrorIs(t, err, crew.ErrInsufficientPerspectives)
}

func TestAnalyze_FlagIndependentOfSeverity(t *testing.T) {
	ps := []crew.Perspective{
		perspective("data", warpPeak, 0.8),
		perspective("quark", latinum, 0.4),
	}

	low := NewDetector(Config{Threshold: 0.05, SemanticWeight: 0.4, FactualWeight: 0.4, ConfidenceWeight: 0.2})
	res, err := low.Analyze(ps, warpConsensus())
	require.NoError(t, err)
	assert.True(t, res.Analyses[0].Hallucinated)
	assert.Equal(t, crew.SeverityLow, res.Analyses[0].Severity)

	high := NewDetector(Config{Threshold: 0.99, SemanticWeight: 0.4, FactualWeight: 0.4, ConfidenceWeight: 0.2})
	res, err = high.Analyze(ps, warpConsensus())
	require.NoError(t, err)
	assert.False(t, res.Analyses[1].Hallucinated)
	assert.Equal(t, crew.SeverityCritical, res.Analyses[1].Severity)
	assert.Empty(t, res.Analyses[1].CorrectionPrompt)
	assert.Equal(t, 1.0, res.OverallHealth)
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	d := NewDetector(DefaultConfig())
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.8),
		perspective("quark", latinum, 0.4),
	}
	before := append([]crew.Perspective(nil), ps...)

	_, err := d.Analyze(ps, warpConsensus())
	require.NoError(t, err)
	assert.Equal(t, before, ps)
}

func TestAnalyze_RecordsHallucinationMetric(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	d := NewDetector(DefaultConfig(), WithMetrics(m))

	_, err = d.Analyze([]crew.Perspective{
		perspective("geordi", warpFull, 0.8),
		perspective("quark", latinum, 0.4),
	}, warpConsensus())
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hallucinations.WithLabelValues(string(crew.SeverityCritical))))
}

// #endregion

// #region feedback

func TestCorrectionPrompt_QuotesEveryone(t *testing.T) {
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.8),
		perspective("data", warpPeak, 0.8),
		perspective("quark", latinum, 0.4),
	}
	prompt := CorrectionPrompt(ps, 2, warpConsensus(), 0.96)

	assert.Contains(t, prompt, "quark")
	assert.Contains(t, prompt, "0.96")
	assert.Contains(t, prompt, latinum)
	assert.Contains(t, prompt, warpFull)
	assert.Contains(t, prompt, warpPeak)
	assert.Contains(t, prompt, "- geordi:")
	assert.Contains(t, prompt, "- data:")
	assert.NotContains(t, prompt, "- quark:")
	assert.Contains(t, prompt, "own voice")
}

func TestCorrectionPrompt_KeepsMultilineTextIntact(t *testing.T) {
	own := "Step 1: reroute power.\nStep 2: call \"Engineering\"."
	other := "Hold position.\nThe \"anomaly\" is stable."
	ps := []crew.Perspective{
		perspective("geordi", other, 0.8),
		perspective("quark", own, 0.4),
	}
	consensus := warpConsensus()
	consensus.Response = other
	prompt := CorrectionPrompt(ps, 1, consensus, 0.7)

	assert.Contains(t, prompt, "Your response:\n"+own+"\n")
	assert.Contains(t, prompt, "- geordi:\n"+other+"\n")
	assert.NotContains(t, prompt, `\"`)
	assert.NotContains(t, prompt, `\n`)
}

func TestClassifyDeviation(t *testing.T) {
	long := strings.Repeat("The shields are holding and the hull is intact. ", 6)
	cases := []struct {
		name      string
		text      string
		consensus string
		want      DeviationType
	}{
		{"short answer", "Yes.", warpFull, InsufficientDetail},
		{"long answer", long, warpFull, ExcessiveDetail},
		{"contradicts consensus", "The warp core is not stable.", "The warp core is stable.", FactualContradiction},
		{"contraction contradicts consensus", "The warp core isn't stable.", "The warp core is stable.", FactualContradiction},
		{"contradicts itself", "Shields are up. Shields are not up.", "Shields hold firm across every deck today.", LogicalInconsistency},
		{"otherwise general", warpPeak, warpFull, GeneralDeviation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyDeviation(tc.text, tc.consensus))
		})
	}
}

func TestLearningNote_HasThreeRecommendations(t *testing.T) {
	note := LearningNote(perspective("quark", latinum, 0.4), warpConsensus(), 0.96, crew.SeverityCritical)

	assert.True(t, strings.HasPrefix(note, "Learning opportunity for quark: General Deviation"))
	assert.Contains(t, note, "severity critical")
	assert.Contains(t, note, "1. ")
	assert.Contains(t, note, "2. ")
	assert.Contains(t, note, "3. ")
	assert.NotContains(t, note, "4. ")
}

// #endregion
