package consensus

import (
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
)

const (
	warpFull  = "The warp core is stable and running at full efficiency."
	warpPeak  = "The warp core is stable and running at peak efficiency."
	latinum   = "Ferengi profit margins depend on latinum prices."
	shieldsUp = "Raise the shields and hold position near the nebula."
)

func perspective(id, content string, conf float64) crew.Perspective {
	return crew.Perspective{PersonaID: id, Content: content, Confidence: conf, BackendID: "scripted:test"}
}

func TestBuild_MajorityClusterWins(t *testing.T) {
	b := NewBuilder(DefaultConfig(), WithLogger(zaptest.NewLogger(t)))
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.9),
		perspective("quark", latinum, 0.4),
		perspective("data", warpPeak, 0.7),
	}

	got, err := b.Build(ps)
	require.NoError(t, err)

	assert.Equal(t, warpFull, got.Response)
	assert.Equal(t, "geordi", got.DominantPersona)
	assert.Equal(t, 3, got.ParticipantCount)
	assert.Equal(t, 1, got.OutlierCount)
	assert.InDelta(t, 2.0/3.0, got.AgreementScore, 1e-9)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.Equal(t, 2, got.AgreeingCount())
}

func TestBuild_SinglePerspectiveIsInsufficient(t *testing.T) {
	b := NewBuilder(DefaultConfig())

	_, err := b.Build([]crew.Perspective{perspective("picard", warpFull, 0.9)})
	assert.ErrorIs(t, err, crew.ErrInsufficientPerspectives)

	_, err = b.Build(nil)
	assert.ErrorIs(t, err, crew.ErrInsufficientPerspectives)
}

func TestBuild_TieGoesToFirstSeed(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	ps := []crew.Perspective{
		perspective("quark", latinum, 0.5),
		perspective("geordi", warpFull, 0.9),
		perspective("nog", latinum, 0.3),
		perspective("data", warpPeak, 0.7),
	}

	got, err := b.Build(ps)
	require.NoError(t, err)
	assert.Equal(t, "quark", got.DominantPersona)
	assert.Equal(t, latinum, got.Response)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
	assert.Equal(t, 2, got.OutlierCount)
}

func TestBuild_ThresholdControlsClustering(t *testing.T) {
	b := NewBuilder(Config{SimilarityThreshold: 0.8})
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.9),
		perspective("data", warpPeak, 0.7),
	}

	got, err := b.Build(ps)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OutlierCount)
	assert.InDelta(t, 0.5, got.AgreementScore, 1e-9)
	assert.Equal(t, "geordi", got.DominantPersona)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.9),
		perspective("quark", latinum, 0.4),
	}
	before := append([]crew.Perspective(nil), ps...)

	_, err := b.Build(ps)
	require.NoError(t, err)
	assert.Equal(t, before, ps)
}

func TestBuild_AgreementIsIntegerConsistent(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	texts := []string{warpFull, latinum, warpPeak, shieldsUp}
	for n := 2; n <= 12; n++ {
		ps := make([]crew.Perspective, n)
		for i := range ps {
			ps[i] = perspective(fmt.Sprintf("p%d", i), texts[(i*7+n)%len(texts)], 0.5)
		}
		got, err := b.Build(ps)
		require.NoError(t, err)

		agreeing := got.AgreementScore * float64(got.ParticipantCount)
		assert.Equal(t, float64(n), math.Round(agreeing)+float64(got.OutlierCount), "n=%d", n)
		assert.Equal(t, n, got.ParticipantCount)
	}
}

func TestClusters_SeedOrder(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	ps := []crew.Perspective{
		perspective("geordi", warpFull, 0.9),
		perspective("quark", latinum, 0.4),
		perspective("data", warpPeak, 0.7),
		perspective("worf", shieldsUp, 0.8),
	}

	clusters := b.Clusters(ps)
	require.Len(t, clusters, 3)
	assert.Equal(t, Cluster{Seed: 0, Members: []int{0, 2}}, clusters[0])
	assert.Equal(t, Cluster{Seed: 1, Members: []int{1}}, clusters[1])
	assert.Equal(t, Cluster{Seed: 3, Members: []int{3}}, clusters[2])
}

func TestBuild_RecordsAgreementMetric(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	b := NewBuilder(DefaultConfig(), WithMetrics(m))

	_, err = b.Build([]crew.Perspective{
		perspective("geordi", warpFull, 0.9),
		perspective("data", warpPeak, 0.7),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ConsensusAgreement))
}
