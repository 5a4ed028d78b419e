// Package consensus groups perspectives by text similarity and picks the
// majority cluster as the crew's collective answer.
package consensus

// #region imports
import (
	"fmt"

	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/observability"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/similarity"
)

// #endregion

// #region config

// Config controls clustering.
type Config struct {
	// SimilarityThreshold is the minimum seed similarity for a perspective
	// to join a cluster.
	SimilarityThreshold float64
}

// DefaultConfig returns the standard clustering threshold.
func DefaultConfig() Config {
	return Config{SimilarityThreshold: 0.7}
}

// #endregion

// #region builder

// Builder computes ConsensusResults. It is stateless apart from its config.
type Builder struct {
	config  Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option customizes a Builder.
type Option func(*Builder)

// WithLogger sets the logger, named "consensus".
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l.Named("consensus")
		}
	}
}

// WithMetrics attaches Prometheus recorders.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// NewBuilder creates a builder.
func NewBuilder(config Config, opts ...Option) *Builder {
	b := &Builder{config: config, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// #endregion

// #region clusters

// Cluster is a group of perspectives around a seed, by index into the
// slice passed to Clusters.
type Cluster struct {
	Seed    int   `json:"seed"`
	Members []int `json:"members"`
}

// Size returns the number of members, seed included.
func (c Cluster) Size() int { return len(c.Members) }

// Clusters runs one greedy single-link pass: each unassigned perspective
// seeds a cluster and absorbs every later unassigned perspective whose
// similarity to the seed reaches the threshold. Clusters are returned in
// seed order.
func (b *Builder) Clusters(perspectives []crew.Perspective) []Cluster {
	assigned := make([]bool, len(perspectives))
	var clusters []Cluster
	for i := range perspectives {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		c := Cluster{Seed: i, Members: []int{i}}
		for j := i + 1; j < len(perspectives); j++ {
			if assigned[j] {
				continue
			}
			if similarity.Semantic(perspectives[i].Content, perspectives[j].Content) >= b.config.SimilarityThreshold {
				assigned[j] = true
				c.Members = append(c.Members, j)
			}
		}
		clusters = append(clusters, c)
	}
	return clusters
}

// #endregion

// #region build

// Build returns the consensus of at least two perspectives. The largest
// cluster wins; on a tie the earliest seed wins.
func (b *Builder) Build(perspectives []crew.Perspective) (crew.ConsensusResult, error) {
	if len(perspectives) < crew.MinPerspectives {
		return crew.ConsensusResult{}, fmt.Errorf("build consensus from %d perspectives: %w",
			len(perspectives), crew.ErrInsufficientPerspectives)
	}

	clusters := b.Clusters(perspectives)
	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.Size() > best.Size() {
			best = c
		}
	}

	var sum float64
	for _, idx := range best.Members {
		sum += perspectives[idx].Confidence
	}
	seed := perspectives[best.Seed]
	n := len(perspectives)
	result := crew.ConsensusResult{
		Response:         seed.Content,
		Confidence:       sum / float64(best.Size()),
		ParticipantCount: n,
		AgreementScore:   float64(best.Size()) / float64(n),
		DominantPersona:  seed.PersonaID,
		OutlierCount:     n - best.Size(),
	}

	b.metrics.ConsensusBuilt(result.AgreementScore)
	b.logger.Debug("consensus built",
		zap.Int("clusters", len(clusters)),
		zap.String("dominant", result.DominantPersona),
		zap.Float64("agreement", result.AgreementScore),
		zap.Int("outliers", result.OutlierCount))
	return result, nil
}

// #endregion
