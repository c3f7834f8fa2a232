package cluster

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
)

// Config holds configuration for the cluster engine
type Config struct {
	MaxIterations int // SWAP passes before giving up on further improvement
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxIterations: 200,
	}
}

// Engine groups periods with k-medoids over their feature vectors
type Engine struct {
	config Config
	logger *zap.Logger
}

// NewEngine creates a new cluster engine
func NewEngine(config Config, logger *zap.Logger) *Engine {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultConfig().MaxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: config, logger: logger}
}

// Run clusters the rows of features into at most nCluster groups.
//
// The achievable count is min(nCluster, rows, distinct rows); asking for more
// is not an error. Clusters are ordered by ascending exemplar row.
func (e *Engine) Run(features *mat.Dense, nCluster int) (model.ClusterSet, error) {
	if nCluster < 1 {
		return model.ClusterSet{}, fmt.Errorf("%w: n_cluster must be at least 1, got %d", feature.ErrConfiguration, nCluster)
	}
	if features == nil {
		return model.ClusterSet{}, fmt.Errorf("%w: no features to cluster", feature.ErrConfiguration)
	}
	n, _ := features.Dims()

	dist := distanceMatrix(features)
	k := nCluster
	if distinct := distinctRows(dist); k > distinct {
		e.logger.Debug("clamping cluster count",
			zap.Int("requested", nCluster),
			zap.Int("periods", n),
			zap.Int("distinct", distinct))
		k = distinct
	}

	medoids, iterations := pam(dist, k, e.config.MaxIterations)
	sort.Ints(medoids)

	nearest := make([]float64, n)
	second := make([]float64, n)
	owner := make([]int, n)
	assignNearest(dist, medoids, nearest, second, owner)

	set := model.ClusterSet{
		Count:       make([]int, k),
		Exemplars:   medoids,
		Assignments: owner,
		Requested:   nCluster,
	}
	for _, id := range owner {
		set.Count[id]++
	}

	e.logger.Info("clustering complete",
		zap.Int("periods", n),
		zap.Int("clusters", k),
		zap.Int("swap_passes", iterations),
		zap.Float64("cost", totalCost(dist, medoids)))

	return set, nil
}

// Nearest returns the cluster whose exemplar row is closest to vec
func Nearest(features *mat.Dense, set model.ClusterSet, vec []float64) int {
	best, bestDist := -1, 0.0
	for id, row := range set.Exemplars {
		d := euclidean(features.RawRowView(row), vec)
		if best < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}
