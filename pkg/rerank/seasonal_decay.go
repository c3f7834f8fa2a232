package rerank

import (
	"math"
	"sort"

	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/store/milvus"
)

// SeasonalDecayConfig holds configuration for seasonal reranking
type SeasonalDecayConfig struct {
	Lambda float64 // Exponential decay rate per day of seasonal distance
	// Segment weights for different seasonal distances (used if UseSegments is true)
	UseSegments  bool
	NearDays     float64 // e.g. same fortnight
	SeasonDays   float64 // e.g. same season
	NearWeight   float64 // Weight for <= NearDays
	SeasonWeight float64 // Weight for NearDays < x <= SeasonDays
	FarWeight    float64 // Weight for > SeasonDays
}

// DefaultSeasonalDecayConfig returns a default configuration
func DefaultSeasonalDecayConfig() SeasonalDecayConfig {
	return SeasonalDecayConfig{
		Lambda:       0.01,
		UseSegments:  false,
		NearDays:     14,
		SeasonDays:   45,
		NearWeight:   1.0,
		SeasonWeight: 0.7,
		FarWeight:    0.4,
	}
}

// SegmentConfig returns a configuration using segment-based weights
func SegmentConfig() SeasonalDecayConfig {
	cfg := DefaultSeasonalDecayConfig()
	cfg.UseSegments = true
	return cfg
}

// RankedResult extends SearchResult with reranked score
type RankedResult struct {
	milvus.SearchResult
	Similarity     float64 // 1 / (1 + distance)
	SeasonalWeight float64
	FinalScore     float64
}

// Reranker reorders nearest period hits so that periods from the same time of
// year as the query win over equally similar periods from another season
type Reranker struct {
	config SeasonalDecayConfig
}

// NewReranker creates a new reranker with the given configuration
func NewReranker(config SeasonalDecayConfig) *Reranker {
	return &Reranker{config: config}
}

// DayDistance returns the distance in days between two days of year, going
// around the year end if shorter
func DayDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= model.DaysPerYear
	if alt := model.DaysPerYear - d; alt < d {
		return alt
	}
	return d
}

// Rerank reranks search results against the query's start day. Ties keep the
// search order.
func (r *Reranker) Rerank(results []milvus.SearchResult, queryDay int) []RankedResult {
	ranked := make([]RankedResult, len(results))

	for i, result := range results {
		days := float64(DayDistance(result.StartDay, queryDay))

		var weight float64
		if r.config.UseSegments {
			weight = r.segmentWeight(days)
		} else {
			weight = r.exponentialDecay(days)
		}

		sim := 1 / (1 + float64(result.Distance))
		ranked[i] = RankedResult{
			SearchResult:   result,
			Similarity:     sim,
			SeasonalWeight: weight,
			FinalScore:     sim * weight,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	return ranked
}

func (r *Reranker) exponentialDecay(days float64) float64 {
	return math.Exp(-r.config.Lambda * days)
}

func (r *Reranker) segmentWeight(days float64) float64 {
	switch {
	case days <= r.config.NearDays:
		return r.config.NearWeight
	case days <= r.config.SeasonDays:
		return r.config.SeasonWeight
	default:
		return r.config.FarWeight
	}
}

// TopN returns the top N results after reranking
func (r *Reranker) TopN(results []milvus.SearchResult, queryDay int, n int) []RankedResult {
	ranked := r.Rerank(results, queryDay)
	if len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}

// Vote returns the cluster with the highest summed final score among the
// ranked hits, or -1 if there are none. Ties go to the lower cluster id.
func Vote(ranked []RankedResult) int {
	scores := make(map[int]float64)
	for _, r := range ranked {
		scores[r.ClusterID] += r.FinalScore
	}
	best, bestScore := -1, math.Inf(-1)
	for id, s := range scores {
		if s > bestScore || (s == bestScore && id < best) {
			best, bestScore = id, s
		}
	}
	return best
}

// FilterByMinScore filters results by minimum final score
func FilterByMinScore(results []RankedResult, minScore float64) []RankedResult {
	var filtered []RankedResult
	for _, r := range results {
		if r.FinalScore >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
