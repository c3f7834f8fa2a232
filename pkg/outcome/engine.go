package outcome

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

// Engine turns per-cluster simulation results back into year-long series
type Engine struct {
	set      model.ClusterSet
	periods  []model.Period
	resolver *window.Resolver
}

// NewEngine creates a new outcome engine for one clustering run
func NewEngine(set model.ClusterSet, periods []model.Period, resolver *window.Resolver) *Engine {
	return &Engine{set: set, periods: periods, resolver: resolver}
}

func (e *Engine) ndays() int {
	return e.resolver.Config().NDays
}

// stepsPerHour derives the time resolution from a series length that must be
// a whole multiple of unit hours
func stepsPerHour(length, unit int) (int, error) {
	if unit <= 0 || length <= 0 || length%unit != 0 {
		return 0, fmt.Errorf("series length %d is not a multiple of %d hours", length, unit)
	}
	return length / unit, nil
}

// chunk returns the production-day block of one cluster from concatenated
// exemplar data
func chunk(data []float64, clusterID, size int) []float64 {
	return data[clusterID*size : (clusterID+1)*size]
}

// AnnualArray expands exemplar results into a series over all periods.
//
// exemplarData holds the production days of every exemplar, concatenated in
// cluster order. Each period receives a copy of its cluster's block, so the
// result has one block per period in period order.
func (e *Engine) AnnualArray(exemplarData []float64) ([]float64, error) {
	k := e.set.Len()
	hoursPerBlock := e.ndays() * model.HoursPerDay
	sph, err := stepsPerHour(len(exemplarData), k*hoursPerBlock)
	if err != nil {
		return nil, err
	}
	size := hoursPerBlock * sph

	out := make([]float64, 0, len(e.periods)*size)
	for p := range e.periods {
		out = append(out, chunk(exemplarData, e.set.Assignments[p], size)...)
	}
	return out, nil
}

// FullYearArray is AnnualArray placed at the true hour offsets of the year.
// Days not covered by any period repeat the nearest covered day: leading days
// take the first production day of the first period's exemplar and trailing
// days the last production day of the last period's exemplar.
func (e *Engine) FullYearArray(exemplarData []float64) ([]float64, error) {
	if len(e.periods) == 0 {
		return nil, fmt.Errorf("no periods to reconstruct")
	}
	k := e.set.Len()
	hoursPerBlock := e.ndays() * model.HoursPerDay
	sph, err := stepsPerHour(len(exemplarData), k*hoursPerBlock)
	if err != nil {
		return nil, err
	}
	size := hoursPerBlock * sph
	daySize := model.HoursPerDay * sph
	yearDays := e.resolver.Config().YearDays

	out := make([]float64, yearDays*daySize)
	for p, period := range e.periods {
		copy(out[period.StartHour*sph:], chunk(exemplarData, e.set.Assignments[p], size))
	}

	first := e.periods[0]
	firstDay := chunk(exemplarData, e.set.Assignments[0], size)[:daySize]
	for d := 0; d < first.StartDay; d++ {
		copy(out[d*daySize:], firstDay)
	}

	last := e.periods[len(e.periods)-1]
	lastBlock := chunk(exemplarData, e.set.Assignments[len(e.periods)-1], size)
	lastDay := lastBlock[size-daySize:]
	for d := last.StartDay + last.Days(); d < yearDays; d++ {
		copy(out[d*daySize:], lastDay)
	}
	return out, nil
}

// yearLayout places a series at the hour offsets of the year. It accepts a
// full-year series or the AnnualArray layout of one block per period, in which
// case only the hours covered by a period are marked present.
func (e *Engine) yearLayout(series []float64) ([]float64, []bool, int, error) {
	yearHours := e.resolver.Config().YearDays * model.HoursPerDay
	if sph, err := stepsPerHour(len(series), yearHours); err == nil {
		present := make([]bool, len(series))
		for i := range present {
			present[i] = true
		}
		return series, present, sph, nil
	}

	blockHours := e.ndays() * model.HoursPerDay
	sph, err := stepsPerHour(len(series), len(e.periods)*blockHours)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("series length %d is neither a full year (%d hours) nor one block per period (%d hours)",
			len(series), yearHours, len(e.periods)*blockHours)
	}
	size := blockHours * sph
	year := make([]float64, yearHours*sph)
	present := make([]bool, len(year))
	for p, period := range e.periods {
		start := period.StartHour * sph
		if start+size > len(year) {
			return nil, nil, 0, fmt.Errorf("period %d ends after the year", p)
		}
		copy(year[start:], series[p*size:(p+1)*size])
		for i := start; i < start+size; i++ {
			present[i] = true
		}
	}
	return year, present, sph, nil
}

// ClusterAverages averages a series over the simulation windows of each
// cluster's members. The series is either a full year or one block per period
// as produced by AnnualArray. Every result has the length of one window.
// Positions with no sample are zero.
func (e *Engine) ClusterAverages(series []float64) ([][]float64, error) {
	year, present, sph, err := e.yearLayout(series)
	if err != nil {
		return nil, err
	}
	width := e.resolver.WindowHours()

	averages := make([][]float64, e.set.Len())
	for id := range averages {
		sum := make([]float64, width*sph)
		n := make([]int, width*sph)
		for _, p := range e.set.Members(id) {
			for i := 0; i < width; i++ {
				h, ok := e.resolver.Hour(e.periods[p], i)
				if !ok {
					continue
				}
				for s := 0; s < sph; s++ {
					if !present[h*sph+s] {
						continue
					}
					sum[i*sph+s] += year[h*sph+s]
					n[i*sph+s]++
				}
			}
		}
		for j := range sum {
			if n[j] > 0 {
				sum[j] /= float64(n[j])
			}
		}
		averages[id] = sum
	}
	return averages, nil
}

// Stats summarizes the production-day totals of one cluster's members
type Stats struct {
	ClusterID int
	Exemplar  int
	Members   int
	Weight    float64 // share of all periods
	Mean      float64
	P10       float64
	P50       float64
	P90       float64
}

// String returns a formatted string representation
func (s Stats) String() string {
	return fmt.Sprintf(
		"Cluster: %d | Exemplar: %d | Members: %d | Weight: %.4f | Mean: %.4f | P10: %.4f | P50: %.4f | P90: %.4f",
		s.ClusterID, s.Exemplar, s.Members, s.Weight, s.Mean, s.P10, s.P50, s.P90,
	)
}

// ClusterStats computes, per cluster, statistics of the production-day totals
// of a series over the member periods. The series layouts are those of
// ClusterAverages. Totals are in value*hours.
func (e *Engine) ClusterStats(series []float64) ([]Stats, error) {
	year, _, sph, err := e.yearLayout(series)
	if err != nil {
		return nil, err
	}

	weights := e.set.Weights()
	stats := make([]Stats, e.set.Len())
	for id := range stats {
		members := e.set.Members(id)
		totals := make([]float64, len(members))
		for i, p := range members {
			period := e.periods[p]
			sum := 0.0
			for _, v := range year[period.StartHour*sph : period.EndHour*sph] {
				sum += v
			}
			totals[i] = sum / float64(sph)
		}
		sort.Float64s(totals)

		stats[id] = Stats{
			ClusterID: id,
			Exemplar:  e.set.Exemplars[id],
			Members:   len(members),
			Weight:    weights[id],
		}
		if len(totals) == 0 {
			continue
		}
		stats[id].Mean = stat.Mean(totals, nil)
		stats[id].P10 = stat.Quantile(0.1, stat.LinInterp, totals, nil)
		stats[id].P50 = stat.Quantile(0.5, stat.LinInterp, totals, nil)
		stats[id].P90 = stat.Quantile(0.9, stat.LinInterp, totals, nil)
	}
	return stats, nil
}

// WeightedTotal estimates the annual total of exemplar results by weighting
// each cluster's production-day total with its member count
func (e *Engine) WeightedTotal(exemplarData []float64) (float64, error) {
	k := e.set.Len()
	hoursPerBlock := e.ndays() * model.HoursPerDay
	sph, err := stepsPerHour(len(exemplarData), k*hoursPerBlock)
	if err != nil {
		return 0, err
	}
	size := hoursPerBlock * sph

	total := 0.0
	for id, count := range e.set.Count {
		block := 0.0
		for _, v := range chunk(exemplarData, id, size) {
			block += v
		}
		total += float64(count) * block / float64(sph)
	}
	return total, nil
}
