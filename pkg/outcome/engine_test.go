package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

// alternating assigns even periods to cluster 0 and odd periods to cluster 1
func alternating(t *testing.T, cfg window.Config) *Engine {
	t.Helper()
	periods, err := window.Partition(cfg)
	require.NoError(t, err)

	set := model.ClusterSet{Count: []int{0, 0}, Exemplars: []int{0, 1}, Requested: 2}
	set.Assignments = make([]int, len(periods))
	for p := range periods {
		set.Assignments[p] = p % 2
		set.Count[p%2]++
	}
	return NewEngine(set, periods, window.NewResolver(cfg))
}

func exemplarData(sph int) []float64 {
	// cluster 0 produces 1 every step, cluster 1 produces 2
	data := make([]float64, 2*48*sph)
	for i := range data {
		if i < 48*sph {
			data[i] = 1
		} else {
			data[i] = 2
		}
	}
	return data
}

func TestAnnualArray(t *testing.T) {
	e := alternating(t, window.DefaultConfig())

	for _, sph := range []int{1, 4} {
		out, err := e.AnnualArray(exemplarData(sph))
		require.NoError(t, err)
		require.Len(t, out, 181*48*sph)

		assert.Equal(t, 1.0, out[0])
		assert.Equal(t, 2.0, out[48*sph])
		assert.Equal(t, 1.0, out[180*48*sph])
	}

	_, err := e.AnnualArray(make([]float64, 95))
	assert.Error(t, err)
}

func TestFullYearArray(t *testing.T) {
	e := alternating(t, window.DefaultConfig())
	data := exemplarData(1)
	// mark the last production day of cluster 0 to check trailing fill
	for i := 24; i < 48; i++ {
		data[i] = 5
	}

	out, err := e.FullYearArray(data)
	require.NoError(t, err)
	require.Len(t, out, model.HoursPerYear)

	assert.Equal(t, 1.0, out[0], "day 0 repeats the first production day")
	assert.Equal(t, 1.0, out[24], "first period starts on day 1")
	assert.Equal(t, 5.0, out[48])
	assert.Equal(t, 2.0, out[72])
	// period 180 covers days 361 and 362, days 363 and 364 are filled
	assert.Equal(t, 5.0, out[362*24])
	assert.Equal(t, 5.0, out[363*24])
	assert.Equal(t, 5.0, out[364*24+23])
}

func TestClusterAverages(t *testing.T) {
	e := alternating(t, window.DefaultConfig())
	series := make([]float64, model.HoursPerYear)
	for h := range series {
		series[h] = float64(h / 24) // day of year
	}

	averages, err := e.ClusterAverages(series)
	require.NoError(t, err)
	require.Len(t, averages, 2)
	for _, a := range averages {
		assert.Len(t, a, 96)
	}

	// cluster 0 holds periods 0, 2, ..., 180 starting on days 1, 5, ..., 361;
	// their windows begin on days 0, 4, ..., 360 with mean 180
	assert.InDelta(t, 180.0, averages[0][0], 1e-9)
	assert.InDelta(t, 183.0, averages[0][95], 1e-9)
	// cluster 1 windows begin on days 2, 6, ..., 358
	assert.InDelta(t, 180.0, averages[1][0], 1e-9)
}

func TestClusterAverages_Clip(t *testing.T) {
	cfg := window.DefaultConfig()
	cfg.Policy = window.BoundaryClip
	e := alternating(t, cfg)

	series := make([]float64, model.HoursPerYear)
	for h := range series {
		series[h] = 1
	}
	averages, err := e.ClusterAverages(series)
	require.NoError(t, err)

	// every position has at least one in-year member, so all averages are 1
	for _, a := range averages {
		for _, v := range a {
			assert.Equal(t, 1.0, v)
		}
	}
}

func TestClusterAverages_Wrap(t *testing.T) {
	cfg := window.DefaultConfig()
	cfg.Policy = window.BoundaryWrap
	periods, err := window.Partition(cfg)
	require.NoError(t, err)

	// cluster 0 holds only period 0, whose lookback day is the last day of the year
	set := model.ClusterSet{Count: []int{1, len(periods) - 1}, Exemplars: []int{0, 1}, Requested: 2}
	set.Assignments = make([]int, len(periods))
	for p := 1; p < len(periods); p++ {
		set.Assignments[p] = 1
	}
	e := NewEngine(set, periods, window.NewResolver(cfg))

	series := make([]float64, model.HoursPerYear)
	for h := range series {
		series[h] = float64(h)
	}
	averages, err := e.ClusterAverages(series)
	require.NoError(t, err)

	assert.Equal(t, 8736.0, averages[0][0])
	assert.Equal(t, 8759.0, averages[0][23])
	assert.Equal(t, 0.0, averages[0][24])
	assert.Equal(t, 71.0, averages[0][95])
}

func TestClusterAverages_PerPeriodLayout(t *testing.T) {
	e := alternating(t, window.DefaultConfig())
	annual, err := e.AnnualArray(exemplarData(1))
	require.NoError(t, err)
	require.Len(t, annual, 181*48)

	averages, err := e.ClusterAverages(annual)
	require.NoError(t, err)
	require.Len(t, averages, 2)

	// the days around each period belong to the neighbouring periods, which
	// are always in the other cluster
	assert.Equal(t, 2.0, averages[0][0])
	assert.Equal(t, 1.0, averages[0][24])
	assert.Equal(t, 1.0, averages[0][71])
	assert.Equal(t, 2.0, averages[0][72])
	assert.Equal(t, 1.0, averages[1][0])
	assert.Equal(t, 2.0, averages[1][24])
	assert.Equal(t, 1.0, averages[1][95])

	stats, err := e.ClusterStats(annual)
	require.NoError(t, err)
	assert.InDelta(t, 48.0, stats[0].Mean, 1e-9)
	assert.InDelta(t, 96.0, stats[1].Mean, 1e-9)
}

func TestClusterAverages_RejectsPartialYear(t *testing.T) {
	e := alternating(t, window.DefaultConfig())
	_, err := e.ClusterAverages(make([]float64, 100))
	assert.Error(t, err)
}

func TestClusterStats(t *testing.T) {
	e := alternating(t, window.DefaultConfig())
	series := make([]float64, model.HoursPerYear)
	for h := range series {
		series[h] = 1
	}

	stats, err := e.ClusterStats(series)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 91, stats[0].Members)
	assert.Equal(t, 90, stats[1].Members)
	assert.InDelta(t, 91.0/181.0, stats[0].Weight, 1e-12)
	for _, s := range stats {
		assert.Equal(t, 48.0, s.Mean)
		assert.Equal(t, 48.0, s.P10)
		assert.Equal(t, 48.0, s.P90)
	}
	assert.Contains(t, stats[0].String(), "Members: 91")
}

func TestWeightedTotal(t *testing.T) {
	e := alternating(t, window.DefaultConfig())
	total, err := e.WeightedTotal(exemplarData(2))
	require.NoError(t, err)
	assert.InDelta(t, 91*48.0+90*96.0, total, 1e-9)
}
