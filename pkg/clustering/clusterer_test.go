package clustering

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/heuristic"
	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

// syntheticYear returns a deterministic year in which every day differs
func syntheticYear() *model.ResourceSeries {
	s := model.NewResourceSeries(1)
	n := s.Steps()
	dni := make([]float64, n)
	ghi := make([]float64, n)
	temp := make([]float64, n)
	price := make([]float64, n)
	for h := 0; h < n; h++ {
		day, hour := h/24, h%24
		// seasonal amplitude plus a weekly weather pattern
		amp := 500 + 300*math.Sin(2*math.Pi*float64(day)/365) + 20*float64(day%7) + 0.5*float64(day)
		sun := math.Max(0, math.Sin(math.Pi*float64(hour-6)/12))
		dni[h] = amp * sun
		ghi[h] = 0.8 * amp * sun
		temp[h] = 10 + 15*math.Sin(2*math.Pi*float64(day-100)/365)
		price[h] = 0.8 + 0.4*float64(hour/6)/3 + 0.01*float64(day%5)
	}
	s.Set(model.StreamDNI, dni)
	s.Set(model.StreamGHI, ghi)
	s.Set(model.StreamTemperature, temp)
	s.Set(model.StreamPrice, price)
	return s
}

func newClustered(t *testing.T, cfg Config) *Clusterer {
	t.Helper()
	c, err := New(cfg, syntheticYear())
	require.NoError(t, err)
	require.NoError(t, c.RunClustering())
	return c
}

func TestRunClustering_Invariants(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))

	set, err := c.Clusters()
	require.NoError(t, err)
	assert.Equal(t, 20, c.ClusterCount())
	assert.Len(t, set.Exemplars, len(set.Count))

	total := 0
	for _, n := range set.Count {
		total += n
	}
	assert.Equal(t, len(c.Periods()), total)
	assert.Equal(t, 181, total)
	for i := 1; i < len(set.Exemplars); i++ {
		assert.Less(t, set.Exemplars[i-1], set.Exemplars[i])
	}
}

func TestRunClustering_Deterministic(t *testing.T) {
	cfg := DefaultConfig(feature.SourceTower, feature.SourcePV, feature.SourceBattery)
	first := newClustered(t, cfg)
	second := newClustered(t, cfg)

	a, _ := first.Clusters()
	b, _ := second.Clusters()
	assert.Equal(t, a, b)

	require.NoError(t, first.RunClustering())
	again, _ := first.Clusters()
	assert.Equal(t, a, again)
}

func TestRunClustering_ClampsRequestedCount(t *testing.T) {
	cfg := DefaultConfig(feature.SourceTower)
	cfg.NCluster = 1000
	c := newClustered(t, cfg)

	assert.Equal(t, 181, c.ClusterCount())
	set, _ := c.Clusters()
	assert.True(t, set.Clamped())

	start, end, err := c.SimStartEndTimes(0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 96}, [2]int{start, end})

	start, end, err = c.SimStartEndTimes(180)
	require.NoError(t, err)
	assert.Equal(t, [2]int{8640, 8736}, [2]int{start, end})
}

func TestRunClustering_OneDayPeriods(t *testing.T) {
	cfg := DefaultConfig(feature.SourceTower)
	cfg.NDays = 1
	cfg.NCluster = 1000
	c := newClustered(t, cfg)

	assert.Equal(t, 363, c.ClusterCount())
	start, end, err := c.SimStartEndTimes(3)
	require.NoError(t, err)
	assert.Equal(t, [2]int{72, 144}, [2]int{start, end})
}

func TestDefaultWeights_RoundTrip(t *testing.T) {
	cfg := DefaultConfig(feature.SourceTower, feature.SourceBattery)
	byDefault := newClustered(t, cfg)

	weights, err := byDefault.DefaultWeights()
	require.NoError(t, err)

	custom := cfg
	custom.UseDefaultWeights = false
	custom.Features = weights
	explicit := newClustered(t, custom)

	a, _ := byDefault.Clusters()
	b, _ := explicit.Clusters()
	assert.Equal(t, a, b)
}

func TestDefaultWeights_PartsRoundTrip(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))
	descs, err := c.DefaultWeights()
	require.NoError(t, err)

	weights, divisions, bounds := feature.Parts(descs)
	streams := make([]model.Stream, len(descs))
	aggs := make([]feature.Aggregation, len(descs))
	for i, d := range descs {
		streams[i], aggs[i] = d.Stream, d.Aggregation
	}
	rebuilt, err := feature.FromParts(streams, aggs, weights, divisions, bounds)
	require.NoError(t, err)

	cfg := DefaultConfig(feature.SourceTower)
	cfg.UseDefaultWeights = false
	cfg.Features = rebuilt
	explicit := newClustered(t, cfg)

	a, _ := c.Clusters()
	b, _ := explicit.Clusters()
	assert.Equal(t, a, b)
}

func TestSimStartDays(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))
	days, err := c.SimStartDays()
	require.NoError(t, err)
	set, _ := c.Clusters()

	require.Len(t, days, set.Len())
	for id, e := range set.Exemplars {
		assert.Equal(t, 1+2*e, days[id])
		start, _, err := c.SimStartEndTimes(id)
		require.NoError(t, err)
		assert.Equal(t, (days[id]-1)*24, start)
	}

	windows, err := c.SimulationWindows()
	require.NoError(t, err)
	for id, w := range windows {
		assert.Equal(t, id, w.ClusterID)
		assert.Equal(t, 96, w.Hours(model.HoursPerYear))
	}
}

func TestHeuristics_Defaults(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower, feature.SourcePV, feature.SourceBattery))
	last := c.ClusterCount() - 1

	for _, id := range []int{0, last} {
		soc, err := c.BatterySOCHeuristic(id, nil)
		require.NoError(t, err)
		assert.Equal(t, 20.0, soc)

		state, err := c.CSPInitialStateHeuristic(id, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, model.InitialState{SOC: 10, CycleOn: false, CycleLoad: 0}, state)
	}
}

func TestHeuristics_FromHistory(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower, feature.SourcePV, feature.SourceBattery))
	days, err := c.SimStartDays()
	require.NoError(t, err)
	start := days[0]

	// no record between the last one and the window start, so the battery
	// starts where the last record left it
	battery := &model.StateHistory{Days: []int{start - 4, start - 3}, SOC: []float64{0, 100}}
	soc, err := c.BatterySOCHeuristic(0, battery)
	require.NoError(t, err)
	assert.Equal(t, 100.0, soc, "last recorded SOC carried forward")

	csp := &model.StateHistory{
		Days: []int{start - 4, start - 3},
		SOC:  []float64{20, 89},
		Load: []float64{0, 0},
	}
	state, err := c.CSPInitialStateHeuristic(0, 3, csp)
	require.NoError(t, err)
	assert.InDelta(t, 89.0, state.SOC, 1e-9)
	assert.False(t, state.CycleOn)
	assert.Equal(t, 0.0, state.CycleLoad)

	// history far from the window falls back to the defaults
	stale := &model.StateHistory{Days: []int{start + 100}, SOC: []float64{50}}
	soc, err = c.BatterySOCHeuristic(0, stale)
	require.NoError(t, err)
	assert.Equal(t, heuristic.DefaultBatterySOC, soc)
}

func TestWithStrategy(t *testing.T) {
	c, err := New(DefaultConfig(feature.SourceBattery), syntheticYear(), WithStrategy(heuristic.Default{}))
	require.NoError(t, err)
	require.NoError(t, c.RunClustering())

	hist := &model.StateHistory{Days: []int{0, 364}, SOC: []float64{90, 90}}
	soc, err := c.BatterySOCHeuristic(0, hist)
	require.NoError(t, err)
	assert.Equal(t, 20.0, soc)
}

func TestReconstruction_Lengths(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))
	k := c.ClusterCount()

	exemplarData := make([]float64, k*48)
	for id := 0; id < k; id++ {
		for h := 0; h < 48; h++ {
			exemplarData[id*48+h] = float64(id)
		}
	}
	annual, err := c.AnnualArrayFromExemplars(exemplarData)
	require.NoError(t, err)
	assert.Len(t, annual, 181*2*24)

	set, _ := c.Clusters()
	for p, id := range set.Assignments {
		assert.Equal(t, float64(id), annual[p*48])
	}

	full, err := c.FullYearArrayFromExemplars(exemplarData)
	require.NoError(t, err)
	assert.Len(t, full, model.HoursPerYear)

	series := make([]float64, model.HoursPerYear)
	averages, err := c.ClusterAveragesFromTimeseries(series)
	require.NoError(t, err)
	require.Len(t, averages, k)
	for _, a := range averages {
		assert.Len(t, a, (1+2+1)*24)
	}

	stats, err := c.ClusterStats(series)
	require.NoError(t, err)
	assert.Len(t, stats, k)
}

func TestClusterAverages_FromAnnualArray(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))
	k := c.ClusterCount()

	exemplarData := make([]float64, k*48)
	for id := 0; id < k; id++ {
		for h := 0; h < 48; h++ {
			exemplarData[id*48+h] = float64(id + 1)
		}
	}
	annual, err := c.AnnualArrayFromExemplars(exemplarData)
	require.NoError(t, err)

	averages, err := c.ClusterAveragesFromTimeseries(annual)
	require.NoError(t, err)
	require.Len(t, averages, k)
	for id, a := range averages {
		require.Len(t, a, 96)
		for i := 24; i < 72; i++ {
			assert.Equal(t, float64(id+1), a[i], "cluster %d position %d", id, i)
		}
	}

	stats, err := c.ClusterStats(annual)
	require.NoError(t, err)
	for id, st := range stats {
		assert.InDelta(t, float64(48*(id+1)), st.P50, 1e-9)
	}
}

func TestPVOnly_NoLookback(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourcePV))
	assert.Len(t, c.Periods(), 182)

	w, err := c.SimulationWindow(0)
	require.NoError(t, err)
	assert.Equal(t, 48, w.Hours(model.HoursPerYear))
}

func TestLookDays_Override(t *testing.T) {
	cfg := DefaultConfig(feature.SourcePV)
	lb, lf := 2, 0
	cfg.Lookback = &lb
	cfg.Lookforward = &lf

	back, fwd := cfg.LookDays()
	assert.Equal(t, 2, back)
	assert.Equal(t, 0, fwd)
	assert.Equal(t, window.BoundaryShift, cfg.Window().Policy)

	back, fwd = DefaultConfig(feature.SourcePV, feature.SourceTrough).LookDays()
	assert.Equal(t, 1, back)
	assert.Equal(t, 1, fwd)
}

func TestWrapBoundary(t *testing.T) {
	cfg := DefaultConfig(feature.SourceTower)
	cfg.Boundary = window.BoundaryWrap
	cfg.NCluster = 1000
	c := newClustered(t, cfg)

	assert.Equal(t, 182, c.ClusterCount())
	w, err := c.SimulationWindow(0)
	require.NoError(t, err)
	assert.True(t, w.Wrapped)
	assert.Equal(t, 8736, w.StartHour)
	assert.Equal(t, 72, w.EndHour)
	assert.Equal(t, 96, w.Hours(model.HoursPerYear))
}

func TestErrors(t *testing.T) {
	_, err := New(DefaultConfig("tower", "geothermal"), syntheticYear())
	assert.True(t, errors.Is(err, feature.ErrConfiguration))

	_, err = New(DefaultConfig(feature.SourceWind), syntheticYear())
	assert.True(t, errors.Is(err, feature.ErrConfiguration), "wind speed was not loaded")

	bad := DefaultConfig(feature.SourceTower)
	bad.UseDefaultWeights = false
	bad.Features = nil
	_, err = New(bad, syntheticYear())
	assert.True(t, errors.Is(err, feature.ErrConfiguration))

	short := model.NewResourceSeries(1)
	short.Set(model.StreamDNI, make([]float64, 100))
	_, err = New(DefaultConfig(feature.SourceTower), short)
	assert.True(t, errors.Is(err, feature.ErrConfiguration))

	c, err := New(DefaultConfig(feature.SourceTower), syntheticYear())
	require.NoError(t, err)
	_, err = c.Clusters()
	assert.True(t, errors.Is(err, ErrNotClustered))
	_, _, err = c.SimStartEndTimes(0)
	assert.True(t, errors.Is(err, ErrNotClustered))
	_, err = c.AnnualArrayFromExemplars(nil)
	assert.True(t, errors.Is(err, ErrNotClustered))
	assert.Equal(t, 0, c.ClusterCount())

	require.NoError(t, c.RunClustering())
	_, _, err = c.SimStartEndTimes(c.ClusterCount())
	assert.True(t, errors.Is(err, ErrClusterID))
	_, err = c.BatterySOCHeuristic(-1, nil)
	assert.True(t, errors.Is(err, ErrClusterID))
}

func TestConfigure_ResetsResult(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))
	cfg := DefaultConfig(feature.SourceTower)
	cfg.NCluster = 5
	require.NoError(t, c.Configure(cfg))

	_, err := c.Clusters()
	assert.True(t, errors.Is(err, ErrNotClustered))
	require.NoError(t, c.RunClustering())
	assert.Equal(t, 5, c.ClusterCount())
}

func TestNearestCluster(t *testing.T) {
	c := newClustered(t, DefaultConfig(feature.SourceTower))
	set, _ := c.Clusters()
	e := set.Exemplars[3]

	id, err := c.NearestCluster(syntheticYear(), c.Periods()[e])
	require.NoError(t, err)
	assert.Equal(t, 3, id)
}
