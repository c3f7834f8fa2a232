package cluster

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
)

// threeGroups builds 3 well separated groups interleaved by row
func threeGroups() *mat.Dense {
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}
	rows := 12
	data := make([]float64, 0, rows*2)
	for i := 0; i < rows; i++ {
		c := centers[i%3]
		jitter := float64(i/3) * 0.1
		data = append(data, c[0]+jitter, c[1]-jitter)
	}
	return mat.NewDense(rows, 2, data)
}

func assertInvariants(t *testing.T, set model.ClusterSet, periods int) {
	t.Helper()
	require.Equal(t, len(set.Count), len(set.Exemplars))
	require.Len(t, set.Assignments, periods)

	total := 0
	for _, c := range set.Count {
		assert.GreaterOrEqual(t, c, 1)
		total += c
	}
	assert.Equal(t, periods, total)

	assert.True(t, sort.IntsAreSorted(set.Exemplars))
	for id, e := range set.Exemplars {
		assert.Equal(t, id, set.Assignments[e], "exemplar must belong to its own cluster")
	}
}

func TestRun_SeparatesObviousGroups(t *testing.T) {
	features := threeGroups()
	set, err := NewEngine(DefaultConfig(), nil).Run(features, 3)
	require.NoError(t, err)
	assertInvariants(t, set, 12)

	assert.Equal(t, []int{4, 4, 4}, set.Count)
	for p, id := range set.Assignments {
		assert.Equal(t, set.Assignments[p%3], id, "row %d grouped with wrong center", p)
	}
	assert.False(t, set.Clamped())
}

func TestRun_Deterministic(t *testing.T) {
	features := threeGroups()
	engine := NewEngine(DefaultConfig(), nil)

	first, err := engine.Run(features, 4)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Run(features, 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRun_ClampsToPeriodCount(t *testing.T) {
	features := threeGroups()
	set, err := NewEngine(DefaultConfig(), nil).Run(features, 1000)
	require.NoError(t, err)
	assertInvariants(t, set, 12)

	assert.Equal(t, 12, set.Len())
	assert.Equal(t, 1000, set.Requested)
	assert.True(t, set.Clamped())
	for id, e := range set.Exemplars {
		assert.Equal(t, id, e)
		assert.Equal(t, 1, set.Count[id])
	}
}

func TestRun_ClampsToDistinctRows(t *testing.T) {
	features := mat.NewDense(6, 1, []float64{1, 1, 2, 2, 2, 3})
	set, err := NewEngine(DefaultConfig(), nil).Run(features, 5)
	require.NoError(t, err)
	assertInvariants(t, set, 6)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []int{2, 3, 1}, set.Count)
	assert.Equal(t, []int{0, 0, 1, 1, 1, 2}, set.Assignments)
}

func TestRun_SingleCluster(t *testing.T) {
	features := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	set, err := NewEngine(DefaultConfig(), nil).Run(features, 1)
	require.NoError(t, err)
	assertInvariants(t, set, 5)

	assert.Equal(t, []int{2}, set.Exemplars) // the median minimizes total distance
	assert.Equal(t, []int{5}, set.Count)
}

func TestRun_RejectsBadCount(t *testing.T) {
	_, err := NewEngine(DefaultConfig(), nil).Run(threeGroups(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, feature.ErrConfiguration))
}

func TestPAM_SwapImprovesOnBuild(t *testing.T) {
	features := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 20, 21, 22, 23})
	dist := distanceMatrix(features)

	medoids, _ := pam(dist, 2, 50)
	sort.Ints(medoids)
	cost := totalCost(dist, medoids)

	// Every 2-medoid choice costs at least as much as the one found
	for a := 0; a < 8; a++ {
		for b := a + 1; b < 8; b++ {
			assert.LessOrEqual(t, cost, totalCost(dist, []int{a, b})+1e-9)
		}
	}
	assert.InDelta(t, 8.0, cost, 1e-12)
}

func TestNearest(t *testing.T) {
	features := threeGroups()
	set, err := NewEngine(DefaultConfig(), nil).Run(features, 3)
	require.NoError(t, err)

	id := Nearest(features, set, []float64{9.5, 9.8})
	assert.Equal(t, set.Assignments[1], id)
}
