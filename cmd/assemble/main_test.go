package main

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jaredthomas68/HOPP/pkg/clustering"
	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/queue/nats"
	"github.com/jaredthomas68/HOPP/pkg/store/duckdb"
)

func towerYear() *model.ResourceSeries {
	s := model.NewResourceSeries(1)
	dni := make([]float64, s.Steps())
	price := make([]float64, s.Steps())
	for h := range dni {
		day := h / 24
		dni[h] = (300 + 5*float64(day%40) + float64(day)) * math.Max(0, math.Sin(math.Pi*float64(h%24-6)/12))
		price[h] = 1
	}
	s.Set(model.StreamDNI, dni)
	s.Set(model.StreamPrice, price)
	return s
}

func newAssembler(t *testing.T, fullYear bool) (*Assembler, *duckdb.Run) {
	t.Helper()
	client, err := duckdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cfg := clustering.DefaultConfig(feature.SourceTower)
	cfg.NCluster = 4
	c, err := clustering.New(cfg, towerYear())
	require.NoError(t, err)
	require.NoError(t, c.RunClustering())
	run, err := duckdb.NewRun("test", "site", c)
	require.NoError(t, err)
	require.NoError(t, duckdb.NewRunRepo(client).Save(context.Background(), run))

	a := &Assembler{
		runs:    duckdb.NewRunRepo(client),
		outputs: duckdb.NewOutputRepo(client),
		log:     zap.NewNop().Sugar(),
		opts:    Options{StepsPerHour: 1, FullYear: fullYear},
		cache:   make(map[string]*duckdb.Run),
	}
	return a, run
}

func result(runID string, clusterID int) *nats.SimResultMsg {
	values := make([]float64, 48)
	for i := range values {
		values[i] = float64(clusterID + 1)
	}
	return &nats.SimResultMsg{RunID: runID, ClusterID: clusterID, Name: "gen", Values: values}
}

func TestAssembler_FullYear(t *testing.T) {
	ctx := context.Background()
	a, run := newAssembler(t, true)
	n := run.Clusters.Len()
	require.Equal(t, 4, n)

	for id := 0; id < n-1; id++ {
		require.NoError(t, a.Handle(ctx, result(run.RunID, id)))
	}
	annual, err := a.outputs.Annual(ctx, run.RunID, "gen")
	require.NoError(t, err)
	assert.Empty(t, annual)

	require.NoError(t, a.Handle(ctx, result(run.RunID, n-1)))
	annual, err = a.outputs.Annual(ctx, run.RunID, "gen")
	require.NoError(t, err)
	require.Len(t, annual, model.HoursPerYear)

	p := run.Periods[10]
	assert.Equal(t, float64(run.Clusters.Assignments[10]+1), annual[p.StartHour])
	for _, v := range annual {
		assert.True(t, v >= 1 && v <= float64(n), v)
	}
}

func TestAssembler_AnnualArray(t *testing.T) {
	ctx := context.Background()
	a, run := newAssembler(t, false)
	for id := 0; id < run.Clusters.Len(); id++ {
		require.NoError(t, a.Handle(ctx, result(run.RunID, id)))
	}
	annual, err := a.outputs.Annual(ctx, run.RunID, "gen")
	require.NoError(t, err)
	assert.Len(t, annual, run.Clusters.Periods()*48)
}

func TestAssembler_Rejects(t *testing.T) {
	ctx := context.Background()
	a, run := newAssembler(t, true)

	assert.Error(t, a.Handle(ctx, result(run.RunID, run.Clusters.Len())))
	assert.Error(t, a.Handle(ctx, result("unknown-run", 0)))

	short := result(run.RunID, 0)
	short.Values = short.Values[:24]
	assert.Error(t, a.Handle(ctx, short))
}
