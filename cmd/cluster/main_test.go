package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredthomas68/HOPP/pkg/clustering"
	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/store/duckdb"
)

func clustered(t *testing.T) (*clustering.Clusterer, *duckdb.Run) {
	t.Helper()
	s := model.NewResourceSeries(1)
	dni := make([]float64, s.Steps())
	price := make([]float64, s.Steps())
	for h := range dni {
		day := h / 24
		dni[h] = (350 + 4*float64(day%30) + float64(day)) * math.Max(0, math.Sin(math.Pi*float64(h%24-6)/12))
		price[h] = 1 + 0.2*float64(h%24/12)
	}
	s.Set(model.StreamDNI, dni)
	s.Set(model.StreamPrice, price)

	cfg := clustering.DefaultConfig(feature.SourceTower, feature.SourceBattery)
	cfg.NCluster = 5
	c, err := clustering.New(cfg, s)
	require.NoError(t, err)
	require.NoError(t, c.RunClustering())
	run, err := duckdb.NewRun("test", "site", c)
	require.NoError(t, err)
	return c, run
}

func TestWindowMessages_Defaults(t *testing.T) {
	c, run := clustered(t)

	msgs, err := windowMessages(run, c, nil, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	total := 0.0
	for i, m := range msgs {
		assert.Equal(t, run.RunID, m.RunID)
		assert.Equal(t, i, m.Window.ClusterID)
		assert.Equal(t, 2, m.NDays)
		assert.Equal(t, 1, m.LookbackDays)
		assert.Equal(t, 96, m.Window.Hours(model.HoursPerYear))
		assert.Equal(t, 20.0, m.BatterySOC)
		assert.Equal(t, model.InitialState{SOC: 10}, m.CSP)
		total += m.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestLoadHistory(t *testing.T) {
	hist, err := loadHistory("")
	require.NoError(t, err)
	assert.Nil(t, hist)

	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"day":[10,20],"soc":[40,60],"load":[50,0]}`), 0644))
	hist, err = loadHistory(path)
	require.NoError(t, err)
	assert.Equal(t, 2, hist.Len())
	assert.Equal(t, 50.0, hist.LoadAt(0))

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err = loadHistory(path)
	assert.Error(t, err)

	_, err = loadHistory(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
