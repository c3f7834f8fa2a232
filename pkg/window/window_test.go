package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

func TestPartition_ShiftCounts(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		count    int
		firstDay int
	}{
		{"two days with csp padding", Config{NDays: 2, Lookback: 1, Lookforward: 1}, 181, 1},
		{"one day with csp padding", Config{NDays: 1, Lookback: 1, Lookforward: 1}, 363, 1},
		{"three days with csp padding", Config{NDays: 3, Lookback: 1, Lookforward: 1}, 121, 1},
		{"two days no padding", Config{NDays: 2}, 182, 0},
		{"wrap tiles from day zero", Config{NDays: 2, Lookback: 1, Lookforward: 1, Policy: BoundaryWrap}, 182, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := Partition(tt.cfg)
			require.NoError(t, err)
			assert.Len(t, periods, tt.count)
			assert.Equal(t, tt.count, Count(tt.cfg))
			assert.Equal(t, tt.firstDay, periods[0].StartDay)
			for i := 1; i < len(periods); i++ {
				assert.Equal(t, periods[i-1].EndHour, periods[i].StartHour)
				assert.Equal(t, i, periods[i].Index)
			}
			last := periods[len(periods)-1]
			assert.LessOrEqual(t, last.EndHour, model.HoursPerYear)
		})
	}
}

func TestPartition_Invalid(t *testing.T) {
	_, err := Partition(Config{NDays: 0})
	assert.Error(t, err)
	_, err = Partition(Config{NDays: 2, Lookback: -1})
	assert.Error(t, err)
	_, err = Partition(Config{NDays: 2, Policy: "mirror"})
	assert.Error(t, err)
	_, err = Partition(Config{NDays: 364, Lookback: 1, Lookforward: 1})
	assert.Error(t, err)
}

func TestResolver_ShiftWindows(t *testing.T) {
	cfg := Config{NDays: 2, Lookback: 1, Lookforward: 1}
	periods, err := Partition(cfg)
	require.NoError(t, err)
	r := NewResolver(cfg)

	assert.Equal(t, 96, r.WindowHours())

	first := r.Window(0, periods[0])
	assert.Equal(t, 0, first.StartHour)
	assert.Equal(t, 96, first.EndHour)

	w := r.Window(0, periods[18])
	assert.Equal(t, 864, w.StartHour)
	assert.Equal(t, 960, w.EndHour)

	last := r.Window(180, periods[180])
	assert.Equal(t, 8640, last.StartHour)
	assert.Equal(t, 8736, last.EndHour)
	assert.False(t, last.Wrapped)

	oneDay := NewResolver(Config{NDays: 1, Lookback: 1, Lookforward: 1})
	p3 := model.Period{Index: 3, StartDay: 4, StartHour: 96, EndHour: 120}
	w3 := oneDay.Window(0, p3)
	assert.Equal(t, 72, w3.StartHour)
	assert.Equal(t, 144, w3.EndHour)
}

func TestResolver_WrapAndClip(t *testing.T) {
	wrapCfg := Config{NDays: 2, Lookback: 1, Lookforward: 1, Policy: BoundaryWrap}
	periods, err := Partition(wrapCfg)
	require.NoError(t, err)

	wrap := NewResolver(wrapCfg)
	w := wrap.Window(0, periods[0])
	assert.True(t, w.Wrapped)
	assert.Equal(t, model.HoursPerYear-24, w.StartHour)
	assert.Equal(t, 72, w.EndHour)
	assert.Equal(t, 96, wrap.WindowLength(w))
	assert.Equal(t, 364, wrap.FirstSimulatedDay(periods[0]))

	h, ok := wrap.Hour(periods[0], 0)
	assert.True(t, ok)
	assert.Equal(t, model.HoursPerYear-24, h)

	clipCfg := wrapCfg
	clipCfg.Policy = BoundaryClip
	clip := NewResolver(clipCfg)
	c := clip.Window(0, periods[0])
	assert.False(t, c.Wrapped)
	assert.Equal(t, 0, c.StartHour)
	assert.Equal(t, 72, c.EndHour)
	assert.Equal(t, 0, clip.FirstSimulatedDay(periods[0]))

	_, ok = clip.Hour(periods[0], 0)
	assert.False(t, ok)
	h, ok = clip.Hour(periods[0], 24)
	assert.True(t, ok)
	assert.Equal(t, 0, h)
}

func TestResolver_WrapLeapYear(t *testing.T) {
	cfg := Config{NDays: 2, Lookback: 1, Lookforward: 1, Policy: BoundaryWrap, YearDays: 366}
	periods, err := Partition(cfg)
	require.NoError(t, err)

	r := NewResolver(cfg)
	w := r.Window(0, periods[0])
	assert.True(t, w.Wrapped)
	assert.Equal(t, 8760, w.StartHour)
	assert.Equal(t, 72, w.EndHour)
	assert.Equal(t, 96, r.WindowLength(w))

	h, ok := r.Hour(periods[0], 0)
	assert.True(t, ok)
	assert.Equal(t, 8760, h)
}
