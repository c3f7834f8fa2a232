// Package heuristic estimates storage initial states for simulation windows
package heuristic

import (
	"math"
	"sort"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// Default initial states used when nothing better is known
const (
	DefaultBatterySOC = 20.0 // [%]
	DefaultCSPSOC     = 10.0 // [%]
)

// Strategy estimates the storage state at the beginning of a day of year
type Strategy interface {
	BatterySOC(day int, hist *model.StateHistory) float64
	CSPState(day int, solarMultiple float64, hist *model.StateHistory) model.InitialState
}

// Default ignores history and returns fixed constants
type Default struct{}

// BatterySOC returns DefaultBatterySOC
func (Default) BatterySOC(int, *model.StateHistory) float64 {
	return DefaultBatterySOC
}

// CSPState returns a discharged tank with the power cycle off
func (Default) CSPState(int, float64, *model.StateHistory) model.InitialState {
	return defaultCSP()
}

func defaultCSP() model.InitialState {
	return model.InitialState{SOC: DefaultCSPSOC, CycleOn: false, CycleLoad: 0}
}

// Config holds configuration for the history strategy
type Config struct {
	MaxGapDays  int     // how far past the last record a state may be carried
	ReferenceSM float64 // solar multiple at which the SOC trend is taken as is
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxGapDays:  7,
		ReferenceSM: 2,
	}
}

// FromHistory derives states from known states on nearby days and falls
// back to Default when the history does not cover the requested day
type FromHistory struct {
	config Config
}

// NewFromHistory creates a history based strategy
func NewFromHistory(config Config) *FromHistory {
	if config.MaxGapDays < 0 {
		config.MaxGapDays = 0
	}
	if config.ReferenceSM <= 0 {
		config.ReferenceSM = DefaultConfig().ReferenceSM
	}
	return &FromHistory{config: config}
}

// record is one history entry
type record struct {
	day  int
	soc  float64
	load float64
}

// sorted returns the usable history records ordered by day
func sorted(hist *model.StateHistory) []record {
	n := hist.Len()
	recs := make([]record, n)
	for i := 0; i < n; i++ {
		recs[i] = record{day: hist.Days[i], soc: hist.SOC[i], load: hist.LoadAt(i)}
	}
	sort.SliceStable(recs, func(a, b int) bool { return recs[a].day < recs[b].day })
	return recs
}

// lookup finds the records around day. It returns the matching or
// interpolated record, or the last record and the one before it when day lies
// shortly after the history.
func (f *FromHistory) lookup(day int, recs []record) (rec record, prev *record, found, extrapolated bool) {
	if len(recs) == 0 {
		return record{}, nil, false, false
	}
	for i, r := range recs {
		if r.day == day {
			return r, nil, true, false
		}
		if r.day > day {
			if i == 0 {
				return record{}, nil, false, false
			}
			lo := recs[i-1]
			t := float64(day-lo.day) / float64(r.day-lo.day)
			return record{
				day:  day,
				soc:  lo.soc + t*(r.soc-lo.soc),
				load: lo.load + t*(r.load-lo.load),
			}, nil, true, false
		}
	}

	last := recs[len(recs)-1]
	if day-last.day > f.config.MaxGapDays {
		return record{}, nil, false, false
	}
	if len(recs) > 1 {
		prev = &recs[len(recs)-2]
	}
	return last, prev, true, true
}

// BatterySOC returns the battery state of charge at the beginning of day
func (f *FromHistory) BatterySOC(day int, hist *model.StateHistory) float64 {
	rec, _, ok, _ := f.lookup(day, sorted(hist))
	if !ok {
		return DefaultBatterySOC
	}
	return clamp(rec.soc, 0, 100)
}

// CSPState returns the thermal storage and power cycle state at the
// beginning of day.
//
// Past the end of the history the last SOC is scaled by the recent charging
// trend relative to the solar multiple, capped at the last known value.
func (f *FromHistory) CSPState(day int, solarMultiple float64, hist *model.StateHistory) model.InitialState {
	rec, prev, ok, extrapolated := f.lookup(day, sorted(hist))
	if !ok {
		return defaultCSP()
	}

	soc := rec.soc
	if extrapolated {
		sm := solarMultiple
		if sm <= 0 {
			sm = f.config.ReferenceSM
		}
		trend := 1.0
		if prev != nil {
			if prev.soc > 0 {
				trend = rec.soc / prev.soc
			} else if rec.soc > 0 {
				trend = math.Inf(1)
			}
		}
		soc *= clamp(trend*sm/f.config.ReferenceSM, 0, 1)
	}

	load := clamp(rec.load, 0, 100)
	return model.InitialState{
		SOC:       clamp(soc, 0, 100),
		CycleOn:   load > 0,
		CycleLoad: load / 100,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
