package window

import (
	"github.com/jaredthomas68/HOPP/pkg/model"
)

// Resolver maps periods to the hour windows that must be simulated for them
type Resolver struct {
	cfg Config
}

// NewResolver creates a resolver for a validated partition config
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

// Config returns the partition config the resolver was built with
func (r *Resolver) Config() Config {
	return r.cfg
}

// WindowHours returns the nominal window length in hours
func (r *Resolver) WindowHours() int {
	return (r.cfg.Lookback + r.cfg.NDays + r.cfg.Lookforward) * model.HoursPerDay
}

// WindowLength returns the length in hours of a window produced by Window
func (r *Resolver) WindowLength(w model.SimulationWindow) int {
	return w.Hours(r.cfg.YearDays * model.HoursPerDay)
}

// LookbackHours returns the number of hours simulated before production
func (r *Resolver) LookbackHours() int {
	return r.cfg.Lookback * model.HoursPerDay
}

// Window returns the simulation window for period p on behalf of a cluster
func (r *Resolver) Window(clusterID int, p model.Period) model.SimulationWindow {
	yearHours := r.cfg.YearDays * model.HoursPerDay
	start := p.StartHour - r.LookbackHours()
	end := p.EndHour + r.cfg.Lookforward*model.HoursPerDay

	w := model.SimulationWindow{ClusterID: clusterID, StartHour: start, EndHour: end}
	switch r.cfg.Policy {
	case BoundaryWrap:
		if start < 0 {
			w.StartHour = start + yearHours
			w.Wrapped = true
		}
		if end > yearHours {
			w.EndHour = end - yearHours
			w.Wrapped = true
		}
	case BoundaryClip:
		if start < 0 {
			w.StartHour = 0
		}
		if end > yearHours {
			w.EndHour = yearHours
		}
	}
	return w
}

// Hour maps position i of the nominal window of period p to an hour of the
// year. The second result is false when the hour falls outside the year and
// the policy does not wrap.
func (r *Resolver) Hour(p model.Period, i int) (int, bool) {
	yearHours := r.cfg.YearDays * model.HoursPerDay
	h := p.StartHour - r.LookbackHours() + i
	if h >= 0 && h < yearHours {
		return h, true
	}
	if r.cfg.Policy == BoundaryWrap {
		return ((h % yearHours) + yearHours) % yearHours, true
	}
	return 0, false
}

// FirstSimulatedDay returns the day of year on which the window of p starts
func (r *Resolver) FirstSimulatedDay(p model.Period) int {
	day := p.StartDay - r.cfg.Lookback
	if day < 0 {
		if r.cfg.Policy == BoundaryWrap {
			return day + r.cfg.YearDays
		}
		return 0
	}
	return day
}
