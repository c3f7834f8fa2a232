package window

import (
	"fmt"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// BoundaryPolicy decides how lookback and lookforward days are handled at
// the edges of the year
type BoundaryPolicy string

const (
	// BoundaryShift starts the first period after the lookback days and ends
	// the last one before the lookforward days, so no window leaves the year
	BoundaryShift BoundaryPolicy = "shift"
	// BoundaryWrap tiles periods from day 0 and wraps edge windows around
	// to the other end of the same year
	BoundaryWrap BoundaryPolicy = "wrap"
	// BoundaryClip tiles periods from day 0 and truncates edge windows
	BoundaryClip BoundaryPolicy = "clip"
)

// Valid reports whether p is a known policy
func (p BoundaryPolicy) Valid() bool {
	switch p {
	case BoundaryShift, BoundaryWrap, BoundaryClip:
		return true
	}
	return false
}

// Config holds the partitioning parameters
type Config struct {
	NDays       int            // production days per period
	Lookback    int            // days simulated before each period
	Lookforward int            // days simulated after each period
	YearDays    int            // defaults to 365
	Policy      BoundaryPolicy // defaults to BoundaryShift
}

// DefaultConfig returns a Config with two-day periods and one day of
// lookback and lookforward
func DefaultConfig() Config {
	return Config{
		NDays:       2,
		Lookback:    1,
		Lookforward: 1,
		YearDays:    model.DaysPerYear,
		Policy:      BoundaryShift,
	}
}

func (c Config) withDefaults() Config {
	if c.YearDays <= 0 {
		c.YearDays = model.DaysPerYear
	}
	if c.Policy == "" {
		c.Policy = BoundaryShift
	}
	return c
}

// Validate checks the configuration
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.NDays < 1 {
		return fmt.Errorf("ndays must be at least 1, got %d", c.NDays)
	}
	if c.Lookback < 0 || c.Lookforward < 0 {
		return fmt.Errorf("lookback and lookforward must not be negative")
	}
	if !c.Policy.Valid() {
		return fmt.Errorf("unknown boundary policy %q", c.Policy)
	}
	if c.Lookback+c.NDays+c.Lookforward > c.YearDays {
		return fmt.Errorf("window of %d days does not fit in a %d day year", c.Lookback+c.NDays+c.Lookforward, c.YearDays)
	}
	return nil
}

// firstDay returns the first production day of period 0
func (c Config) firstDay() int {
	if c.Policy == BoundaryShift {
		return c.Lookback
	}
	return 0
}

// usableDays returns how many days are available for production periods
func (c Config) usableDays() int {
	if c.Policy == BoundaryShift {
		return c.YearDays - c.Lookback - c.Lookforward
	}
	return c.YearDays
}

// Partition splits the year into non-overlapping periods of NDays days.
// A trailing block shorter than NDays is dropped.
func Partition(cfg Config) ([]model.Period, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.usableDays() / cfg.NDays
	periods := make([]model.Period, n)
	for i := range periods {
		day := cfg.firstDay() + i*cfg.NDays
		periods[i] = model.Period{
			Index:     i,
			StartDay:  day,
			StartHour: day * model.HoursPerDay,
			EndHour:   (day + cfg.NDays) * model.HoursPerDay,
		}
	}
	return periods, nil
}

// Count returns the number of periods Partition would produce
func Count(cfg Config) int {
	cfg = cfg.withDefaults()
	if cfg.NDays < 1 {
		return 0
	}
	return cfg.usableDays() / cfg.NDays
}
