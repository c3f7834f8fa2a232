package model

// Period is a contiguous block of production days within the year
type Period struct {
	Index     int `json:"index"`
	StartDay  int `json:"start_day"`  // day of year of the first production day (Jan 1 = 0)
	StartHour int `json:"start_hour"` // inclusive
	EndHour   int `json:"end_hour"`   // exclusive
}

// Hours returns the period length in hours
func (p Period) Hours() int {
	return p.EndHour - p.StartHour
}

// Days returns the period length in days
func (p Period) Days() int {
	return p.Hours() / HoursPerDay
}

// SimulationWindow is the hour range an external simulator runs for a cluster
type SimulationWindow struct {
	ClusterID int  `json:"cluster_id"`
	StartHour int  `json:"start_hour"` // inclusive
	EndHour   int  `json:"end_hour"`   // exclusive
	Wrapped   bool `json:"wrapped"`    // window runs past year end and continues at hour 0
}

// Hours returns the window length in hours in a year of yearHours hours,
// accounting for wrap
func (w SimulationWindow) Hours(yearHours int) int {
	if w.Wrapped {
		return yearHours - w.StartHour + w.EndHour
	}
	return w.EndHour - w.StartHour
}

// StartDay returns the day of year on which the window begins
func (w SimulationWindow) StartDay() int {
	return w.StartHour / HoursPerDay
}
