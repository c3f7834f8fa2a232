package model

// InitialState is the storage state at the start of a simulation window
type InitialState struct {
	SOC       float64 `json:"soc"`        // state of charge [%]
	CycleOn   bool    `json:"cycle_on"`   // CSP power cycle running
	CycleLoad float64 `json:"cycle_load"` // CSP power cycle load fraction [0-1]
}

// StateHistory holds known storage states at the beginning of given days.
// Load is optional and only used for CSP.
type StateHistory struct {
	Days []int     `json:"day"`
	SOC  []float64 `json:"soc"`  // [%]
	Load []float64 `json:"load"` // power cycle load [%]
}

// Len returns the number of usable records
func (h *StateHistory) Len() int {
	if h == nil {
		return 0
	}
	n := len(h.Days)
	if len(h.SOC) < n {
		n = len(h.SOC)
	}
	return n
}

// LoadAt returns the cycle load of record i, zero if loads were not given
func (h *StateHistory) LoadAt(i int) float64 {
	if i < len(h.Load) {
		return h.Load[i]
	}
	return 0
}
