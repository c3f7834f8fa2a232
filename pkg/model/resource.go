package model

import "fmt"

// Calendar constants for a non-leap simulation year
const (
	HoursPerDay  = 24
	DaysPerYear  = 365
	HoursPerYear = HoursPerDay * DaysPerYear
)

// Stream names one hourly input series used for clustering
type Stream string

// Supported streams
const (
	StreamDNI         Stream = "dni"         // direct normal irradiance [W/m2]
	StreamGHI         Stream = "ghi"         // global horizontal irradiance [W/m2]
	StreamWindSpeed   Stream = "wind_speed"  // hub or surface wind speed [m/s]
	StreamTemperature Stream = "temperature" // dry bulb temperature [C]
	StreamPrice       Stream = "price"       // price multiplier [-]
)

// Streams lists every known stream in a fixed order
var Streams = []Stream{StreamDNI, StreamGHI, StreamWindSpeed, StreamTemperature, StreamPrice}

// Valid reports whether s is a known stream
func (s Stream) Valid() bool {
	for _, known := range Streams {
		if s == known {
			return true
		}
	}
	return false
}

// ResourceSeries holds one calendar year of resource and price data
type ResourceSeries struct {
	StepsPerHour int                  `json:"steps_per_hour"`
	Data         map[Stream][]float64 `json:"data"`
}

// NewResourceSeries creates an empty series with the given time resolution
func NewResourceSeries(stepsPerHour int) *ResourceSeries {
	return &ResourceSeries{
		StepsPerHour: stepsPerHour,
		Data:         make(map[Stream][]float64),
	}
}

// Steps returns the expected number of samples per stream
func (r *ResourceSeries) Steps() int {
	return HoursPerYear * r.StepsPerHour
}

// Set stores values for a stream
func (r *ResourceSeries) Set(s Stream, values []float64) {
	r.Data[s] = values
}

// Get returns the values for a stream and whether it is present
func (r *ResourceSeries) Get(s Stream) ([]float64, bool) {
	v, ok := r.Data[s]
	return v, ok
}

// Has returns true if the stream is present
func (r *ResourceSeries) Has(s Stream) bool {
	_, ok := r.Data[s]
	return ok
}

// Validate checks that every stream covers exactly one year
func (r *ResourceSeries) Validate() error {
	if r.StepsPerHour < 1 {
		return fmt.Errorf("steps per hour must be positive, got %d", r.StepsPerHour)
	}
	for s, values := range r.Data {
		if !s.Valid() {
			return fmt.Errorf("unknown stream %q", s)
		}
		if len(values) != r.Steps() {
			return fmt.Errorf("stream %s has %d samples, want %d", s, len(values), r.Steps())
		}
	}
	return nil
}
