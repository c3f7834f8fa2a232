package feature

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// ErrConfiguration is returned for invalid power sources or feature settings
var ErrConfiguration = errors.New("configuration error")

// Aggregation reduces the samples of one sub-period to a scalar
type Aggregation string

// Supported aggregations
const (
	AggMean  Aggregation = "mean"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
	AggRange Aggregation = "range"
)

// Power source names accepted for clustering
const (
	SourcePV      = "pv"
	SourceWind    = "wind"
	SourceTower   = "tower"
	SourceTrough  = "trough"
	SourceBattery = "battery"
)

// SupportedSources lists the technologies the default features know about
var SupportedSources = []string{SourcePV, SourceWind, SourceTower, SourceTrough, SourceBattery}

// Descriptor defines one block of the per-period feature vector
type Descriptor struct {
	Stream      model.Stream `json:"stream" yaml:"stream"`
	Aggregation Aggregation  `json:"aggregation" yaml:"aggregation"`
	Divisions   int          `json:"divisions" yaml:"divisions"`     // equal sub-periods per period
	BoundMin    float64      `json:"bound_min" yaml:"bound_min"`     // value mapped to 0
	BoundMax    float64      `json:"bound_max" yaml:"bound_max"`     // value mapped to 1
	AutoBounds  bool         `json:"auto_bounds" yaml:"auto_bounds"` // use the stream's annual min/max instead
	Weight      float64      `json:"weight" yaml:"weight"`
}

// Key identifies the descriptor by stream and aggregation
func (d Descriptor) Key() string {
	return fmt.Sprintf("%s_%s", d.Stream, d.Aggregation)
}

// Validate checks a single descriptor
func (d Descriptor) Validate() error {
	if !d.Stream.Valid() {
		return fmt.Errorf("%w: unknown stream %q", ErrConfiguration, d.Stream)
	}
	switch d.Aggregation {
	case AggMean, AggMin, AggMax, AggRange:
	default:
		return fmt.Errorf("%w: unknown aggregation %q for %s", ErrConfiguration, d.Aggregation, d.Stream)
	}
	if d.Divisions < 1 {
		return fmt.Errorf("%w: %s divisions must be at least 1, got %d", ErrConfiguration, d.Key(), d.Divisions)
	}
	if !d.AutoBounds && d.BoundMax <= d.BoundMin {
		return fmt.Errorf("%w: %s bounds [%g, %g] are empty", ErrConfiguration, d.Key(), d.BoundMin, d.BoundMax)
	}
	if d.Weight < 0 {
		return fmt.Errorf("%w: %s weight must not be negative", ErrConfiguration, d.Key())
	}
	return nil
}

// Validate checks a full descriptor list
func Validate(descs []Descriptor) error {
	if len(descs) == 0 {
		return fmt.Errorf("%w: no clustering features defined", ErrConfiguration)
	}
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Key()] {
			return fmt.Errorf("%w: duplicate feature %s", ErrConfiguration, d.Key())
		}
		seen[d.Key()] = true
	}
	return nil
}

// FromParts assembles descriptors from parallel weight, division and bound
// lists. Mismatched lengths are a configuration error.
func FromParts(streams []model.Stream, aggs []Aggregation, weights []float64, divisions []int, bounds [][2]float64) ([]Descriptor, error) {
	n := len(streams)
	if len(aggs) != n || len(weights) != n || len(divisions) != n || len(bounds) != n {
		return nil, fmt.Errorf("%w: mismatched lengths: streams=%d aggregations=%d weights=%d divisions=%d bounds=%d",
			ErrConfiguration, n, len(aggs), len(weights), len(divisions), len(bounds))
	}
	descs := make([]Descriptor, n)
	for i := range descs {
		descs[i] = Descriptor{
			Stream:      streams[i],
			Aggregation: aggs[i],
			Divisions:   divisions[i],
			BoundMin:    bounds[i][0],
			BoundMax:    bounds[i][1],
			Weight:      weights[i],
		}
	}
	return descs, Validate(descs)
}

// Parts splits descriptors back into parallel lists
func Parts(descs []Descriptor) (weights []float64, divisions []int, bounds [][2]float64) {
	weights = make([]float64, len(descs))
	divisions = make([]int, len(descs))
	bounds = make([][2]float64, len(descs))
	for i, d := range descs {
		weights[i] = d.Weight
		divisions[i] = d.Divisions
		bounds[i] = [2]float64{d.BoundMin, d.BoundMax}
	}
	return weights, divisions, bounds
}

// Dim returns the feature vector length produced by descs
func Dim(descs []Descriptor) int {
	n := 0
	for _, d := range descs {
		n += d.Divisions
	}
	return n
}

// ValidatePowerSources rejects empty or unknown technology names
func ValidatePowerSources(sources []string) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no power sources given", ErrConfiguration)
	}
	for _, s := range sources {
		if !isSupported(s) {
			return fmt.Errorf("%w: unsupported power source %q (supported: %v)", ErrConfiguration, s, SupportedSources)
		}
	}
	return nil
}

func isSupported(source string) bool {
	for _, s := range SupportedSources {
		if s == source {
			return true
		}
	}
	return false
}

// perDay describes a default feature with divisions given per day
type perDay struct {
	stream    model.Stream
	agg       Aggregation
	divisions int
	min, max  float64
	weight    float64
}

var sourceDefaults = map[string][]perDay{
	SourceTower: {
		{model.StreamDNI, AggMean, 8, 0, 1000, 1.0},
		{model.StreamDNI, AggMax, 1, 0, 1000, 0.25},
		{model.StreamPrice, AggMean, 4, 0, 2, 0.3},
	},
	SourceTrough: {
		{model.StreamDNI, AggMean, 8, 0, 1000, 1.0},
		{model.StreamDNI, AggMax, 1, 0, 1000, 0.25},
		{model.StreamPrice, AggMean, 4, 0, 2, 0.3},
	},
	SourcePV: {
		{model.StreamGHI, AggMean, 8, 0, 1000, 1.0},
		{model.StreamTemperature, AggMean, 1, -20, 45, 0.1},
	},
	SourceWind: {
		{model.StreamWindSpeed, AggMean, 8, 0, 25, 1.0},
		{model.StreamWindSpeed, AggRange, 1, 0, 25, 0.25},
	},
	SourceBattery: {
		{model.StreamPrice, AggMean, 8, 0, 2, 0.75},
		{model.StreamPrice, AggRange, 1, 0, 2, 0.25},
	},
}

// DefaultDescriptors returns the technology dependent default features for
// periods of ndays days. Features shared by several sources keep the larger
// weight and division count.
func DefaultDescriptors(powerSources []string, ndays int) ([]Descriptor, error) {
	if err := ValidatePowerSources(powerSources); err != nil {
		return nil, err
	}
	if ndays < 1 {
		return nil, fmt.Errorf("%w: ndays must be at least 1, got %d", ErrConfiguration, ndays)
	}

	merged := make(map[string]Descriptor)
	for _, source := range powerSources {
		for _, def := range sourceDefaults[source] {
			d := Descriptor{
				Stream:      def.stream,
				Aggregation: def.agg,
				Divisions:   def.divisions * ndays,
				BoundMin:    def.min,
				BoundMax:    def.max,
				Weight:      def.weight,
			}
			if prev, ok := merged[d.Key()]; ok {
				if prev.Weight > d.Weight {
					d.Weight = prev.Weight
				}
				if prev.Divisions > d.Divisions {
					d.Divisions = prev.Divisions
				}
			}
			merged[d.Key()] = d
		}
	}

	descs := make([]Descriptor, 0, len(merged))
	for _, d := range merged {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool {
		return streamOrder(descs[i].Stream) < streamOrder(descs[j].Stream) ||
			(descs[i].Stream == descs[j].Stream && descs[i].Aggregation < descs[j].Aggregation)
	})
	return descs, nil
}

func streamOrder(s model.Stream) int {
	for i, known := range model.Streams {
		if s == known {
			return i
		}
	}
	return len(model.Streams)
}
