package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// Builder turns resource series into per-period feature vectors
type Builder struct {
	Descriptors []Descriptor
}

// NewBuilder creates a builder after validating the descriptors
func NewBuilder(descs []Descriptor) (*Builder, error) {
	if err := Validate(descs); err != nil {
		return nil, err
	}
	return &Builder{Descriptors: descs}, nil
}

// Dim returns the length of every feature vector
func (b *Builder) Dim() int {
	return Dim(b.Descriptors)
}

// Build returns a matrix with one weighted, normalized feature row per period
func (b *Builder) Build(series *model.ResourceSeries, periods []model.Period) (*mat.Dense, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: no periods to build features for", ErrConfiguration)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	type scale struct{ lo, hi float64 }
	scales := make([]scale, len(b.Descriptors))
	for i, d := range b.Descriptors {
		values, ok := series.Get(d.Stream)
		if !ok {
			return nil, fmt.Errorf("%w: feature %s needs stream %s which was not loaded", ErrConfiguration, d.Key(), d.Stream)
		}
		lo, hi := d.BoundMin, d.BoundMax
		if d.AutoBounds {
			lo, hi = streamBounds(values)
			if d.Aggregation == AggRange {
				lo, hi = rangeBounds(lo, hi)
			}
		}
		scales[i] = scale{lo, hi}
	}

	sph := series.StepsPerHour
	features := mat.NewDense(len(periods), b.Dim(), nil)
	for row, p := range periods {
		start, end := p.StartHour*sph, p.EndHour*sph
		if start < 0 || end > series.Steps() || end <= start {
			return nil, fmt.Errorf("%w: period %d [%d, %d) outside the resource year", ErrConfiguration, p.Index, p.StartHour, p.EndHour)
		}

		col := 0
		for i, d := range b.Descriptors {
			values, _ := series.Get(d.Stream)
			slice := values[start:end]
			for _, iv := range subIntervals(len(slice), d.Divisions) {
				v := aggregate(slice[iv[0]:iv[1]], d.Aggregation)
				features.Set(row, col, ScaleToBounds(v, scales[i].lo, scales[i].hi)*d.Weight)
				col++
			}
		}
	}

	return features, nil
}

// BuildVector returns the feature vector of a single period as float32, the
// form stored in the vector index
func (b *Builder) BuildVector(series *model.ResourceSeries, p model.Period) ([]float32, error) {
	features, err := b.Build(series, []model.Period{p})
	if err != nil {
		return nil, err
	}
	return ToFloat32(features.RawRowView(0)), nil
}

// ToFloat32 converts a feature row to float32
func ToFloat32(row []float64) []float32 {
	result := make([]float32, len(row))
	for i, v := range row {
		result[i] = float32(v)
	}
	return result
}
