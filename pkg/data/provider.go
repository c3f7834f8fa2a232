package data

import (
	"context"
	"fmt"

	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
)

// ErrMalformedResource is returned for resource files that cannot be parsed
// into one year of data. It is also a configuration error.
var ErrMalformedResource = fmt.Errorf("%w: malformed resource file", feature.ErrConfiguration)

// ResourceProvider defines the interface for loading one year of resource data
type ResourceProvider interface {
	// Streams lists the streams the provider supplies
	Streams() []model.Stream

	// Fetch loads the data. Every returned stream covers one year.
	Fetch(ctx context.Context) (*model.ResourceSeries, error)
}

// Files names the resource files of one analysis. Only SolarFile is required.
type Files struct {
	SolarFile string // NSRDB PSM v3 CSV
	WindFile  string // SAM .srw, wind speed is taken from SolarFile if empty
	PriceFile string // one price multiplier per row, flat 1.0 if empty
}

// Providers returns the providers for the given files in merge order
func (f Files) Providers() []ResourceProvider {
	providers := []ResourceProvider{NewPSM3Provider(f.SolarFile)}
	if f.WindFile != "" {
		providers = append(providers, NewSRWWindProvider(f.WindFile))
	}
	if f.PriceFile != "" {
		providers = append(providers, NewPriceProvider(f.PriceFile))
	}
	return providers
}

// Load reads the files into one series
func Load(ctx context.Context, files Files) (*model.ResourceSeries, error) {
	if files.SolarFile == "" {
		return nil, fmt.Errorf("%w: no solar resource file", feature.ErrConfiguration)
	}
	return Compose(ctx, files.Providers()...)
}

// Compose merges the streams of several providers. Streams of later
// providers replace earlier ones. The resolution of the first provider wins;
// coarser data is repeated to match it. A missing price stream is filled
// with a flat multiplier of 1.
func Compose(ctx context.Context, providers ...ResourceProvider) (*model.ResourceSeries, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no resource providers", feature.ErrConfiguration)
	}

	var out *model.ResourceSeries
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := p.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = model.NewResourceSeries(series.StepsPerHour)
		}
		for stream, values := range series.Data {
			resampled, err := resample(values, series.StepsPerHour, out.StepsPerHour)
			if err != nil {
				return nil, fmt.Errorf("stream %s: %w", stream, err)
			}
			out.Set(stream, resampled)
		}
	}

	if !out.Has(model.StreamPrice) {
		flat := make([]float64, out.Steps())
		for i := range flat {
			flat[i] = 1
		}
		out.Set(model.StreamPrice, flat)
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}
	return out, nil
}

// resample repeats coarse values to a finer resolution
func resample(values []float64, from, to int) ([]float64, error) {
	if from == to {
		return values, nil
	}
	if from > to || to%from != 0 {
		return nil, fmt.Errorf("%w: cannot resample %d to %d steps per hour", ErrMalformedResource, from, to)
	}
	factor := to / from
	out := make([]float64, 0, len(values)*factor)
	for _, v := range values {
		for i := 0; i < factor; i++ {
			out = append(out, v)
		}
	}
	return out, nil
}

// stepsPerHour derives the resolution of a year long column
func stepsPerHour(rows int) (int, error) {
	if rows == 0 || rows%model.HoursPerYear != 0 {
		return 0, fmt.Errorf("%w: %d rows is not a whole number of samples per hour of a %d hour year",
			ErrMalformedResource, rows, model.HoursPerYear)
	}
	return rows / model.HoursPerYear, nil
}

// MemoryProvider implements ResourceProvider with in-memory arrays
type MemoryProvider struct {
	series *model.ResourceSeries
}

// NewMemoryProvider creates a provider that returns the given series
func NewMemoryProvider(series *model.ResourceSeries) *MemoryProvider {
	return &MemoryProvider{series: series}
}

// NewHourlyMemoryProvider creates a provider from hourly arrays keyed by stream
func NewHourlyMemoryProvider(data map[model.Stream][]float64) *MemoryProvider {
	series := model.NewResourceSeries(1)
	for stream, values := range data {
		series.Set(stream, values)
	}
	return &MemoryProvider{series: series}
}

// Streams lists the streams held in memory
func (p *MemoryProvider) Streams() []model.Stream {
	var streams []model.Stream
	for _, s := range model.Streams {
		if p.series.Has(s) {
			streams = append(streams, s)
		}
	}
	return streams
}

// Fetch returns the series after checking it covers one year
func (p *MemoryProvider) Fetch(ctx context.Context) (*model.ResourceSeries, error) {
	if err := p.series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResource, err)
	}
	return p.series, nil
}
