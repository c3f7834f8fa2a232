package clustering

import (
	"fmt"

	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

// Config holds configuration for one clustering analysis
type Config struct {
	PowerSources      []string
	NDays             int
	NCluster          int
	UseDefaultWeights bool
	Features          []feature.Descriptor // used when UseDefaultWeights is false

	// Lookback and Lookforward override the days derived from PowerSources
	Lookback    *int
	Lookforward *int

	Boundary      window.BoundaryPolicy
	MaxIterations int // SWAP pass limit of the cluster engine, 0 for default
}

// DefaultConfig returns default configuration for the given technologies
func DefaultConfig(powerSources ...string) Config {
	return Config{
		PowerSources:      powerSources,
		NDays:             2,
		NCluster:          20,
		UseDefaultWeights: true,
		Boundary:          window.BoundaryShift,
	}
}

// lookDays holds the lookback and lookforward days each technology needs
var lookDays = map[string][2]int{
	feature.SourceTower:   {1, 1},
	feature.SourceTrough:  {1, 1},
	feature.SourceBattery: {1, 1},
	feature.SourcePV:      {0, 0},
	feature.SourceWind:    {1, 1},
}

// LookDays returns the lookback and lookforward days required by the most
// demanding active technology, with any configured override applied
func (c Config) LookDays() (lookback, lookforward int) {
	for _, source := range c.PowerSources {
		d := lookDays[source]
		lookback = max(lookback, d[0])
		lookforward = max(lookforward, d[1])
	}
	if c.Lookback != nil {
		lookback = *c.Lookback
	}
	if c.Lookforward != nil {
		lookforward = *c.Lookforward
	}
	return lookback, lookforward
}

// Window returns the partition config implied by c
func (c Config) Window() window.Config {
	lookback, lookforward := c.LookDays()
	cfg := window.DefaultConfig()
	cfg.NDays = c.NDays
	cfg.Lookback = lookback
	cfg.Lookforward = lookforward
	if c.Boundary != "" {
		cfg.Policy = c.Boundary
	}
	return cfg
}

// Descriptors returns the features the run clusters on
func (c Config) Descriptors() ([]feature.Descriptor, error) {
	if c.UseDefaultWeights {
		return feature.DefaultDescriptors(c.PowerSources, c.NDays)
	}
	if err := feature.Validate(c.Features); err != nil {
		return nil, err
	}
	return c.Features, nil
}

// Validate checks the configuration
func (c Config) Validate() error {
	if err := feature.ValidatePowerSources(c.PowerSources); err != nil {
		return err
	}
	if c.NDays < 1 {
		return fmt.Errorf("%w: ndays must be at least 1, got %d", feature.ErrConfiguration, c.NDays)
	}
	if c.NCluster < 1 {
		return fmt.Errorf("%w: n_cluster must be at least 1, got %d", feature.ErrConfiguration, c.NCluster)
	}
	if err := c.Window().Validate(); err != nil {
		return fmt.Errorf("%w: %v", feature.ErrConfiguration, err)
	}
	if _, err := c.Descriptors(); err != nil {
		return err
	}
	return nil
}
