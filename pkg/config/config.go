// Package config loads YAML run files for the command line tools
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jaredthomas68/HOPP/pkg/clustering"
	"github.com/jaredthomas68/HOPP/pkg/data"
	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

// Clustering holds the clustering knobs of a run
type Clustering struct {
	PowerSources      []string             `yaml:"power_sources"`
	NDays             int                  `yaml:"ndays"`
	NCluster          int                  `yaml:"n_cluster"`
	UseDefaultWeights *bool                `yaml:"use_default_weights"`
	Features          []feature.Descriptor `yaml:"features,omitempty"`
	Lookback          *int                 `yaml:"lookback,omitempty"`
	Lookforward       *int                 `yaml:"lookforward,omitempty"`
	Boundary          string               `yaml:"boundary"`
	MaxIterations     int                  `yaml:"max_iterations"`
}

// Resources names the input files
type Resources struct {
	SolarFile string `yaml:"solar_file"`
	WindFile  string `yaml:"wind_file"`
	PriceFile string `yaml:"price_file"`
}

// Storage holds service endpoints
type Storage struct {
	DuckDBPath string `yaml:"duckdb_path"`
	MilvusAddr string `yaml:"milvus_addr"`
	NATSUrl    string `yaml:"nats_url"`
	StreamName string `yaml:"stream_name"`
}

// Config is one run file
type Config struct {
	Name       string     `yaml:"name"`
	Clustering Clustering `yaml:"clustering"`
	Resources  Resources  `yaml:"resources"`
	Storage    Storage    `yaml:"storage"`
}

// Default returns a run for a tower plant with default clustering
func Default() Config {
	useDefault := true
	return Config{
		Name: "default",
		Clustering: Clustering{
			PowerSources:      []string{feature.SourceTower},
			NDays:             2,
			NCluster:          20,
			UseDefaultWeights: &useDefault,
			Boundary:          string(window.BoundaryShift),
		},
		Storage: Storage{
			DuckDBPath: "hopp.duckdb",
			MilvusAddr: "localhost:19530",
			NATSUrl:    "nats://localhost:4222",
			StreamName: "hopp",
		},
	}
}

// Load reads a run file. Values missing from the file keep their defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a run file
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config: %v", feature.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the run file
func (c Config) Validate() error {
	if c.Resources.SolarFile == "" {
		return fmt.Errorf("%w: resources.solar_file is required", feature.ErrConfiguration)
	}
	return c.ToClustering().Validate()
}

// ToClustering converts the clustering section
func (c Config) ToClustering() clustering.Config {
	cc := c.Clustering
	out := clustering.DefaultConfig(cc.PowerSources...)
	if cc.NDays != 0 {
		out.NDays = cc.NDays
	}
	if cc.NCluster != 0 {
		out.NCluster = cc.NCluster
	}
	if cc.UseDefaultWeights != nil {
		out.UseDefaultWeights = *cc.UseDefaultWeights
	}
	if !out.UseDefaultWeights {
		out.Features = cc.Features
	}
	out.Lookback = cc.Lookback
	out.Lookforward = cc.Lookforward
	if cc.Boundary != "" {
		out.Boundary = window.BoundaryPolicy(cc.Boundary)
	}
	out.MaxIterations = cc.MaxIterations
	return out
}

// Files returns the resource files to load
func (c Config) Files() data.Files {
	return data.Files{
		SolarFile: c.Resources.SolarFile,
		WindFile:  c.Resources.WindFile,
		PriceFile: c.Resources.PriceFile,
	}
}

// Marshal encodes the run file
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
