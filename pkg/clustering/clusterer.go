// Package clustering selects representative exemplar periods of a resource
// year, resolves the windows to simulate for them and expands exemplar
// results back onto the whole year.
//
// A Clusterer is not safe for concurrent use.
package clustering

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/jaredthomas68/HOPP/pkg/cluster"
	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/heuristic"
	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/outcome"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

var (
	// ErrNotClustered is returned by accessors called before RunClustering
	ErrNotClustered = errors.New("clustering has not been run")
	// ErrClusterID is returned for a cluster id outside the achieved clusters
	ErrClusterID = errors.New("cluster id out of range")
)

// Clusterer runs the clustering of one resource year
type Clusterer struct {
	cfg    Config
	series *model.ResourceSeries

	descs    []feature.Descriptor
	periods  []model.Period
	resolver *window.Resolver
	strategy heuristic.Strategy
	logger   *zap.Logger

	features *mat.Dense
	set      *model.ClusterSet
}

// Option configures a Clusterer
type Option func(*Clusterer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Clusterer) {
		c.logger = logger
	}
}

// WithStrategy replaces the initial-state heuristics
func WithStrategy(s heuristic.Strategy) Option {
	return func(c *Clusterer) {
		c.strategy = s
	}
}

// New creates a Clusterer. Configuration and resource problems are reported
// here rather than when clustering runs.
func New(cfg Config, series *model.ResourceSeries, opts ...Option) (*Clusterer, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: no resource series", feature.ErrConfiguration)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", feature.ErrConfiguration, err)
	}

	c := &Clusterer{
		series:   series,
		strategy: heuristic.NewFromHistory(heuristic.DefaultConfig()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.strategy == nil {
		c.strategy = heuristic.Default{}
	}

	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure replaces the configuration and discards any previous result
func (c *Clusterer) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	descs, err := cfg.Descriptors()
	if err != nil {
		return err
	}
	for _, d := range descs {
		if !c.series.Has(d.Stream) {
			return fmt.Errorf("%w: feature %s needs stream %s which was not loaded", feature.ErrConfiguration, d.Key(), d.Stream)
		}
	}

	wcfg := cfg.Window()
	periods, err := window.Partition(wcfg)
	if err != nil {
		return fmt.Errorf("%w: %v", feature.ErrConfiguration, err)
	}

	c.cfg = cfg
	c.descs = descs
	c.periods = periods
	c.resolver = window.NewResolver(wcfg)
	c.features = nil
	c.set = nil
	return nil
}

// Config returns the active configuration
func (c *Clusterer) Config() Config {
	return c.cfg
}

// RunClustering builds the feature matrix and clusters the periods. Each call
// recomputes and replaces the previous result.
func (c *Clusterer) RunClustering() error {
	builder, err := feature.NewBuilder(c.descs)
	if err != nil {
		return err
	}
	features, err := builder.Build(c.series, c.periods)
	if err != nil {
		return fmt.Errorf("failed to build features: %w", err)
	}

	engineCfg := cluster.DefaultConfig()
	if c.cfg.MaxIterations > 0 {
		engineCfg.MaxIterations = c.cfg.MaxIterations
	}
	set, err := cluster.NewEngine(engineCfg, c.logger).Run(features, c.cfg.NCluster)
	if err != nil {
		return fmt.Errorf("failed to cluster periods: %w", err)
	}

	if set.Clamped() {
		c.logger.Debug("cluster count clamped",
			zap.Int("requested", set.Requested),
			zap.Int("achieved", set.Len()))
	}

	c.features = features
	c.set = &set
	return nil
}

// Clusters returns the result of the last run
func (c *Clusterer) Clusters() (model.ClusterSet, error) {
	if c.set == nil {
		return model.ClusterSet{}, ErrNotClustered
	}
	return *c.set, nil
}

// ClusterCount returns the achieved number of clusters, 0 before a run
func (c *Clusterer) ClusterCount() int {
	if c.set == nil {
		return 0
	}
	return c.set.Len()
}

// Periods returns the candidate periods of the year
func (c *Clusterer) Periods() []model.Period {
	return c.periods
}

// Features returns the feature matrix of the last run
func (c *Clusterer) Features() (*mat.Dense, error) {
	if c.features == nil {
		return nil, ErrNotClustered
	}
	return c.features, nil
}

// Descriptors returns the features in use
func (c *Clusterer) Descriptors() []feature.Descriptor {
	return c.descs
}

// DefaultWeights returns the default features for the configured
// technologies. They can be edited and passed back through Config.Features.
func (c *Clusterer) DefaultWeights() ([]feature.Descriptor, error) {
	return feature.DefaultDescriptors(c.cfg.PowerSources, c.cfg.NDays)
}

func (c *Clusterer) exemplar(clusterID int) (model.Period, error) {
	if c.set == nil {
		return model.Period{}, ErrNotClustered
	}
	if clusterID < 0 || clusterID >= c.set.Len() {
		return model.Period{}, fmt.Errorf("%w: %d not in [0, %d)", ErrClusterID, clusterID, c.set.Len())
	}
	return c.periods[c.set.Exemplars[clusterID]], nil
}

// SimStartDays returns the first production day of every exemplar
func (c *Clusterer) SimStartDays() ([]int, error) {
	if c.set == nil {
		return nil, ErrNotClustered
	}
	days := make([]int, c.set.Len())
	for id, e := range c.set.Exemplars {
		days[id] = c.periods[e].StartDay
	}
	return days, nil
}

// SimStartEndTimes returns the hour range to simulate for a cluster
func (c *Clusterer) SimStartEndTimes(clusterID int) (start, end int, err error) {
	w, err := c.SimulationWindow(clusterID)
	if err != nil {
		return 0, 0, err
	}
	return w.StartHour, w.EndHour, nil
}

// SimulationWindow returns the window to simulate for a cluster
func (c *Clusterer) SimulationWindow(clusterID int) (model.SimulationWindow, error) {
	p, err := c.exemplar(clusterID)
	if err != nil {
		return model.SimulationWindow{}, err
	}
	return c.resolver.Window(clusterID, p), nil
}

// SimulationWindows returns the windows of all clusters in cluster order
func (c *Clusterer) SimulationWindows() ([]model.SimulationWindow, error) {
	if c.set == nil {
		return nil, ErrNotClustered
	}
	windows := make([]model.SimulationWindow, c.set.Len())
	for id := range windows {
		windows[id] = c.resolver.Window(id, c.periods[c.set.Exemplars[id]])
	}
	return windows, nil
}

// BatterySOCHeuristic returns the battery state of charge [%] at the start
// of a cluster's simulation window. hist may be nil.
func (c *Clusterer) BatterySOCHeuristic(clusterID int, hist *model.StateHistory) (float64, error) {
	p, err := c.exemplar(clusterID)
	if err != nil {
		return 0, err
	}
	return c.strategy.BatterySOC(c.resolver.FirstSimulatedDay(p), hist), nil
}

// CSPInitialStateHeuristic returns the CSP storage and power cycle state at
// the start of a cluster's simulation window. hist may be nil.
func (c *Clusterer) CSPInitialStateHeuristic(clusterID int, solarMultiple float64, hist *model.StateHistory) (model.InitialState, error) {
	p, err := c.exemplar(clusterID)
	if err != nil {
		return model.InitialState{}, err
	}
	return c.strategy.CSPState(c.resolver.FirstSimulatedDay(p), solarMultiple, hist), nil
}

func (c *Clusterer) outcome() (*outcome.Engine, error) {
	if c.set == nil {
		return nil, ErrNotClustered
	}
	return outcome.NewEngine(*c.set, c.periods, c.resolver), nil
}

// AnnualArrayFromExemplars replicates exemplar production-day results onto
// every period. exemplarData is the concatenation of each cluster's
// production-day output in cluster order.
func (c *Clusterer) AnnualArrayFromExemplars(exemplarData []float64) ([]float64, error) {
	e, err := c.outcome()
	if err != nil {
		return nil, err
	}
	return e.AnnualArray(exemplarData)
}

// FullYearArrayFromExemplars is AnnualArrayFromExemplars placed on the hours
// of the calendar year with uncovered edge days filled
func (c *Clusterer) FullYearArrayFromExemplars(exemplarData []float64) ([]float64, error) {
	e, err := c.outcome()
	if err != nil {
		return nil, err
	}
	return e.FullYearArray(exemplarData)
}

// ClusterAveragesFromTimeseries averages a full-year series, or the output of
// AnnualArrayFromExemplars, over every cluster's member windows
func (c *Clusterer) ClusterAveragesFromTimeseries(series []float64) ([][]float64, error) {
	e, err := c.outcome()
	if err != nil {
		return nil, err
	}
	return e.ClusterAverages(series)
}

// ClusterStats summarizes a full-year or per-period series per cluster
func (c *Clusterer) ClusterStats(series []float64) ([]outcome.Stats, error) {
	e, err := c.outcome()
	if err != nil {
		return nil, err
	}
	return e.ClusterStats(series)
}

// NearestCluster returns the cluster whose exemplar features are closest to
// the features of period p of series. series must carry the streams of the
// configured features.
func (c *Clusterer) NearestCluster(series *model.ResourceSeries, p model.Period) (int, error) {
	if c.set == nil {
		return 0, ErrNotClustered
	}
	builder, err := feature.NewBuilder(c.descs)
	if err != nil {
		return 0, err
	}
	row, err := builder.Build(series, []model.Period{p})
	if err != nil {
		return 0, err
	}
	return cluster.Nearest(c.features, *c.set, row.RawRowView(0)), nil
}
