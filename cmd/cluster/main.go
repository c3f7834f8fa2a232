package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jaredthomas68/HOPP/pkg/clustering"
	"github.com/jaredthomas68/HOPP/pkg/config"
	"github.com/jaredthomas68/HOPP/pkg/data"
	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/queue/nats"
	"github.com/jaredthomas68/HOPP/pkg/store/duckdb"
	"github.com/jaredthomas68/HOPP/pkg/store/milvus"
)

// Options holds command line options
type Options struct {
	ConfigPath    string
	Site          string
	HistoryPath   string
	SolarMultiple float64
	BatchSize     int
	NoIndex       bool
	NoPublish     bool
	Verbose       bool
}

func main() {
	opts := parseFlags()

	logger := newLogger(opts.Verbose)
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if opts.Site == "" {
		opts.Site = strings.TrimSuffix(filepath.Base(cfg.Resources.SolarFile), filepath.Ext(cfg.Resources.SolarFile))
	}
	log.Infow("Starting clustering", "name", cfg.Name, "site", opts.Site)

	ctx := context.Background()

	// Load resource data
	series, err := data.Load(ctx, cfg.Files())
	if err != nil {
		log.Fatalf("Failed to load resource data: %v", err)
	}
	log.Infow("Loaded resource data", "steps_per_hour", series.StepsPerHour, "streams", len(series.Data))

	history, err := loadHistory(opts.HistoryPath)
	if err != nil {
		log.Fatalf("Failed to load state history: %v", err)
	}

	// Cluster
	c, err := clustering.New(cfg.ToClustering(), series, clustering.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to set up clustering: %v", err)
	}
	if err := c.RunClustering(); err != nil {
		log.Fatalf("Clustering failed: %v", err)
	}
	run, err := duckdb.NewRun(cfg.Name, opts.Site, c)
	if err != nil {
		log.Fatalf("Failed to collect run: %v", err)
	}
	log.Infow("Clustering done", "run_id", run.RunID, "clusters", run.Clusters.Len(), "periods", run.Clusters.Periods())

	// Store in DuckDB
	duckClient, err := duckdb.Open(cfg.Storage.DuckDBPath)
	if err != nil {
		log.Fatalf("Failed to open DuckDB: %v", err)
	}
	defer duckClient.Close()

	if err := duckdb.NewResourceRepo(duckClient).Save(ctx, opts.Site, series); err != nil {
		log.Fatalf("Failed to store resource data: %v", err)
	}
	if err := duckdb.NewRunRepo(duckClient).Save(ctx, run); err != nil {
		log.Fatalf("Failed to store run: %v", err)
	}
	log.Infow("Run stored", "duckdb", duckClient.Path())

	if !opts.NoIndex && cfg.Storage.MilvusAddr != "" {
		if err := indexPeriods(ctx, cfg.Storage.MilvusAddr, run.RunID, c, opts.BatchSize); err != nil {
			log.Fatalf("Failed to index periods: %v", err)
		}
		log.Infow("Periods indexed", "collection", milvus.DefaultCollectionName)
	}

	msgs, err := windowMessages(run, c, history, opts.SolarMultiple)
	if err != nil {
		log.Fatalf("Failed to build simulation jobs: %v", err)
	}
	for _, m := range msgs {
		log.Debugw("Simulation window", "cluster", m.Window.ClusterID, "start", m.Window.StartHour,
			"end", m.Window.EndHour, "wrapped", m.Window.Wrapped, "weight", m.Weight)
	}

	if !opts.NoPublish && cfg.Storage.NATSUrl != "" {
		if err := publish(ctx, cfg.Storage, msgs, logger); err != nil {
			log.Fatalf("Failed to publish simulation jobs: %v", err)
		}
		log.Infow("Simulation jobs published", "subject", nats.SubjectSimWindows, "jobs", len(msgs))
	}

	fmt.Println(run.RunID)
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML run file")
	flag.StringVar(&opts.Site, "site", "", "Site name (default: solar file name)")
	flag.StringVar(&opts.HistoryPath, "history", "", "JSON file with known storage states")
	flag.Float64Var(&opts.SolarMultiple, "solar-multiple", 2, "CSP solar multiple")
	flag.IntVar(&opts.BatchSize, "batch", 1000, "Batch size for vector inserts")
	flag.BoolVar(&opts.NoIndex, "no-index", false, "Skip indexing periods in Milvus")
	flag.BoolVar(&opts.NoPublish, "no-publish", false, "Skip publishing simulation jobs")
	flag.BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging")

	flag.Parse()

	if opts.ConfigPath == "" {
		fmt.Println("Usage: cluster -c <run.yaml> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	return opts
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// loadHistory reads known storage states, nil when no file is given
func loadHistory(path string) (*model.StateHistory, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hist model.StateHistory
	if err := json.Unmarshal(raw, &hist); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &hist, nil
}

// windowMessages builds one simulation job per cluster with heuristic
// initial storage states
func windowMessages(run *duckdb.Run, c *clustering.Clusterer, hist *model.StateHistory, solarMultiple float64) ([]nats.SimWindowMsg, error) {
	weights := run.Clusters.Weights()
	lookback, _ := run.Config.LookDays()
	msgs := make([]nats.SimWindowMsg, len(run.Windows))
	for i, w := range run.Windows {
		soc, err := c.BatterySOCHeuristic(w.ClusterID, hist)
		if err != nil {
			return nil, err
		}
		csp, err := c.CSPInitialStateHeuristic(w.ClusterID, solarMultiple, hist)
		if err != nil {
			return nil, err
		}
		msgs[i] = nats.SimWindowMsg{
			RunID:        run.RunID,
			Window:       w,
			NDays:        run.Config.NDays,
			LookbackDays: lookback,
			Weight:       weights[w.ClusterID],
			BatterySOC:   soc,
			CSP:          csp,
		}
	}
	return msgs, nil
}

func indexPeriods(ctx context.Context, addr, runID string, c *clustering.Clusterer, batchSize int) error {
	milvusClient, err := milvus.NewClient(ctx, milvusConfig(addr))
	if err != nil {
		return err
	}
	defer milvusClient.Close()

	features, err := c.Features()
	if err != nil {
		return err
	}
	_, dim := features.Dims()
	if err := milvusClient.CreateCollection(ctx, milvus.DefaultCollectionConfig(dim)); err != nil {
		return err
	}

	set, err := c.Clusters()
	if err != nil {
		return err
	}
	if err := milvusClient.DeleteRun(ctx, milvus.DefaultCollectionName, runID); err != nil {
		return err
	}
	records, err := milvus.Records(runID, set, c.Periods(), features)
	if err != nil {
		return err
	}
	if batchSize < 1 {
		batchSize = len(records)
	}
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := milvusClient.InsertBatch(ctx, milvus.DefaultCollectionName, records[i:end]); err != nil {
			return err
		}
	}
	return milvusClient.Flush(ctx, milvus.DefaultCollectionName)
}

func milvusConfig(addr string) milvus.Config {
	cfg := milvus.DefaultConfig()
	cfg.Address = addr
	return cfg
}

func publish(ctx context.Context, storage config.Storage, msgs []nats.SimWindowMsg, logger *zap.Logger) error {
	natsCfg := nats.DefaultConfig()
	natsCfg.URL = storage.NATSUrl
	if storage.StreamName != "" {
		natsCfg.StreamName = storage.StreamName
	}
	natsClient, err := nats.NewClient(natsCfg, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close()

	if err := natsClient.CreateStream(ctx); err != nil {
		return err
	}
	return natsClient.PublishWindows(ctx, msgs)
}
