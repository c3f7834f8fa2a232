package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jaredthomas68/HOPP/pkg/config"
	"github.com/jaredthomas68/HOPP/pkg/outcome"
	"github.com/jaredthomas68/HOPP/pkg/queue/nats"
	"github.com/jaredthomas68/HOPP/pkg/store/duckdb"
	"github.com/jaredthomas68/HOPP/pkg/window"
)

// Options holds assembler worker options
type Options struct {
	ConfigPath   string
	StepsPerHour int
	FullYear     bool
	Consumer     string
	MetricsAddr  string
}

// Assembler stores simulator results and rebuilds annual series once every
// cluster of a run has reported
type Assembler struct {
	runs    *duckdb.RunRepo
	outputs *duckdb.OutputRepo
	log     *zap.SugaredLogger
	opts    Options

	mu    sync.Mutex
	cache map[string]*duckdb.Run
}

func main() {
	opts := parseFlags()

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg := config.Default()
	if opts.ConfigPath != "" {
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	log.Infow("Starting assembler", "nats", cfg.Storage.NATSUrl, "duckdb", cfg.Storage.DuckDBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	duckClient, err := duckdb.Open(cfg.Storage.DuckDBPath)
	if err != nil {
		log.Fatalf("Failed to open DuckDB: %v", err)
	}
	defer duckClient.Close()

	a := &Assembler{
		runs:    duckdb.NewRunRepo(duckClient),
		outputs: duckdb.NewOutputRepo(duckClient),
		log:     log,
		opts:    opts,
		cache:   make(map[string]*duckdb.Run),
	}

	natsCfg := nats.DefaultConfig()
	natsCfg.URL = cfg.Storage.NATSUrl
	if cfg.Storage.StreamName != "" {
		natsCfg.StreamName = cfg.Storage.StreamName
	}
	natsClient, err := nats.NewClient(natsCfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsClient.Close()

	if err := natsClient.CreateStream(ctx); err != nil {
		log.Fatalf("Failed to create stream: %v", err)
	}

	consumer, err := natsClient.SubscribeResults(ctx, opts.Consumer, func(result *nats.SimResultMsg) error {
		return a.Handle(ctx, result)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to results: %v", err)
	}
	defer consumer.Stop()

	if opts.MetricsAddr != "" {
		serveMetrics(opts.MetricsAddr, log)
	}

	log.Info("Assembler started, waiting for results...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down assembler...")
}

func (a *Assembler) run(ctx context.Context, runID string) (*duckdb.Run, error) {
	if run, ok := a.cache[runID]; ok {
		return run, nil
	}
	run, err := a.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	a.cache[runID] = run
	return run, nil
}

// Handle stores one cluster result and assembles the run when complete
func (a *Assembler) Handle(ctx context.Context, result *nats.SimResultMsg) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	run, err := a.run(ctx, result.RunID)
	if err != nil {
		return err
	}
	if result.ClusterID < 0 || result.ClusterID >= run.Clusters.Len() {
		return fmt.Errorf("cluster %d outside %d clusters of run %s", result.ClusterID, run.Clusters.Len(), run.RunID)
	}
	if err := result.Validate(run.Config.NDays, a.opts.StepsPerHour); err != nil {
		return err
	}
	if err := a.outputs.SaveClusterResult(ctx, run.RunID, result.ClusterID, result.Name, result.Values); err != nil {
		return err
	}
	resultsStored.WithLabelValues(result.Name).Inc()

	results, err := a.outputs.ClusterResults(ctx, run.RunID, result.Name)
	if err != nil {
		return err
	}
	a.log.Debugw("Stored cluster result", "run_id", run.RunID, "name", result.Name,
		"cluster", result.ClusterID, "received", len(results), "clusters", run.Clusters.Len())
	if len(results) < run.Clusters.Len() {
		return nil
	}
	return a.assemble(ctx, run, result.Name, results)
}

func (a *Assembler) assemble(ctx context.Context, run *duckdb.Run, name string, results map[int][]float64) error {
	exemplarData, err := duckdb.ConcatResults(results, run.Clusters.Len())
	if err != nil {
		return err
	}

	engine := outcome.NewEngine(run.Clusters, run.Periods, window.NewResolver(run.Config.Window()))
	var series []float64
	if a.opts.FullYear {
		series, err = engine.FullYearArray(exemplarData)
	} else {
		series, err = engine.AnnualArray(exemplarData)
	}
	if err != nil {
		return err
	}
	total, err := engine.WeightedTotal(exemplarData)
	if err != nil {
		return err
	}

	if err := a.outputs.SaveAnnual(ctx, run.RunID, name, series); err != nil {
		return err
	}
	seriesAssembled.WithLabelValues(name).Inc()
	weightedTotal.WithLabelValues(run.RunID, name).Set(total)
	a.log.Infow("Annual series assembled", "run_id", run.RunID, "name", name,
		"steps", len(series), "weighted_total", total)
	return nil
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML run file for storage endpoints")
	flag.IntVar(&opts.StepsPerHour, "steps-per-hour", 1, "Time steps per hour of simulator results")
	flag.BoolVar(&opts.FullYear, "full-year", true, "Fill the days outside the clustered periods")
	flag.StringVar(&opts.Consumer, "consumer", "result-assembler", "Durable consumer name")
	flag.StringVar(&opts.MetricsAddr, "metrics-addr", ":9464", "Prometheus listen address, empty to disable")

	flag.Parse()

	if opts.StepsPerHour < 1 {
		fmt.Println("Usage: assemble [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	return opts
}
