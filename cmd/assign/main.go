package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jaredthomas68/HOPP/pkg/cluster"
	"github.com/jaredthomas68/HOPP/pkg/config"
	"github.com/jaredthomas68/HOPP/pkg/feature"
	"github.com/jaredthomas68/HOPP/pkg/model"
	"github.com/jaredthomas68/HOPP/pkg/rerank"
	"github.com/jaredthomas68/HOPP/pkg/store/duckdb"
	"github.com/jaredthomas68/HOPP/pkg/store/milvus"
)

// Options holds command line options
type Options struct {
	ConfigPath string
	RunID      string
	Day        int
	TopK       int
	MinScore   float64
	Segments   bool
}

// candidatesPerHit is the number of search candidates fetched per reranked hit
const candidatesPerHit = 3

func main() {
	opts := parseFlags()

	logger, err := zap.NewDevelopment()
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

	ctx := context.Background()

	duckClient, err := duckdb.Open(cfg.Storage.DuckDBPath)
	if err != nil {
		log.Fatalf("Failed to open DuckDB: %v", err)
	}
	defer duckClient.Close()

	run, err := duckdb.NewRunRepo(duckClient).GetByID(ctx, opts.RunID)
	if err != nil {
		log.Fatalf("Failed to load run: %v", err)
	}
	series, err := duckdb.NewResourceRepo(duckClient).Load(ctx, run.Site)
	if err != nil {
		log.Fatalf("Failed to load resource data for %s: %v", run.Site, err)
	}

	ndays := run.Config.NDays
	if opts.Day < 0 || opts.Day+ndays > model.DaysPerYear {
		log.Fatalf("Day %d does not leave %d days before year end", opts.Day, ndays)
	}
	query := model.Period{
		Index:     -1,
		StartDay:  opts.Day,
		StartHour: opts.Day * model.HoursPerDay,
		EndHour:   (opts.Day + ndays) * model.HoursPerDay,
	}

	builder, err := feature.NewBuilder(run.Descriptors)
	if err != nil {
		log.Fatalf("Failed to set up features: %v", err)
	}
	features, err := builder.Build(series, append(append([]model.Period{}, run.Periods...), query))
	if err != nil {
		log.Fatalf("Failed to build features: %v", err)
	}
	rows, _ := features.Dims()
	vec := features.RawRowView(rows - 1)
	exact := cluster.Nearest(features, run.Clusters, vec)

	fmt.Printf("Run %s (%s), days %d-%d\n", run.RunID, run.Site, opts.Day, opts.Day+ndays-1)
	fmt.Printf("Nearest exemplar: cluster %d (period %d, day %d)\n",
		exact, run.Clusters.Exemplars[exact], run.Periods[run.Clusters.Exemplars[exact]].StartDay)

	if cfg.Storage.MilvusAddr == "" {
		return
	}

	milvusCfg := milvus.DefaultConfig()
	milvusCfg.Address = cfg.Storage.MilvusAddr
	milvusClient, err := milvus.NewClient(ctx, milvusCfg)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()

	if err := milvusClient.LoadCollection(ctx, milvus.DefaultCollectionName); err != nil {
		log.Fatalf("Failed to load collection: %v", err)
	}

	queryVec, err := builder.BuildVector(series, query)
	if err != nil {
		log.Fatalf("Failed to build query vector: %v", err)
	}
	results, err := milvusClient.Search(ctx, milvus.DefaultCollectionName, queryVec, milvus.RunFilter(run.RunID), opts.TopK*candidatesPerHit)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	ranked := rankSimilar(results, opts)

	fmt.Println("\n=== Similar periods ===")
	fmt.Printf("%-5s %-8s %-6s %-8s %-10s %-8s %-8s\n", "Rank", "Period", "Day", "Cluster", "Distance", "Season", "Score")
	fmt.Println("--------------------------------------------------------------")
	for i, r := range ranked {
		fmt.Printf("%-5d %-8d %-6d %-8d %-10.4f %-8.3f %-.4f\n",
			i+1, r.Period, r.StartDay, r.ClusterID, r.Distance, r.SeasonalWeight, r.FinalScore)
	}
	if vote := rerank.Vote(ranked); vote >= 0 {
		fmt.Printf("\nSeasonal vote: cluster %d\n", vote)
	}
}

// rankSimilar reranks search hits by season and keeps the best TopK scoring
// at least MinScore
func rankSimilar(results []milvus.SearchResult, opts Options) []rerank.RankedResult {
	rcfg := rerank.DefaultSeasonalDecayConfig()
	if opts.Segments {
		rcfg = rerank.SegmentConfig()
	}
	top := rerank.NewReranker(rcfg).TopN(results, opts.Day, opts.TopK)
	return rerank.FilterByMinScore(top, opts.MinScore)
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML run file for storage endpoints")
	flag.StringVar(&opts.RunID, "run", "", "Run id printed by the cluster command")
	flag.IntVar(&opts.Day, "day", 0, "First day of year of the query period (Jan 1 = 0)")
	flag.IntVar(&opts.TopK, "topk", 10, "Top K similar periods")
	flag.Float64Var(&opts.MinScore, "min-score", 0, "Drop similar periods scoring below this")
	flag.BoolVar(&opts.Segments, "segments", false, "Use segment weights instead of exponential decay")

	flag.Parse()

	if opts.RunID == "" {
		fmt.Println("Usage: assign --run <id> --day <day> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	return opts
}
