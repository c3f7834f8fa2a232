package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	resultsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopp_assembler_results_stored_total",
			Help: "Exemplar simulation results stored, by output name",
		},
		[]string{"name"},
	)
	seriesAssembled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopp_assembler_series_assembled_total",
			Help: "Annual series rebuilt from complete runs, by output name",
		},
		[]string{"name"},
	)
	weightedTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hopp_assembler_weighted_total",
			Help: "Count weighted annual total of the last assembled series",
		},
		[]string{"run_id", "name"},
	)
)

func init() {
	prometheus.MustRegister(resultsStored)
	prometheus.MustRegister(seriesAssembled)
	prometheus.MustRegister(weightedTotal)
}

// serveMetrics exposes /metrics on addr in the background
func serveMetrics(addr string, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorw("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
}
