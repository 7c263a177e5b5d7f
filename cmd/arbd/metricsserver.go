package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/solana-zh/arb-engine/internal/metrics"
	"github.com/solana-zh/arb-engine/internal/submit"
)

// operationalSnapshot is the JSON shape served at /status: per-stage
// latency percentiles plus the submitter's running counters (spec.md
// §6's "operational metrics endpoint").
type operationalSnapshot struct {
	Latency     map[string]metrics.Snapshot `json:"latency"`
	Sent        int64                       `json:"sent"`
	Accepted    int64                       `json:"accepted"`
	Processed   int64                       `json:"processed"`
	Finalized   int64                       `json:"finalized"`
	Rejected    int64                       `json:"rejected"`
	Dropped     int64                       `json:"dropped"`
	Landed      int64                       `json:"landed"`
	LandingRate float64                     `json:"landing_rate"`
}

var latencyStages = []string{
	metrics.StageDecode,
	metrics.StageSim,
	metrics.StageDecision,
	metrics.StageBundle,
	metrics.StageTotal,
}

// newMetricsServer builds an HTTP server exposing Prometheus's own
// /metrics scrape endpoint alongside a human/dashboard-friendly
// /status snapshot built from the same Registry.
func newMetricsServer(addr string, reg *prometheus.Registry, m *metrics.Registry, counters *submit.Counters) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		snap := operationalSnapshot{Latency: make(map[string]metrics.Snapshot, len(latencyStages))}
		for _, stage := range latencyStages {
			s, err := m.LatencySnapshot(stage)
			if err != nil {
				continue
			}
			snap.Latency[stage] = s
		}
		snap.Sent = counters.Sent.Load()
		snap.Accepted = counters.Accepted.Load()
		snap.Processed = counters.Processed.Load()
		snap.Finalized = counters.Finalized.Load()
		snap.Rejected = counters.Rejected.Load()
		snap.Dropped = counters.Dropped.Load()
		snap.Landed = counters.Landed.Load()
		snap.LandingRate = counters.LandingRate()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

// runMetricsServer serves srv until ctx is cancelled, then shuts it
// down with a bounded grace period.
func runMetricsServer(ctx context.Context, srv *http.Server, log *zap.Logger) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server exited", zap.Error(err))
	}
}
