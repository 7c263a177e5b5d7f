// Package metrics exposes the operational surface described in spec.md §6:
// counters for ingest/drop/bundle/rollback events and latency histograms
// for decode/sim/decision/bundle/total, plus a point-in-time snapshot with
// p50/p95/p99 for each stage. Every exported method is safe to call from
// the hot path: prometheus counters and histograms never allocate or block
// on the observe/inc path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Stage names used for the latency histograms and the snapshot map.
const (
	StageDecode   = "decode"
	StageSim      = "sim"
	StageDecision = "decision"
	StageBundle   = "bundle"
	StageTotal    = "total"
)

// Registry bundles every counter and histogram the engine publishes. A
// caller that doesn't want global prometheus state can build its own
// *prometheus.Registry and pass it to New.
type Registry struct {
	reg *prometheus.Registry

	Ingests       prometheus.Counter
	Drops         *prometheus.CounterVec // labeled by reason
	CacheSize     prometheus.Gauge
	ALTHits       prometheus.Counter
	ALTMisses     prometheus.Counter
	SimSuccess    prometheus.Counter
	SimFailure    *prometheus.CounterVec // labeled by reason
	BundlesSent   prometheus.Counter
	BundlesLanded prometheus.Counter
	BundlesFailed *prometheus.CounterVec // labeled by terminal state
	SlotRollbacks prometheus.Counter

	latency *prometheus.HistogramVec // labeled by stage
}

// New constructs a Registry and registers every metric against reg.
func New(reg *prometheus.Registry) *Registry {
	r := &Registry{
		reg: reg,
		Ingests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_ingests_total",
			Help: "Typed updates accepted by the ingest boundary.",
		}),
		Drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_ingest_drops_total",
			Help: "Updates dropped by reason (stale, blocked_by_lifecycle, decode_error).",
		}, []string{"reason"}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arb_cache_size",
			Help: "Number of keyed entries currently resident in the lifecycle cache.",
		}),
		ALTHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_alt_hits_total",
			Help: "Address-lookup-table resolutions served from cache.",
		}),
		ALTMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_alt_misses_total",
			Help: "Address-lookup-table resolutions that missed cache.",
		}),
		SimSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_sim_success_total",
			Help: "Simulation kernel calls that returned a usable quote.",
		}),
		SimFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_sim_failure_total",
			Help: "Simulation kernel calls that failed, by reason.",
		}, []string{"reason"}),
		BundlesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_bundles_sent_total",
			Help: "Bundles handed to the submitter.",
		}),
		BundlesLanded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_bundles_landed_total",
			Help: "Bundles that reached the finalized terminal state.",
		}),
		BundlesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_bundles_failed_total",
			Help: "Bundles that reached a failure terminal state, by state.",
		}, []string{"state"}),
		SlotRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_slot_rollbacks_total",
			Help: "Rollback events observed on the ingest stream.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arb_stage_latency_seconds",
			Help:    "Per-stage latency: decode, sim, decision, bundle, total.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18), // 10us .. ~1.3s
		}, []string{"stage"}),
	}

	reg.MustRegister(
		r.Ingests, r.Drops, r.CacheSize, r.ALTHits, r.ALTMisses,
		r.SimSuccess, r.SimFailure, r.BundlesSent, r.BundlesLanded,
		r.BundlesFailed, r.SlotRollbacks, r.latency,
	)
	return r
}

// ObserveLatency records a stage duration in seconds.
func (r *Registry) ObserveLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

// Snapshot is the point-in-time rendering of the latency histograms
// exposed over the metrics endpoint.
type Snapshot struct {
	P50, P95, P99 float64
}

// LatencySnapshot reads back p50/p95/p99 for a stage from the underlying
// histogram's cumulative buckets. It is meant for an operational HTTP
// handler, not the hot path.
func (r *Registry) LatencySnapshot(stage string) (Snapshot, error) {
	var m dto.Metric
	if err := r.latency.WithLabelValues(stage).(prometheus.Histogram).Write(&m); err != nil {
		return Snapshot{}, err
	}
	return quantilesFromHistogram(m.GetHistogram()), nil
}

// quantilesFromHistogram linearly interpolates p50/p95/p99 from a
// prometheus histogram's cumulative bucket counts. This is an
// approximation bounded by the bucket width, adequate for an operational
// dashboard; it is never consulted by the hot path's own decisions.
func quantilesFromHistogram(h *dto.Histogram) Snapshot {
	total := h.GetSampleCount()
	if total == 0 {
		return Snapshot{}
	}
	buckets := h.GetBucket()
	quantile := func(q float64) float64 {
		target := q * float64(total)
		var prevCount float64
		var prevBound float64
		for _, b := range buckets {
			count := float64(b.GetCumulativeCount())
			if count >= target {
				bound := b.GetUpperBound()
				if count == prevCount {
					return bound
				}
				frac := (target - prevCount) / (count - prevCount)
				return prevBound + frac*(bound-prevBound)
			}
			prevCount = count
			prevBound = b.GetUpperBound()
		}
		return prevBound
	}
	return Snapshot{
		P50: quantile(0.50),
		P95: quantile(0.95),
		P99: quantile(0.99),
	}
}
