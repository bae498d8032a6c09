package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "evolve"

// Recorder owns the evolution metrics collectors.
type Recorder struct {
	appends            *prometheus.CounterVec
	appendSeconds      *prometheus.HistogramVec
	verifications      *prometheus.CounterVec
	verifySeconds      prometheus.Histogram
	reconstructions    *prometheus.CounterVec
	reconstructReplays prometheus.Histogram
	resolutions        *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		appends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lineage",
			Name:      "appends_total",
			Help:      "Lineage append attempts by event kind and status",
		}, []string{"kind", "status"}),
		appendSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lineage",
			Name:      "append_duration_seconds",
			Help:      "Lineage append latency including parent verification",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"kind"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lineage",
			Name:      "verifications_total",
			Help:      "Lineage verifications by result",
		}, []string{"valid"}),
		verifySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lineage",
			Name:      "verify_duration_seconds",
			Help:      "Lineage verification latency over the ancestry closure",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		reconstructions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lineage",
			Name:      "reconstructions_total",
			Help:      "Genome reconstructions by status",
		}, []string{"status"}),
		reconstructReplays: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lineage",
			Name:      "reconstruct_replayed_events",
			Help:      "Diffs applied per reconstruction",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbiter",
			Name:      "resolutions_total",
			Help:      "Arbiter resolutions by rule kind and outcome",
		}, []string{"kind", "success"}),
	}
}

// AppendObserved records one append attempt.
func (r *Recorder) AppendObserved(kind string, elapsed time.Duration, err error) {
	r.appends.WithLabelValues(kind, status(err)).Inc()
	r.appendSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// VerifyObserved records one verification.
func (r *Recorder) VerifyObserved(valid bool, elapsed time.Duration) {
	r.verifications.WithLabelValues(strconv.FormatBool(valid)).Inc()
	r.verifySeconds.Observe(elapsed.Seconds())
}

// ReconstructObserved records one reconstruction and how many diffs it replayed.
func (r *Recorder) ReconstructObserved(replayed int, err error) {
	r.reconstructions.WithLabelValues(status(err)).Inc()
	if err == nil {
		r.reconstructReplays.Observe(float64(replayed))
	}
}

// ResolveObserved records one arbiter resolution.
func (r *Recorder) ResolveObserved(kind string, success bool) {
	r.resolutions.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
