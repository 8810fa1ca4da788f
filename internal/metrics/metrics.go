// Package metrics exposes an optional Prometheus registry for a benchmark
// run: a request counter by op, an in-flight gauge, and a latency
// histogram mirroring internal/histogram in native Prometheus buckets.
// When no listen address is configured no Recorder is built at all: the
// engine holds a nil *Recorder and checks for nil before each recording
// call, since the methods below must not be called on a nil Recorder.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of counters/gauges the engine updates as requests
// are issued and completed.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	inFlight      prometheus.Gauge
	latency       prometheus.Histogram
	errorsTotal   prometheus.Counter
}

// New builds a Recorder with its own registry, so a benchmark process
// never collides with any default/global Prometheus registry in the same
// binary.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kvload_requests_total",
			Help: "Completed requests by operation.",
		}, []string{"op"}),
		inFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "kvload_clients_in_flight",
			Help: "Number of live client connections.",
		}),
		latency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "kvload_request_latency_ms",
			Help:    "Per-request latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1ms .. ~8s
		}),
		errorsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvload_errors_total",
			Help: "Non-fatal client I/O errors encountered mid-benchmark.",
		}),
	}
	return r
}

// ObserveCompletion records one completed request's op and latency.
func (r *Recorder) ObserveCompletion(op string, latency time.Duration) {
	r.requestsTotal.WithLabelValues(op).Inc()
	r.latency.Observe(float64(latency.Milliseconds()))
}

// ObserveError records one non-fatal per-client I/O error.
func (r *Recorder) ObserveError() {
	r.errorsTotal.Inc()
}

// SetInFlight reports the current size of the live client pool.
func (r *Recorder) SetInFlight(n int) {
	r.inFlight.Set(float64(n))
}

// Serve starts an HTTP listener exposing /metrics on addr, blocking until
// ctx is canceled. Callers that never set metrics-addr never call this.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
