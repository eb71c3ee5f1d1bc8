// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkup"

var (
	// UpstreamErrors counts failed calls to external APIs, by upstream.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Failed calls to external APIs.",
	}, []string{"upstream"})

	// RatingSubmissions counts rating submissions by outcome.
	RatingSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rating_submissions_total",
		Help:      "Rating submissions by outcome.",
	}, []string{"result"})

	// Uploads counts image uploads by outcome.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_uploads_total",
		Help:      "Image uploads by outcome.",
	}, []string{"result"})

	gauges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gauge",
		Help:      "Named process gauges (cpu, memory, cache size).",
	}, []string{"name"})

	mu     sync.RWMutex
	latest = map[string]int64{}
)

// SetGauge records a named gauge value.
func SetGauge(name string, value int64) {
	gauges.WithLabelValues(name).Set(float64(value))
	mu.Lock()
	latest[name] = value
	mu.Unlock()
}

// Gauges returns a copy of every recorded gauge.
func Gauges() map[string]int64 {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]int64, len(latest))
	for k, v := range latest {
		out[k] = v
	}
	return out
}
