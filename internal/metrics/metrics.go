// Package metrics registra las metricas Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder es lo que consumen el middleware HTTP y el motor de feed.
type Recorder interface {
	ObserveRequest(method, route string, status int, d time.Duration)
	ObserveFeedPage(kind string, items int)
	RecordEventFailure(subject string)
}

type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	feedItems     *prometheus.HistogramVec
	eventFailures *prometheus.CounterVec
}

// NewCollector crea el colector y registra sus metricas en reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeshare_http_requests_total",
			Help: "Requests HTTP por metodo, ruta y status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipeshare_http_request_duration_seconds",
			Help:    "Latencia de requests HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		feedItems: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipeshare_feed_page_items",
			Help:    "Recetas devueltas por pagina de feed.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}, []string{"kind"}),
		eventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeshare_event_publish_failures_total",
			Help: "Eventos que no se pudieron publicar.",
		}, []string{"subject"}),
	}
	reg.MustRegister(c.requests, c.latency, c.feedItems, c.eventFailures)
	return c
}

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) ObserveFeedPage(kind string, items int) {
	c.feedItems.WithLabelValues(kind).Observe(float64(items))
}

func (c *Collector) RecordEventFailure(subject string) {
	c.eventFailures.WithLabelValues(subject).Inc()
}

// Handler expone las metricas para el scrape.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type noop struct{}

// Noop descarta todas las observaciones.
func Noop() Recorder { return noop{} }

func (noop) ObserveRequest(string, string, int, time.Duration) {}
func (noop) ObserveFeedPage(string, int)                       {}
func (noop) RecordEventFailure(string)                         {}
