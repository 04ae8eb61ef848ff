package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// CacheLookups counts cache reads by cache name and result (hit|miss).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "folio",
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by cache and result.",
	}, []string{"cache", "result"})

	// UpstreamRequests counts Notion API calls by operation and outcome.
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "folio",
		Name:      "notion_requests_total",
		Help:      "Notion API requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "folio",
		Name:      "notion_request_duration_seconds",
		Help:      "Notion API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// ImageResponses counts proxy responses by source (mirror|upstream|none) and status.
	ImageResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "folio",
		Name:      "image_proxy_responses_total",
		Help:      "Image proxy responses by source and status code.",
	}, []string{"source", "status"})

	PostsListed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "folio",
		Name:      "posts_listed",
		Help:      "Number of posts in the last computed list.",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CacheLookups,
		UpstreamRequests,
		UpstreamDuration,
		ImageResponses,
		PostsListed,
	)
}

// Registry exposes the collectors, mostly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// Hit and Miss record a cache lookup.
func Hit(cache string)  { CacheLookups.WithLabelValues(cache, "hit").Inc() }
func Miss(cache string) { CacheLookups.WithLabelValues(cache, "miss").Inc() }
