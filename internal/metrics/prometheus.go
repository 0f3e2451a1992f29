package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_enrichment_total",
			Help: "Total enrichment requests by outcome",
		},
		[]string{"status"},
	)

	EnrichmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vcscout_enrichment_duration_seconds",
			Help:    "Enrichment duration in seconds, fetch and LLM call included",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45},
		},
	)

	EnrichmentInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vcscout_enrichment_in_flight",
			Help: "Enrichment requests currently running",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	ScrapeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_scrape_total",
			Help: "Website fetches by outcome",
		},
		[]string{"status"},
	)

	DirectoryQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vcscout_directory_query_duration_seconds",
			Help:    "Directory view computation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"mode"},
	)

	DirectoryResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vcscout_directory_results_count",
			Help:    "Number of companies matching a directory query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
		},
	)

	ListMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_list_mutations_total",
			Help: "List mutations by operation",
		},
		[]string{"operation"},
	)

	ListExports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_list_exports_total",
			Help: "List exports by format",
		},
		[]string{"format"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcscout_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	UsersRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcscout_users_registered_total",
			Help: "Total users registered",
		},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			EnrichmentTotal,
			EnrichmentDuration,
			EnrichmentInFlight,
			LLMTokensUsed,
			ScrapeTotal,
			DirectoryQueryDuration,
			DirectoryResultsCount,
			ListMutations,
			ListExports,
			CacheHits,
			CacheMisses,
			UsersRegistered,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
