package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PlotDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mexer_plot_duration_seconds",
			Help:    "Plot assembly duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"plot_type"},
	)

	PlotTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mexer_plot_total",
			Help: "Total number of plot requests",
		},
		[]string{"plot_type", "status"},
	)

	AccessDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mexer_access_denied_total",
			Help: "Plot requests rejected by the IEA access gate",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mexer_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mexer_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	TriplesFetched = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mexer_triples_fetched",
			Help:    "Matrix cells returned per fetch",
			Buckets: []float64{0, 10, 100, 1000, 10000, 100000},
		},
		[]string{"table"},
	)

	SankeyLinks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mexer_sankey_links",
			Help:    "Links per assembled sankey diagram",
			Buckets: []float64{0, 10, 50, 100, 500, 1000},
		},
	)

	TranslatorReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mexer_translator_reloads_total",
			Help: "Dimension table loads from the backing store",
		},
		[]string{"store", "dimension"},
	)
)

func Init() {
	prometheus.MustRegister(PlotDuration)
	prometheus.MustRegister(PlotTotal)
	prometheus.MustRegister(AccessDenied)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(TriplesFetched)
	prometheus.MustRegister(SankeyLinks)
	prometheus.MustRegister(TranslatorReloads)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
