package pwa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vereinskasse_sw_cache_hits_total",
		Help: "Requests served from a cache bucket, by strategy.",
	}, []string{"strategy"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vereinskasse_sw_cache_misses_total",
		Help: "Cache lookups that found nothing, by strategy.",
	}, []string{"strategy"})

	fetchFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vereinskasse_sw_fetch_fallbacks_total",
		Help: "Network fetches that failed and fell back to the cache, by strategy.",
	}, []string{"strategy"})
)
