package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_reads_total",
		Help: "Cache lookups by tier: fresh hit, stale hit, miss.",
	}, []string{"tier"})

	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_evictions_total",
		Help: "Entries removed by age or by the size cap.",
	}, []string{"reason"})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_cache_entries",
		Help: "Entries currently held.",
	})
)
