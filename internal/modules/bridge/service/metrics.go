package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dashboard_bridge_request_seconds",
	Help:    "Latency of bridge HTTP fetches.",
	Buckets: prometheus.DefBuckets,
}, []string{"path"})
