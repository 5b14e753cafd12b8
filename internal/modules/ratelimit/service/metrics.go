package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var denied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dashboard_rate_limit_denied_total",
	Help: "Requests rejected by the sliding window limiter.",
}, []string{"route"})
