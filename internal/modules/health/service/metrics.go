package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bridgeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dashboard_bridge_outcomes_total",
	Help: "Bridge call outcomes recorded by the health classifier.",
}, []string{"result"})
