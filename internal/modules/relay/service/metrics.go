package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_relay_active",
		Help: "Open client websocket relays.",
	})

	relayFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_relay_frames_total",
		Help: "Bridge frames by delivery outcome to the client.",
	}, []string{"outcome"})

	relayPings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_relay_bridge_pings_total",
		Help: "Pings sent to the bridge stream.",
	}, []string{"reason"})
)
