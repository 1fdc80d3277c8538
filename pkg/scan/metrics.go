package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ibanscan_frames_total",
		Help: "Frames logged into scan session trackers.",
	})
	candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ibanscan_candidates_total",
		Help: "IBAN candidates extracted from recognized lines.",
	})
	stableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ibanscan_stable_total",
		Help: "Stable IBAN results emitted by scan sessions.",
	})
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ibanscan_sessions_active",
		Help: "Scan sessions currently held by the registry.",
	})
)
