package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weights",
		Subsystem: "fetch",
		Name:      "downloads_total",
		Help:      "Completed download attempts by result.",
	}, []string{"result"})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weights",
		Subsystem: "fetch",
		Name:      "fallbacks_total",
		Help:      "Transfers that fell back to the resumable transport.",
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weights",
		Subsystem: "fetch",
		Name:      "download_bytes_total",
		Help:      "Bytes of successfully downloaded artifacts.",
	})
)
