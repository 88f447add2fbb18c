package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgvideo_requests_received_total",
		Help: "Total number of download requests received",
	})

	RequestsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tgvideo_requests_finished_total",
		Help: "Total number of download requests by terminal outcome",
	}, []string{"outcome"})

	FormatRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgvideo_format_retries_total",
		Help: "Total number of relaxed-format retries after a format-unavailable failure",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tgvideo_download_duration_seconds",
		Help:    "Extraction engine run duration in seconds",
		Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})

	DeliveredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgvideo_delivered_bytes_total",
		Help: "Total bytes sent back to chats",
	})

	ProgressRenders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgvideo_progress_renders_total",
		Help: "Total number of status message renders",
	})

	StatusUpdateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgvideo_status_update_failures_total",
		Help: "Total number of failed status message sends, edits or deletes",
	})

	ActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tgvideo_active_requests",
		Help: "Number of download requests currently in flight",
	})
)
