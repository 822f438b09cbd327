package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Submission metrics
	PostsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "after2_posts_total",
			Help: "Channel submissions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Download metrics
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "after2_downloads_total",
			Help: "Download requests by outcome",
		},
		[]string{"outcome"},
	)

	DownloadActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "after2_download_active",
			Help: "Downloads currently holding the global permit",
		},
	)

	DownloadWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "after2_download_wait_seconds",
			Help:    "Time spent queued for the global download permit",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 60, 300},
		},
	)

	// Quota metrics
	QuotaDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "after2_quota_denied_total",
			Help: "Actions refused because the daily window was exhausted",
		},
		[]string{"class"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		PostsTotal,
		DownloadsTotal,
		DownloadActive,
		DownloadWaitSeconds,
		QuotaDeniedTotal,
	)
}
