package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordconv_rows_total",
		Help: "Rows processed by the batch pipeline, by result (ok/failed)",
	}, []string{"result"})
	FilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordconv_files_total",
		Help: "Files processed by the batch pipeline, by result (ok/failed)",
	}, []string{"result"})
	FileDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coordconv_file_duration_ms",
		Help:    "Per-file conversion duration in milliseconds",
		Buckets: []float64{5, 20, 50, 100, 200, 500, 1000, 5000, 20000, 60000},
	})
	JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordconv_jobs_total",
		Help: "Batch jobs by terminal status",
	}, []string{"status"})
	JobsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordconv_jobs_running",
		Help: "Batch jobs currently running",
	})
	PointRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coordconv_point_requests_total",
		Help: "Total points converted through /convert",
	})
	PointCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordconv_point_cache_hits_total",
		Help: "Point conversion cache hits by layer (lru/redis)",
	}, []string{"layer"})
	WatchEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coordconv_watch_submits_total",
		Help: "Files submitted by the directory watcher",
	})
)

func init() {
	prometheus.MustRegister(RowsTotal)
	prometheus.MustRegister(FilesTotal)
	prometheus.MustRegister(FileDurationMs)
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(JobsRunning)
	prometheus.MustRegister(PointRequestsTotal)
	prometheus.MustRegister(PointCacheHitsTotal)
	prometheus.MustRegister(WatchEventsTotal)
}

// Handler：暴露已注册指标，服务端挂载到 API_BASE/metrics
func Handler() http.Handler { return promhttp.Handler() }
