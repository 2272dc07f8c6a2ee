package service

import (
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	cacheLatency     prometheus.Histogram
	cacheWrite       prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
	dbQueryDuration  *prometheus.HistogramVec
	certificates     *prometheus.CounterVec
	completions      *prometheus.CounterVec
	mediaProbes      *prometheus.CounterVec
	draftSaves       *prometheus.CounterVec
	wsClients        prometheus.Gauge
}

// NewMetricsService registers the gateway collectors plus host gauges sampled on scrape.
// diskPath is the volume whose usage is reported, normally the staging directory.
func NewMetricsService(diskPath string) *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "academy_upstream_request_duration_seconds",
			Help:    "Duration of Academy backend calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		certificates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_certificate_issuance_total",
			Help: "Certificate issuance attempts by trigger and result",
		}, []string{"trigger", "result"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_lesson_completions_total",
			Help: "Lesson completion requests by result",
		}, []string{"result"}),
		mediaProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_media_probes_total",
			Help: "Staged video duration probes by result",
		}, []string{"result"}),
		draftSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "academy_draft_saves_total",
			Help: "Course draft saves by result",
		}, []string{"result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "academy_event_stream_clients",
			Help: "Connected event stream clients",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.upstreamDuration,
		m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.dbQueryDuration, m.certificates, m.completions, m.mediaProbes, m.draftSaves, m.wsClients,
		goroutines,
	)
	registry.MustRegister(hostCollectors(diskPath)...)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

func hostCollectors(diskPath string) []prometheus.Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))

	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "host_memory_used_ratio",
			Help: "Fraction of host memory in use",
		}, func() float64 {
			stat, err := mem.VirtualMemory()
			if err != nil || stat.Total == 0 {
				return 0
			}
			return float64(stat.Total-stat.Available) / float64(stat.Total)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "host_cpu_load_ratio",
			Help: "Host CPU load since the previous scrape",
		}, func() float64 {
			values, err := cpu.Percent(0, false)
			if err != nil || len(values) == 0 {
				return 0
			}
			return values[0] / 100.0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "host_disk_used_ratio",
			Help: "Fraction of the staging volume in use",
		}, func() float64 {
			stat, err := disk.Usage(diskPath)
			if err != nil || stat.Total == 0 {
				return 0
			}
			return float64(stat.Used) / float64(stat.Total)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "academy_process_resident_memory_bytes",
			Help: "Resident memory of the gateway process",
		}, func() float64 {
			if proc == nil {
				return 0
			}
			info, err := proc.MemoryInfo()
			if err != nil || info == nil {
				return 0
			}
			return float64(info.RSS)
		}),
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstream records an Academy backend call. Matches academy.Observer.
func (m *MetricsService) ObserveUpstream(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamDuration.WithLabelValues(operation, label).Observe(duration.Seconds())
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordCertificate counts an issuance attempt. trigger is "completion" or "sweep".
func (m *MetricsService) RecordCertificate(trigger string, err error) {
	if m == nil {
		return
	}
	m.certificates.WithLabelValues(trigger, resultLabel(err)).Inc()
}

// RecordCompletion counts a lesson completion request.
func (m *MetricsService) RecordCompletion(err error) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(resultLabel(err)).Inc()
}

// RecordMediaProbe counts a video probe outcome: "ok", "unsupported" or "error".
func (m *MetricsService) RecordMediaProbe(result string) {
	if m == nil {
		return
	}
	m.mediaProbes.WithLabelValues(result).Inc()
}

// RecordDraftSave counts a draft save attempt.
func (m *MetricsService) RecordDraftSave(result string) {
	if m == nil {
		return
	}
	m.draftSaves.WithLabelValues(result).Inc()
}

// EventClientConnected adjusts the live event stream gauge by delta.
func (m *MetricsService) EventClientConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
