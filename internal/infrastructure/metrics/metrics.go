// Package metrics provides Prometheus metrics for the chat API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Realtime hub metrics
	RoomsActive       prometheus.Gauge
	DeliveriesTotal   prometheus.Counter
	DroppedTotal      prometheus.Counter
	RelayedInTotal    prometheus.Counter
	SubscribersActive prometheus.Gauge

	// Background tasks
	TasksEnqueuedTotal *prometheus.CounterVec
}

// New creates all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{Registry: reg}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duochat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duochat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	m.RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duochat_hub_rooms_active",
		Help: "Number of conversation rooms with at least one subscriber",
	})
	m.SubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duochat_hub_subscribers_active",
		Help: "Number of subscribers in at least one room",
	})
	m.DeliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duochat_hub_deliveries_total",
		Help: "Envelopes accepted by subscribers",
	})
	m.DroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duochat_hub_dropped_total",
		Help: "Envelopes a subscriber refused or could not buffer",
	})
	m.RelayedInTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duochat_hub_relayed_in_total",
		Help: "Envelopes received from other nodes",
	})
	m.TasksEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duochat_tasks_enqueued_total",
			Help: "Background tasks enqueued",
		},
		[]string{"type", "status"},
	)

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RoomsActive,
		m.SubscribersActive,
		m.DeliveriesTotal,
		m.DroppedTotal,
		m.RelayedInTotal,
		m.TasksEnqueuedTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// GinMiddleware records request count and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// RecordTask counts an enqueue attempt.
func (m *Metrics) RecordTask(taskType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TasksEnqueuedTotal.WithLabelValues(taskType, status).Inc()
}
