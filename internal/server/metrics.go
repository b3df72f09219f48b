package server

import (
	"github.com/practice-sem-2/mtp-service/internal/usecases"
	"github.com/prometheus/client_golang/prometheus"
	"strconv"
	"time"
)

// otherType labels requests whose type is not a protocol operation.
const otherType = "other"

type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mtp",
				Subsystem: "engine",
				Name:      "requests_total",
				Help:      "Total protocol requests by type and response code.",
			},
			[]string{"type", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mtp",
				Subsystem: "engine",
				Name:      "request_duration_seconds",
				Help:      "Protocol request handling duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Observe(reqType string, code int, duration time.Duration) {
	if !usecases.IsOperation(reqType) {
		reqType = otherType
	}
	m.requests.WithLabelValues(reqType, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(reqType).Observe(duration.Seconds())
}
