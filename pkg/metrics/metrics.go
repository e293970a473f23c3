// Package metrics exports sensor traffic as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/proto"
)

const namespace = "fpsensor"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics implements comm.Observer.
type Metrics struct {
	Transactions        *prometheus.CounterVec   // labels: command, result
	TransactionDuration *prometheus.HistogramVec // labels: command
	BulkBytes           *prometheus.CounterVec   // labels: direction
	Identifications     *prometheus.CounterVec   // labels: status
	FingerPressed       prometheus.Gauge
}

// New registers and returns the metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Command transactions by result.",
		}, []string{"command", "result"}),
		TransactionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time from sending a command to the end of its response.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"command"}),
		BulkBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_bytes_total",
			Help:      "Bytes of data packets transferred.",
		}, []string{"direction"}),
		Identifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifications_total",
			Help:      "Identifications by status.",
		}, []string{"status"}),
		FingerPressed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "finger_pressed",
			Help:      "1 while a finger is on the sensor.",
		}),
	}
	reg.MustRegister(m.Transactions, m.TransactionDuration, m.BulkBytes, m.Identifications, m.FingerPressed)
	return m
}

// TransactionDone implements comm.Observer.
func (m *Metrics) TransactionDone(cmd proto.Command, result comm.Result, dur time.Duration) {
	m.Transactions.WithLabelValues(cmd.String(), string(result)).Inc()
	m.TransactionDuration.WithLabelValues(cmd.String()).Observe(dur.Seconds())
}

// BulkTransferred implements comm.Observer.
func (m *Metrics) BulkTransferred(dir comm.Direction, n int) {
	m.BulkBytes.WithLabelValues(string(dir)).Add(float64(n))
}
