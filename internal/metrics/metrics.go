// Package metrics exposes pipeline counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guestlens"

// Pipeline holds the Prometheus metrics of the capture and upload pipeline.
type Pipeline struct {
	Transcodes        *prometheus.CounterVec
	TranscodeDuration *prometheus.HistogramVec
	Uploads           *prometheus.CounterVec
	BatchItems        *prometheus.CounterVec
	BoothEvents       *prometheus.CounterVec
}

// NewPipeline creates the metrics and registers them with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)
	return &Pipeline{
		Transcodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transcodes_total",
				Help:      "Images processed by the transcoder",
			},
			[]string{"status"}, // "success" or "error"
		),
		TranscodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transcode_duration_seconds",
				Help:      "Time to decode, resize and encode both variants",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"status"},
		),
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Upload jobs by terminal status",
			},
			[]string{"status"}, // "committed" or "failed"
		),
		BatchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_items_total",
				Help:      "Items processed by batch operations",
			},
			[]string{"outcome"}, // "success", "skipped" or "error"
		),
		BoothEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booth_events_total",
				Help:      "Events emitted by the capture booth",
			},
			[]string{"kind"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (p *Pipeline) ObserveTranscode(d time.Duration, err error) {
	s := status(err)
	p.Transcodes.WithLabelValues(s).Inc()
	p.TranscodeDuration.WithLabelValues(s).Observe(d.Seconds())
}

func (p *Pipeline) ObserveUpload(s string) {
	p.Uploads.WithLabelValues(s).Inc()
}

func (p *Pipeline) ObserveBatchItem(outcome string) {
	p.BatchItems.WithLabelValues(outcome).Inc()
}

func (p *Pipeline) ObserveBoothEvent(kind string) {
	p.BoothEvents.WithLabelValues(kind).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
