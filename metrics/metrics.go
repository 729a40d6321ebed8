package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/livepeer/catalyst-api/config"
)

// StageMetrics groups the per-stage duration histogram shared by every
// pipeline stage (probe, detect, transcode, caption) (spec.md §3).
type StageMetrics struct {
	DurationSec *prometheus.HistogramVec
	FailureCount *prometheus.CounterVec
}

type HighlightAPIMetrics struct {
	Version *prometheus.CounterVec

	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDurationSec *prometheus.HistogramVec

	JobsInFlight    prometheus.Gauge
	JobsTotal       *prometheus.CounterVec
	JobDurationSec  prometheus.Histogram
	ClipsTotal      *prometheus.CounterVec

	StageDurationSec *prometheus.HistogramVec
	StageFailures    *prometheus.CounterVec

	// ProbeEmptyCount counts signal probes that returned an empty
	// SignalSource (no usable data from that source) (spec.md §3).
	ProbeEmptyCount *prometheus.CounterVec

	DownloaderClient ClientMetrics
	TranscoderClient ClientMetrics

	BatchQueueDepth prometheus.Gauge
}

type ClientMetrics struct {
	RetryCount      *prometheus.GaugeVec
	FailureCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var durationBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}

func NewMetrics() *HighlightAPIMetrics {
	m := &HighlightAPIMetrics{
		Version: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "version",
			Help: "Current Git SHA / Tag that's running. Incremented once on app startup.",
		}, []string{"app", "version"}),

		HTTPRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "A count of the http requests currently being handled",
		}),
		HTTPRequestDurationSec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route and status code",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "method", "status_code"}),

		JobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobs_in_flight",
			Help: "A count of the cut/batch jobs currently being processed",
		}),
		JobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_total",
			Help: "Total number of jobs submitted, by kind and terminal status",
		}, []string{"kind", "status"}),
		JobDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Wall-clock time from job submission to its terminal state",
			Buckets: durationBuckets,
		}),
		ClipsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clips_total",
			Help: "Total number of clips produced or failed, by outcome",
		}, []string{"outcome"}),

		StageDurationSec: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage",
			Buckets: durationBuckets,
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_failures_total",
			Help: "Number of pipeline stage failures, by stage",
		}, []string{"stage"}),

		ProbeEmptyCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_probe_empty_total",
			Help: "Number of signal probes that returned no usable data",
		}, []string{"method"}),

		DownloaderClient: ClientMetrics{
			RetryCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "downloader_client_retry_count",
				Help: "The number of retried downloader requests",
			}, []string{"host"}),
			FailureCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "downloader_client_failure_count",
				Help: "The total number of failed downloader requests",
			}, []string{"host", "status_code"}),
			RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "downloader_client_request_duration",
				Help:    "Time taken to send downloader requests",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"host"}),
		},

		TranscoderClient: ClientMetrics{
			RetryCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "transcoder_client_retry_count",
				Help: "The number of retried transcoder subprocess invocations",
			}, []string{"op"}),
			FailureCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "transcoder_client_failure_count",
				Help: "The total number of failed transcoder subprocess invocations",
			}, []string{"op"}),
			RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "transcoder_client_request_duration",
				Help:    "Time taken by transcoder subprocess invocations",
				Buckets: durationBuckets,
			}, []string{"op"}),
		},

		BatchQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "batch_queue_depth",
			Help: "Number of batch jobs currently queued on the AMQP work queue",
		}),
	}

	m.Version.WithLabelValues("highlight-clip-engine", config.Version).Inc()

	return m
}

var Metrics = NewMetrics()
