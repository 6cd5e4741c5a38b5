package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the quantization service
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Codec operation metrics
	EncodesTotal *prometheus.CounterVec
	DecodesTotal *prometheus.CounterVec
	CodecErrors  *prometheus.CounterVec

	// Throughput metrics
	ElementsEncoded prometheus.Counter
	ElementsDecoded prometheus.Counter

	// Latency metrics
	EncodeDuration *prometheus.HistogramVec
	DecodeDuration *prometheus.HistogramVec

	// Payload metrics
	PayloadBytes  prometheus.Histogram
	TensorRank    prometheus.Histogram
	SlicesPerCall prometheus.Histogram
}

// NewMetrics creates all metrics on the default registerer
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer. Tests
// pass a fresh registry here to avoid duplicate registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// Request metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numquant_requests_total",
				Help: "Total number of requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "numquant_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numquant_request_errors_total",
				Help: "Total number of request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		// Codec operation metrics
		EncodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numquant_encodes_total",
				Help: "Total number of encode operations by scheme and target kind",
			},
			[]string{"scheme", "kind"},
		),
		DecodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numquant_decodes_total",
				Help: "Total number of decode operations by scheme and source kind",
			},
			[]string{"scheme", "kind"},
		),
		CodecErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "numquant_codec_errors_total",
				Help: "Total number of codec failures by scheme and error kind",
			},
			[]string{"scheme", "error_kind"},
		),

		// Throughput metrics
		ElementsEncoded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "numquant_elements_encoded_total",
				Help: "Total number of tensor elements encoded",
			},
		),
		ElementsDecoded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "numquant_elements_decoded_total",
				Help: "Total number of tensor elements decoded",
			},
		),

		// Latency metrics
		EncodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "numquant_encode_duration_seconds",
				Help:    "Encode duration in seconds by scheme",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"scheme"},
		),
		DecodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "numquant_decode_duration_seconds",
				Help:    "Decode duration in seconds by scheme",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"scheme"},
		),

		// Payload metrics
		PayloadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "numquant_payload_bytes",
				Help:    "Size of marshaled payloads in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
		),
		TensorRank: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "numquant_tensor_rank",
				Help:    "Rank of tensors submitted for encoding",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8},
			},
		),
		SlicesPerCall: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "numquant_slices_per_call",
				Help:    "Number of slices produced by sliced encode operations",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
			},
		),
	}

	return m
}

// RecordRequest records a request with duration and status
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a request error
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordEncode records a completed encode operation
func (m *Metrics) RecordEncode(scheme, kind string, elements int, duration time.Duration) {
	m.EncodesTotal.WithLabelValues(scheme, kind).Inc()
	m.ElementsEncoded.Add(float64(elements))
	m.EncodeDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

// RecordDecode records a completed decode operation
func (m *Metrics) RecordDecode(scheme, kind string, elements int, duration time.Duration) {
	m.DecodesTotal.WithLabelValues(scheme, kind).Inc()
	m.ElementsDecoded.Add(float64(elements))
	m.DecodeDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

// RecordCodecError records a codec failure
func (m *Metrics) RecordCodecError(scheme, errorKind string) {
	m.CodecErrors.WithLabelValues(scheme, errorKind).Inc()
}

// RecordPayloadSize records the size of a marshaled payload
func (m *Metrics) RecordPayloadSize(bytes int) {
	m.PayloadBytes.Observe(float64(bytes))
}

// RecordTensorRank records the rank of a submitted tensor
func (m *Metrics) RecordTensorRank(rank int) {
	m.TensorRank.Observe(float64(rank))
}

// RecordSliceCount records slices produced by a sliced encode
func (m *Metrics) RecordSliceCount(count int) {
	m.SlicesPerCall.Observe(float64(count))
}
