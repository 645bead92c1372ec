package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for decode counters.
const (
	OutcomeOK          = "ok"
	OutcomeDateErrors  = "date_errors"
	OutcomeUnsupported = "unsupported"
)

// Metrics tracks MRZ decoding and extraction jobs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Decodes            *prometheus.CounterVec
	DateErrors         *prometheus.CounterVec
	CheckDigitFailures *prometheus.CounterVec
	ProcessorFailures  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
}

// New registers all docscan metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_mrz_decodes_total",
			Help: "MRZ decodes by layout and outcome",
		}, []string{"format", "outcome"}),
		DateErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_mrz_date_errors_total",
			Help: "Date slices that could not be decoded, by field",
		}, []string{"field"}),
		CheckDigitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_mrz_check_digit_failures_total",
			Help: "Check digit mismatches, by field",
		}, []string{"field"}),
		ProcessorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_processor_failures_total",
			Help: "Extraction attempts that failed, by processor",
		}, []string{"processor"}),
		ProcessingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docscan_processing_duration_seconds",
			Help:    "Duration of successful extractions, by processor",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		}, []string{"processor"}),
	}
}

// ObserveDecode records one decode attempt.
func (m *Metrics) ObserveDecode(format, outcome string) {
	if m == nil {
		return
	}
	m.Decodes.WithLabelValues(format, outcome).Inc()
}

// IncrementDateError records an undecodable date field.
func (m *Metrics) IncrementDateError(field string) {
	if m == nil {
		return
	}
	m.DateErrors.WithLabelValues(field).Inc()
}

// IncrementCheckDigitFailure records a failed check digit.
func (m *Metrics) IncrementCheckDigitFailure(field string) {
	if m == nil {
		return
	}
	m.CheckDigitFailures.WithLabelValues(field).Inc()
}

// IncrementProcessorFailure records a failed processor attempt.
func (m *Metrics) IncrementProcessorFailure(processor string) {
	if m == nil {
		return
	}
	m.ProcessorFailures.WithLabelValues(processor).Inc()
}

// ObserveProcessing records the duration of a successful extraction.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveProcessing(processor string, start time.Time) {
	if m == nil {
		return
	}
	m.ProcessingDuration.WithLabelValues(processor).Observe(time.Since(start).Seconds())
}
