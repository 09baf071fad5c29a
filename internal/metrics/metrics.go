// Package metrics is a tiny process-global metrics facade.
//
// Pipeline code records through the package-level helpers; cmd/shopetl picks a
// Backend at startup. Until SetBackend is called every call is a no-op.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions such as {"step": "impute_missing"}.
type Labels map[string]string

// Backend receives metric events.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names emitted by the pipeline.
const (
	StepTotal           = "etl_step_total"
	RecordsTotal        = "etl_records_total"
	StepDurationSeconds = "etl_step_duration_seconds"
)

// Record kinds used with RecordsTotal.
const (
	KindRead           = "read"
	KindWritten        = "written"
	KindDuplicate      = "duplicate"
	KindCoercedMissing = "coerced_missing"
	KindImputed        = "imputed"
	KindCapped         = "capped"
	KindHighValue      = "high_value"
	KindUploaded       = "uploaded"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process backend. A nil b restores the no-op.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered metrics, if the backend buffers.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one finished step and its duration.
func RecordStep(step, status string, elapsed time.Duration) {
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, elapsed.Seconds(), l)
}

// RecordRows adds n to the record counter of the given kind. n <= 0 is ignored.
func RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}
