// Package metrics provides a minimal instrumentation interface with a no-op
// default and an optional Prometheus-backed implementation.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncSearchTotal(success bool)
	ObserveSearchSeconds(success bool, seconds float64)
	IncFlowTransition(to string)
	IncHTTPRequest(route string, status int)
	ObserveHTTPSeconds(route string, seconds float64)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncSearchTotal(bool)                {}
func (n *noopRecorder) ObserveSearchSeconds(bool, float64) {}
func (n *noopRecorder) IncFlowTransition(string)           {}
func (n *noopRecorder) IncHTTPRequest(string, int)         {}
func (n *noopRecorder) ObserveHTTPSeconds(string, float64) {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// TimeSearch is a helper to time path searches.
func TimeSearch() func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncSearchTotal(success)
		Default().ObserveSearchSeconds(success, dur)
	}
}
