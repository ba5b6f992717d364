// Package metrics exposes VictoriaMetrics gauges/histograms for heartbeat
// latency, session phase, and queue position, so a running session's
// state is observable on a /metrics endpoint the way R2Northstar-Atlas
// exposes its API metrics.
package metrics

import (
	"io"
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

// Set owns every remote-session metric, labeled per device. Gauges in this
// library are callback-driven (GetOrCreateGauge takes a func() float64), so
// the last-observed value per device is kept here and read back lazily by
// the registered callback on every scrape.
type Set struct {
	set *metrics.Set

	mu        sync.Mutex
	phaseCode map[string]float64
	queuePos  map[string]float64
	queueETA  map[string]float64
}

// NewSet returns an empty, independently-registerable metric set.
func NewSet() *Set {
	return &Set{
		set:       metrics.NewSet(),
		phaseCode: make(map[string]float64),
		queuePos:  make(map[string]float64),
		queueETA:  make(map[string]float64),
	}
}

// WritePrometheus renders the set in Prometheus exposition format.
func (s *Set) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

// LatencyMs observes one PONG round-trip latency sample for device.
func (s *Set) LatencyMs(device string, ms uint16) {
	s.set.GetOrCreateHistogram(`remotelab_session_latency_ms{device="` + device + `"}`).Update(float64(ms))
}

// SessionPhase records the current lifecycle phase, by its Phase enum
// ordinal, for device.
func (s *Set) SessionPhase(device string, phaseOrdinal int) {
	s.mu.Lock()
	s.phaseCode[device] = float64(phaseOrdinal)
	s.mu.Unlock()

	s.set.GetOrCreateGauge(`remotelab_session_phase_code{device="`+device+`"}`, func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.phaseCode[device]
	})
}

// QueuePosition records a device's current queue position (0 when not
// queued).
func (s *Set) QueuePosition(device string, position uint8) {
	s.mu.Lock()
	s.queuePos[device] = float64(position)
	s.mu.Unlock()

	s.set.GetOrCreateGauge(`remotelab_session_queue_position{device="`+device+`"}`, func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.queuePos[device]
	})
}

// QueueETASeconds records seconds remaining until a queue's current
// estimated_epoch, or 0 when not queued.
func (s *Set) QueueETASeconds(device string, seconds float64) {
	s.mu.Lock()
	s.queueETA[device] = seconds
	s.mu.Unlock()

	s.set.GetOrCreateGauge(`remotelab_session_queue_eta_seconds{device="`+device+`"}`, func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.queueETA[device]
	})
}
