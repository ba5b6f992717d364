package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestWritePrometheusIncludesRecordedValues(t *testing.T) {
	s := NewSet()
	s.LatencyMs("dev1", 42)
	s.SessionPhase("dev1", 4) // Active
	s.QueuePosition("dev1", 2)
	s.QueueETASeconds("dev1", 600)

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		"remotelab_session_latency_ms",
		"remotelab_session_phase_code",
		"remotelab_session_queue_position",
		"remotelab_session_queue_eta_seconds",
		`device="dev1"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
