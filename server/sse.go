package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"remotelab/internal/devsession"
)

// eventEnvelope tags a devsession.Event with a discriminator the browser
// side can switch on, since JSON has no native sum type.
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func envelope(e devsession.Event) eventEnvelope {
	switch v := e.(type) {
	case devsession.SessionStateChanged:
		return eventEnvelope{Type: "phase", Data: map[string]string{"phase": v.Phase.String()}}
	case devsession.SessionEstablished:
		return eventEnvelope{Type: "established", Data: v}
	case devsession.PinSetChanged:
		return eventEnvelope{Type: "pinSetChanged", Data: v}
	case devsession.MappingReset:
		return eventEnvelope{Type: "mappingReset", Data: v}
	case devsession.OutputChanged:
		return eventEnvelope{Type: "outputChanged", Data: v}
	case devsession.NeedQueueDecision:
		return eventEnvelope{Type: "needQueueDecision", Data: v}
	case devsession.QueueUpdated:
		return eventEnvelope{Type: "queueUpdated", Data: v}
	case devsession.LatencyWarning:
		return eventEnvelope{Type: "latencyWarning", Data: v}
	case devsession.LatencySample:
		return eventEnvelope{Type: "latencySample", Data: v}
	default:
		return eventEnvelope{Type: "unknown", Data: nil}
	}
}

// handleEvents streams one named service's session events as
// newline-delimited SSE "data:" frames, one JSON envelope per event. Unlike
// the console byte stream this replaces, there is no binary payload to
// base64-encode — JSON text is itself a safe SSE data line.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.sessionFor(name); !ok {
		http.Error(w, "no active session for "+name, http.StatusNotFound)
		return
	}
	bc, ok := s.broadcasterFor(name)
	if !ok {
		http.Error(w, "no active session for "+name, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribing (rather than draining sess.Events() directly) lets more
	// than one SSE client watch the same session: the broadcaster owns the
	// single real consumer of the session's event channel and fans each
	// event out to every subscriber.
	sub := bc.subscribe()
	defer bc.unsubscribe(sub)

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", name)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			b, err := json.Marshal(envelope(e))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}
