package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"remotelab/internal/devsession"
	"remotelab/internal/discovery"
	"remotelab/internal/journal"
	"remotelab/internal/metrics"
	"remotelab/internal/pins"
)

// journalOrNil/metricsOrNil avoid the typed-nil-interface trap: a nil
// *journal.Writer or *metrics.Set boxed directly into journalRecorder or
// metricsRecorder would compare non-nil to the interface, so broadcaster
// would try to call through it. These return a true nil interface instead
// when journaling/metrics are disabled.
func journalOrNil(j *journal.Writer) journalRecorder {
	if j == nil {
		return nil
	}
	return j
}

func metricsOrNil(m *metrics.Set) metricsRecorder {
	if m == nil {
		return nil
	}
	return m
}

// serviceInfo is the JSON shape returned by GET /api/services: the
// configured catalog entry plus, when reachable, its live status.
type serviceInfo struct {
	Name        string `json:"name"`
	BaseURL     string `json:"baseUrl"`
	Auth        string `json:"auth"`
	Reachable   bool   `json:"reachable"`
	Version     string `json:"version,omitempty"`
	DevicesFree int    `json:"devicesFree,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	svcs := s.reg.Services()
	out := make([]serviceInfo, 0, len(svcs))
	for _, svc := range svcs {
		info := serviceInfo{Name: svc.Name, BaseURL: svc.BaseURL, Auth: svc.Auth.String()}
		status, err := s.disc.Status(r.Context(), svc)
		if err != nil {
			out = append(out, info)
			continue
		}
		info.Reachable = true
		info.Version = status.Version
		for _, n := range status.DevicesAvailable {
			info.DevicesFree += n
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

type loginRequest struct {
	Login        string `json:"login"`
	Password     string `json:"password"`
	DeviceTypeID uint8  `json:"deviceTypeId"`
	MethodID     uint8  `json:"methodId"`
}

type loginResponse struct {
	Established bool   `json:"established"`
	Phase       string `json:"phase"`
}

// handleLogin drives the discovery handshake (version check, credential
// submission) and then dials the binary session channel, storing the
// resulting *devsession.Session under the service's name.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	svc, ok := s.reg.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown service "+name)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	status, err := s.disc.Status(r.Context(), svc)
	if err != nil {
		writeError(w, http.StatusBadGateway, "service unreachable: "+err.Error())
		return
	}
	if err := discovery.CheckVersion(status.Version); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	result, err := s.disc.Login(r.Context(), svc, req.Login, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	catalog := pins.NewCatalog()
	auth := devsession.SessionAuth{
		Token:        result.Token,
		DeviceTypeID: req.DeviceTypeID,
		MethodID:     req.MethodID,
	}
	sess, err := devsession.Dial(result.Host+":"+strconv.Itoa(result.Port), auth, catalog)
	if err != nil {
		writeError(w, http.StatusBadGateway, "dial device gateway: "+err.Error())
		return
	}

	bc := newBroadcaster(name, journalOrNil(s.jrnl), metricsOrNil(s.mset))
	go bc.run(sess)

	s.mu.Lock()
	s.sessions[name] = sess
	s.catalogs[name] = catalog
	s.bcasts[name] = bc
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, loginResponse{Established: true, Phase: sess.Phase().String()})
}

type mappingRequest struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sess, ok := s.sessionFor(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no active session for "+name)
		return
	}

	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	dir := pins.Input
	if req.Direction == "Output" {
		dir = pins.Output
	}

	if err := sess.MapPin(req.Name, dir); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "mapped"})
}

type queueDecisionRequest struct {
	Accept bool `json:"accept"`
}

func (s *Server) handleQueueDecision(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sess, ok := s.sessionFor(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no active session for "+name)
		return
	}

	var req queueDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := sess.DecideQueue(req.Accept); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "phase": sess.Phase().String()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.mset == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not configured")
		return
	}
	s.mset.WritePrometheus(w)
}
