// Package server is the minimal HTTP host application standing in for the
// real schematic editor GUI, which is out of scope here: a small
// standalone surface for listing configured services, driving
// login/mapping/queue decisions, and streaming session events. Adapted
// from the console server's gorilla/mux router and SSE handler.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"remotelab/internal/discovery"
	"remotelab/internal/journal"
	"remotelab/internal/metrics"
	"remotelab/internal/pins"
	"remotelab/internal/registry"
	"remotelab/internal/devsession"
)

// Server is the host application: it owns every live Session and exposes
// the registry/login/mapping/queue operations over HTTP, plus an SSE
// stream of each Session's events.
type Server struct {
	port int
	reg  *registry.Registry
	disc *discovery.Client
	jrnl *journal.Writer
	mset *metrics.Set

	router     *mux.Router
	httpServer *http.Server

	mu       sync.Mutex
	sessions map[string]*devsession.Session
	catalogs map[string]*pins.Catalog
	bcasts   map[string]*broadcaster
}

func New(port int, reg *registry.Registry, jrnl *journal.Writer, mset *metrics.Set) *Server {
	s := &Server{
		port:     port,
		reg:      reg,
		disc:     discovery.NewClient(),
		jrnl:     jrnl,
		mset:     mset,
		router:   mux.NewRouter(),
		sessions: make(map[string]*devsession.Session),
		catalogs: make(map[string]*pins.Catalog),
		bcasts:   make(map[string]*broadcaster),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/services", s.handleListServices).Methods("GET")
	api.HandleFunc("/services/{name}/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/services/{name}/mapping", s.handleMapping).Methods("POST")
	api.HandleFunc("/services/{name}/queue", s.handleQueueDecision).Methods("POST")
	api.HandleFunc("/services/{name}/events", s.handleEvents).Methods("GET")

	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Run(ctx context.Context) error {
	s.router.Use(loggingMiddleware)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		log.Info("server: context done, shutting down")
		s.httpServer.Shutdown(context.Background())
	}()

	log.Infof("server: listening on port %d", s.port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Info("server: closed cleanly")
		return nil
	}
	return err
}

func (s *Server) sessionFor(name string) (*devsession.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[name]
	return sess, ok
}

func (s *Server) broadcasterFor(name string) (*broadcaster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bcasts[name]
	return b, ok
}
