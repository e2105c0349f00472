package routes

import (
	"fmt"
	"net/http"

	"wifski/job"
	"wifski/metrics"
	"wifski/sources"
)

// Server carries the dependencies of the handlers that need more than the
// package level stores.
type Server struct {
	Processor      *job.Processor
	Fetcher        *sources.Fetcher // nil disables the source form field
	MaxUploadBytes int64
	JWTSecret      []byte // empty disables bearer auth
	JWTIssuer      string
	FFmpegPath     string
}

// NewMux registers every route.
func NewMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/convert", s.ConvertHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/status", StatusHandler)
	mux.HandleFunc("/version", VersionHandler)
	mux.HandleFunc("/jobs", s.authed(ActiveJobsHandler))
	mux.HandleFunc("/cancel", s.authed(CancelJobHandler))
	mux.HandleFunc("/failures", s.authed(FailureQueryHandler))
	mux.HandleFunc("/failures/list", s.authed(FailureListHandler))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// authed requires a valid bearer token before calling h when a secret is
// configured.
func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(w, r) {
			return
		}
		h(w, r)
	}
}

// authorize writes a 401 and returns false when auth is enabled and the
// request carries no valid token.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if len(s.JWTSecret) == 0 {
		return true
	}
	if err := s.verifyJWT(r); err != nil {
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return false
	}
	return true
}
