package expense

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

// Processor runs the receipt pipeline for a single uploaded document. The
// web path is the same orchestrator as the batch CLI, invoked as a batch
// of size one.
type Processor interface {
	ProcessUpload(ctx context.Context, filename string, data []byte, contentType string) (*Record, error)
}

// Server handles HTTP requests for receipt uploads and stored reports
type Server struct {
	processor Processor
	db        DB
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(processor Processor, db DB, basicAuth BasicAuth) *Server {
	return NewServerWithMux(processor, db, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(processor Processor, db DB, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		processor: processor,
		db:        db,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/receipts", s.corsMiddleware(s.requireAuth(s.handleReceipts)))
	s.mux.HandleFunc("/api/abrechnungen", s.corsMiddleware(s.requireAuth(s.handleAbrechnungen)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="spesen-tracker"`)
			corsError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
