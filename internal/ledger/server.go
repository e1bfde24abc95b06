package ledger

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// Server handles HTTP requests for ledgers and receipt scans
type Server struct {
	service   *Service
	authToken string
	mux       *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, authToken string) *Server {
	return NewServerWithMux(service, authToken, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, authToken string, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		authToken: authToken,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks the bearer token
func (s *Server) authenticate(r *http.Request) bool {
	if s.authToken == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
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
			// Ensure CORS headers are set before error response
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Bearer realm="Kanjo"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Scan workflow (most specific paths first)
	s.mux.HandleFunc("GET /api/receipts/scan/history", s.requireAuth(s.handleScanHistory))
	s.mux.HandleFunc("GET /api/receipts/scan/{id}/image", s.requireAuth(s.handleScanImage))
	s.mux.HandleFunc("PUT /api/receipts/scan/{id}/confirm", s.requireAuth(s.handleConfirmScan))
	s.mux.HandleFunc("DELETE /api/receipts/scan/{id}", s.requireAuth(s.handleDeleteScan))
	s.mux.HandleFunc("POST /api/receipts/scan", s.requireAuth(s.handleScanReceipt))

	// Daily ledgers
	s.mux.HandleFunc("GET /api/ledgers/{id}/totals", s.requireAuth(s.handleLedgerTotals))
	s.mux.HandleFunc("POST /api/ledgers/{id}/receipts", s.requireAuth(s.handleAddReceipt))
	s.mux.HandleFunc("POST /api/ledgers/{id}/expenses", s.requireAuth(s.handleAddExpense))
	s.mux.HandleFunc("PUT /api/ledgers/{id}/cash", s.requireAuth(s.handleSetCash))
	s.mux.HandleFunc("PUT /api/ledgers/{id}/alcohol", s.requireAuth(s.handleSetAlcoholExpense))
	s.mux.HandleFunc("GET /api/ledgers/{id}", s.requireAuth(s.handleGetLedger))
	s.mux.HandleFunc("GET /api/ledgers", s.requireAuth(s.handleListLedgers))
	s.mux.HandleFunc("POST /api/ledgers", s.requireAuth(s.handleOpenLedger))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
