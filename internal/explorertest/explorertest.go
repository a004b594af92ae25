// Package explorertest provides an in-memory explorer API for tests.
package explorertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Request is a request received by the fake explorer.
type Request struct {
	Method    string
	Path      string
	Query     string
	APIKey    string
	RequestID string
	Body      json.RawMessage
}

// Contract is a contract known to the fake explorer.
type Contract struct {
	Address  string          `json:"address"`
	Name     string          `json:"name,omitempty"`
	Verified bool            `json:"verified"`
	ABI      json.RawMessage `json:"abi,omitempty"`
}

// Server is a fake explorer serving the smart contract endpoints.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	contracts map[string]*Contract
	requests  []Request
	apiKey    string
	failWith  int
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey makes every endpoint require the given X-API-Key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// NewServer starts a fake explorer. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{contracts: make(map[string]*Contract)}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.requireAPIKey)
	r.Route("/api/smartcontract", func(r chi.Router) {
		r.Get("/abi/{address}", s.handleGetABI)
		r.Post("/verify/{address}", s.handleVerify)
		r.Get("/{address}", s.handleGetContract)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// APIURL returns the API root to hand to the client.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// AddContract registers a contract.
func (s *Server) AddContract(c Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.Address] = &c
}

// Contract returns the stored contract at address.
func (s *Server) Contract(address string) (Contract, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[address]
	if !ok {
		return Contract{}, false
	}
	return *c, true
}

// FailWith makes every subsequent request fail with status. Zero restores normal behavior.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			APIKey:    r.Header.Get("X-API-Key"),
			RequestID: r.Header.Get("X-Request-ID"),
			Body:      body,
		})
		failWith := s.failWith
		s.mu.Unlock()

		if failWith != 0 {
			writeError(w, failWith, "UPSTREAM_ERROR", http.StatusText(failWith))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	c, ok := s.Contract(chi.URLParam(r, "address"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Smart contract not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGetABI(w http.ResponseWriter, r *http.Request) {
	c, ok := s.Contract(chi.URLParam(r, "address"))
	if !ok || len(c.ABI) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "ABI not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(c.ABI)
}

// verifyBody mirrors the verification request fields the explorer reads
type verifyBody struct {
	SourceCode      *string           `json:"sourceCode"`
	ABI             *string           `json:"abi"`
	Version         string            `json:"version"`
	VersionFullName string            `json:"versionFullName"`
	Optimizer       bool              `json:"optimizer"`
	OptimizerRuns   int               `json:"optimizerRuns"`
	IsSingleFile    bool              `json:"isSingleFile"`
	Libs            map[string]string `json:"libs"`
	EVM             string            `json:"evm"`
	ViaIR           bool              `json:"viaIR"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	if req.SourceCode == nil || *req.SourceCode == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "sourceCode is required")
		return
	}

	address := chi.URLParam(r, "address")

	s.mu.Lock()
	c, ok := s.contracts[address]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Smart contract not found")
		return
	}
	c.Verified = true
	if req.ABI != nil && *req.ABI != "" {
		c.ABI = json.RawMessage(*req.ABI)
	}
	verified := *c
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"verified": true,
		"address":  verified.Address,
		"version":  req.Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
