// Package explorertest provides an in-process fake of the Etherscan
// verification endpoints for tests.
package explorertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Submission is a recorded verifysourcecode call.
type Submission struct {
	ChainID         string
	APIKey          string
	Address         string
	SourceCode      string
	CodeFormat      string
	ContractName    string
	CompilerVersion string
	ConstructorArgs string
}

// Server is a fake explorer API.
type Server struct {
	srv    *httptest.Server
	router *chi.Mux

	mu          sync.Mutex
	submissions []Submission
	checks      int
	submitResp  response
	statuses    []string
	httpStatus  int
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// New starts a fake explorer that accepts submissions with GUID "test-guid"
// and reports "Pass - Verified" on the first status check.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		router:     chi.NewRouter(),
		submitResp: response{Status: "1", Message: "OK", Result: "test-guid"},
		statuses:   []string{"Pass - Verified"},
	}
	s.router.Post("/api", s.handleSubmit)
	s.router.Get("/api", s.handleQuery)

	s.srv = httptest.NewServer(s.router)
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API endpoint to pass to explorer.New.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// RejectSubmission makes verifysourcecode answer with status "0".
func (s *Server) RejectSubmission(message, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitResp = response{Status: "0", Message: message, Result: result}
}

// SetStatuses sets the texts returned by successive status checks. The last
// one repeats.
func (s *Server) SetStatuses(texts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = texts
}

// FailWith makes every request answer with an HTTP error.
func (s *Server) FailWith(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpStatus = code
}

// Submissions returns recorded submissions.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Checks returns how many status checks were served.
func (s *Server) Checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.failed(w) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("action") != "verifysourcecode" {
		writeJSON(w, response{Status: "0", Message: "NOTOK", Result: "Error! Missing or invalid action name"})
		return
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, Submission{
		ChainID:         r.URL.Query().Get("chainid"),
		APIKey:          r.PostForm.Get("apikey"),
		Address:         r.PostForm.Get("contractaddress"),
		SourceCode:      r.PostForm.Get("sourceCode"),
		CodeFormat:      r.PostForm.Get("codeformat"),
		ContractName:    r.PostForm.Get("contractname"),
		CompilerVersion: r.PostForm.Get("compilerversion"),
		ConstructorArgs: r.PostForm.Get("constructorArguements"),
	})
	resp := s.submitResp
	s.mu.Unlock()

	writeJSON(w, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.failed(w) {
		return
	}
	q := r.URL.Query()
	if q.Get("action") != "checkverifystatus" || q.Get("guid") == "" {
		writeJSON(w, response{Status: "0", Message: "NOTOK", Result: "Error! Missing or invalid action name"})
		return
	}

	s.mu.Lock()
	idx := s.checks
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	text := s.statuses[idx]
	s.checks++
	s.mu.Unlock()

	status := "0"
	if text == "Pass - Verified" {
		status = "1"
	}
	writeJSON(w, response{Status: status, Message: "OK", Result: text})
}

func (s *Server) failed(w http.ResponseWriter) bool {
	s.mu.Lock()
	code := s.httpStatus
	s.mu.Unlock()
	if code == 0 {
		return false
	}
	http.Error(w, http.StatusText(code), code)
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
