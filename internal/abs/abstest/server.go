// Package abstest runs an in-process ABS for tests.
package abstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/flo-mic/absprovision/internal/api"
	"github.com/flo-mic/absprovision/internal/auth"
)

// Server mimics the ABS request/return endpoints.
//
// A request for a job is answered 202 Pending times, then 200 with the hosts.
// Returns require the bearer token the server was created with.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	pending       int
	requestStatus int
	returnStatus  int
	hosts         func(api.Request) []api.Host
	polls         map[string]int
	requests      []api.Request
	requestAuth   []string
	returns       []api.ReturnRequest
}

// NewServer starts a fake ABS guarded by token. Close it when done.
func NewServer(token string) *Server {
	s := &Server{
		pending: 1,
		polls:   make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/request", s.handleRequest)
	mux.Handle("/api/v2/return", auth.Middleware(token, http.HandlerFunc(s.handleReturn)))
	s.Server = httptest.NewServer(mux)
	return s
}

// SetPending sets how many 202 replies precede the 200 for each job.
func (s *Server) SetPending(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = n
}

// FailRequests makes every request answer status with an error body.
func (s *Server) FailRequests(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestStatus = status
}

// FailReturns makes every authorised return answer status.
func (s *Server) FailReturns(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returnStatus = status
}

// SetHosts replaces the default host allocation.
func (s *Server) SetHosts(fn func(api.Request) []api.Host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = fn
}

// Requests returns every request body received, polls included.
func (s *Server) Requests() []api.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Request(nil), s.requests...)
}

// RequestAuth returns the Authorization header of each request.
func (s *Server) RequestAuth() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestAuth...)
}

// Returns returns every authorised return body received.
func (s *Server) Returns() []api.ReturnRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.ReturnRequest(nil), s.returns...)
}

// DefaultHosts allocates "<platform>-<n>.test" for each requested host,
// platforms in sorted order.
func DefaultHosts(req api.Request) []api.Host {
	platforms := make([]string, 0, len(req.Resources))
	for p := range req.Resources {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	var hosts []api.Host
	for _, p := range platforms {
		for i := 1; i <= req.Resources[p]; i++ {
			hosts = append(hosts, api.Host{Type: p, Hostname: fmt.Sprintf("%s-%d.test", p, i), Engine: api.DefaultEngine})
		}
	}
	return hosts
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req api.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.requestAuth = append(s.requestAuth, r.Header.Get("Authorization"))
	if s.requestStatus != 0 {
		status := s.requestStatus
		s.mu.Unlock()
		http.Error(w, `{"error":"no capacity"}`, status)
		return
	}
	s.polls[req.Job.ID]++
	pending := s.polls[req.Job.ID] <= s.pending
	hostsFn := s.hosts
	s.mu.Unlock()

	if pending {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if hostsFn == nil {
		hostsFn = DefaultHosts
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hostsFn(req))
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req api.ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.returns = append(s.returns, req)
	status := s.returnStatus
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, `{"error":"unknown job"}`, status)
		return
	}
	w.WriteHeader(http.StatusOK)
}
