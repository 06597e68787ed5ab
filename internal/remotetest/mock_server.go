// Package remotetest provides a mock repository backend for testing the
// client stack end to end over real HTTP.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Response defines one canned response.
type Response struct {
	StatusCode int
	Body       any
	Headers    map[string]string
	Delay      time.Duration
}

// Server is a mock repository backend. Responses are keyed by
// "METHOD path"; a queue of responses per key is consumed in order, with
// the last response repeating once the queue empties.
type Server struct {
	server    *httptest.Server
	mu        sync.Mutex
	responses map[string][]Response
	requests  []RecordedRequest
}

// RecordedRequest is one request the server observed.
type RecordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// New creates a mock server.
func New() *Server {
	s := &Server{
		responses: make(map[string][]Response),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// Respond sets the response for a method and path, replacing any queue.
func (s *Server) Respond(method, path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method+" "+path] = []Response{resp}
}

// RespondSeq queues a sequence of responses for a method and path. The
// final response repeats after the queue is consumed.
func (s *Server) RespondSeq(method, path string, resps ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method+" "+path] = resps
}

// JSON is shorthand for a 200 response with a JSON body.
func JSON(body any) Response {
	return Response{StatusCode: http.StatusOK, Body: body}
}

// Error is shorthand for an error response with a backend-style message.
func Error(status int, message string) Response {
	return Response{StatusCode: status, Body: map[string]string{"message": message}}
}

// Requests returns all observed requests.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests matched the method and path.
func (s *Server) RequestCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			count++
		}
	}
	return count
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		buf := make([]byte, 64*1024)
		for {
			n, err := r.Body.Read(buf)
			body = append(body, buf[:n]...)
			if err != nil {
				break
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})

	key := r.Method + " " + r.URL.Path
	queue, ok := s.responses[key]
	if !ok || len(queue) == 0 {
		s.mu.Unlock()
		w.Header().Set("X-RateLimit-Remaining", "4000")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"no mock for %s"}`, key)
		return
	}

	resp := queue[0]
	if len(queue) > 1 {
		s.responses[key] = queue[1:]
	}
	s.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	// Default rate-limit headers unless the response overrides them.
	if _, ok := resp.Headers["X-RateLimit-Remaining"]; !ok {
		w.Header().Set("X-RateLimit-Remaining", "4000")
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		_ = json.NewEncoder(w).Encode(resp.Body)
	}
}
