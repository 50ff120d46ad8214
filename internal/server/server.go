// Package server is the thin HTTP shim over the core (spec.md §6): it
// decodes wire DTOs, asserts team scope, maps typed errors to status
// codes per spec.md §7, and otherwise does no business logic of its
// own — every route forwards straight into the Proxy Executor,
// Collection Runner, or a repository.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sadopc/courier/internal/history"
	"github.com/sadopc/courier/internal/metrics"
	"github.com/sadopc/courier/internal/proxy"
	"github.com/sadopc/courier/internal/repository"
	"github.com/sadopc/courier/internal/runner"
)

// Server bundles the core components the HTTP shim forwards into.
type Server struct {
	Collections  repository.Collections
	Folders      repository.Folders
	Requests     repository.Requests
	Environments repository.Environments
	Globals      repository.GlobalVariables
	HistoryStore repository.History
	Runs         repository.Runs

	Executor *proxy.Executor
	History  *history.Recorder
	Runner   *runner.Runner
	Metrics  *metrics.Metrics

	// RequestsPerSecond and Burst configure the per-process token
	// bucket every route shares. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Handler builds the routed, rate-limited, team-scoped http.Handler.
// /metrics is exposed outside the team-scope check — it's a scrape
// target for operations tooling, not a per-team API route.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	s.registerRoutes(api)

	var scoped http.Handler = api
	scoped = teamScopeMiddleware(scoped)
	if s.RequestsPerSecond > 0 {
		scoped = rateLimitMiddleware(rate.NewLimiter(rate.Limit(s.RequestsPerSecond), s.Burst))(scoped)
	}

	top := http.NewServeMux()
	top.Handle("GET /metrics", s.Metrics.Handler())
	top.Handle("/", scoped)
	return top
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /proxy/send", s.handleProxySend)

	mux.HandleFunc("POST /runner/start", s.handleRunnerStart)
	mux.HandleFunc("GET /runner/{id}", s.handleRunnerStatus)
	mux.HandleFunc("POST /runner/{id}/cancel", s.handleRunnerCancel)
	mux.HandleFunc("GET /runner/{id}/iterations", s.handleRunnerIterations)

	mux.HandleFunc("GET /history", s.handleHistoryList)

	mux.HandleFunc("POST /oauth2/token", s.handleOAuth2Token)
	mux.HandleFunc("POST /oauth2/authorize-url", s.handleOAuth2AuthorizeURL)
}

// Start binds addr, registers routes, and serves in a background
// goroutine, mirroring the teacher's local web server startup shape.
// Returns the bound address and a shutdown func that drains gracefully.
func (s *Server) Start(addr string) (actualAddr string, shutdown func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // long-running proxy sends and runner polling
	}

	go func() { _ = srv.Serve(ln) }()

	shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return ln.Addr().String(), shutdown, nil
}
