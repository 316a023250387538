package server

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/metrics"
	"github.com/algife/portfolio--smart-contract-solidity-twitter-message-queue/internal/view"
)

// DaemonInfo provides read-only access to daemon state for the API.
type DaemonInfo interface {
	Uptime() time.Duration
	Status() map[string]interface{}
}

// Actions are the user workflows the page and the API trigger.
type Actions interface {
	Connect(ctx context.Context) error
	RefreshTweets(ctx context.Context) []view.TweetBlock
	SubmitTweet(ctx context.Context, text string) error
	LikeTweet(ctx context.Context, author common.Address, id *big.Int) error
	PrepareTweet(text string) (func(context.Context) error, error)
	PrepareLike(author common.Address, id *big.Int) (func(context.Context) error, error)
	Account() (common.Address, bool)
	SessionID() string
}

// Config configures the HTTP surface.
type Config struct {
	Bind      string
	Port      int
	RateRPS   float64 // per-client write rate; <= 0 disables limiting
	RateBurst int
	Gatherer  prometheus.Gatherer // nil = prometheus.DefaultGatherer
	Metrics   *metrics.Metrics
}

// corsMiddleware allows cross-origin requests from other local frontends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server serves the tweet page, the JSON API and the metrics endpoint.
type Server struct {
	httpSrv *http.Server
	daemon  DaemonInfo
	actions Actions
	page    *view.Page
	limiter *writeLimiter
	cfg     Config

	// workflows started by form posts that outlive their request
	bg sync.WaitGroup
}

// New creates an HTTP server.
func New(cfg Config, daemon DaemonInfo, actions Actions, page *view.Page) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		daemon:  daemon,
		actions: actions,
		page:    page,
		limiter: newWriteLimiter(cfg.RateRPS, cfg.RateBurst, 0),
		cfg:     cfg,
	}
	s.httpSrv = &http.Server{
		Handler:           corsMiddleware(s.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route mux without CORS, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Start pre-acquires the port and begins serving HTTP requests.
// If the primary port is in use, it falls back to port+1.
// Returns the actual port bound.
func (s *Server) Start() (int, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fallbackPort := s.cfg.Port + 1
		fallbackAddr := fmt.Sprintf("%s:%d", s.cfg.Bind, fallbackPort)
		ln, err = net.Listen("tcp", fallbackAddr)
		if err != nil {
			return 0, fmt.Errorf("listen on %s and fallback %s: %w", addr, fallbackAddr, err)
		}
		log.Printf("[api] WARNING: Using fallback port %d (primary %d was in use)", fallbackPort, s.cfg.Port)
		s.cfg.Port = fallbackPort
	}

	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		s.cfg.Port = tcp.Port
	}
	log.Printf("[api] HTTP API listening on %s:%d", s.cfg.Bind, s.cfg.Port)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()
	return s.cfg.Port, nil
}

// Stop gracefully shuts down the server and waits briefly for workflows
// started from the page.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpSrv.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Println("[api] Workflows still running at shutdown")
	}
	log.Println("[api] HTTP server stopped")
}

// background runs a prepared workflow detached from the request so the page
// can show the busy state while the ledger confirms.
func (s *Server) background(r *http.Request, name string, run func(context.Context) error) {
	ctx := context.WithoutCancel(r.Context())
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := run(ctx); err != nil {
			log.Printf("[api] %s: %v", name, err)
		}
	}()
}
