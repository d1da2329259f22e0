package api

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sky-sprint/internal/leaderboard"
	"sky-sprint/internal/store"
)

// Server combines the HTTP router with the WebSocket room feed hub.
//
// Background workers do NOT start until Start() is called, so tests can
// construct a Server and hit Router() through httptest without goroutines
// running. For plain HTTP tests, NewRouter() alone is enough.
type Server struct {
	store       store.Store
	board       leaderboard.Board
	router      *chi.Mux
	feedHub     *RoomFeedHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates an API server with default production configuration.
func NewServer(st store.Store, board leaderboard.Board) *Server {
	s := &Server{
		store:   st,
		board:   board,
		feedHub: NewRoomFeedHub(st),
	}

	// Track the limiter so Stop can halt its cleanup goroutine.
	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Store:       st,
		Board:       board,
		RateLimiter: s.rateLimiter,
	})

	// Feed routes need the hub instance, so they cannot live in the pure
	// NewRouter factory.
	s.router.Get("/ws/rooms/{roomID}", func(w http.ResponseWriter, r *http.Request) {
		s.feedHub.HandleRoomFeed(w, r, chi.URLParam(r, "roomID"))
	})

	return s
}

// Start begins listening and launches the feed hub. The only method that
// starts goroutines or opens listeners. Blocks until the server exits.
func (s *Server) Start(addr string) error {
	go s.feedHub.Run()

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("api server starting on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}
