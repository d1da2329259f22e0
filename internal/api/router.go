package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sky-sprint/internal/leaderboard"
	"sky-sprint/internal/store"
)

// RoomStore is the slice of the room store the HTTP layer uses. Keeping it
// an interface lets tests drive the router with a plain MemoryStore and
// would let a remote-backed store slot in later.
type RoomStore interface {
	CreateRoom(userID, name, email string, level int) (string, error)
	FindAvailableRooms(level int) []store.Room
	JoinRoom(roomID, userID, name, email string) error
	GetRoom(roomID string) (store.Room, error)
	SetPlayerReady(roomID, userID string, ready bool) error
	StartGame(roomID string) error
	LeaveRoom(roomID, userID string) error
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Store: memStore,
//	    Board: board,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Store is the room store (required).
	Store RoomStore

	// Board is the leaderboard (required).
	Board leaderboard.Board

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil. Both nil
	// means DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the default allowed origins when non-nil.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks).
	DisableLogging bool
}

// routerHandlers holds the dependencies the handler functions close over.
type routerHandlers struct {
	store RoomStore
	board leaderboard.Board
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is PURE: no goroutines, no listeners, no background
// workers. Safe to use directly with httptest.NewServer. The one exception
// is the rate limiter's cleanup goroutine, which is only started when the
// caller does not supply a limiter of its own.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
			"https://skysprint.app",
			"https://*.skysprint.app",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		store: cfg.Store,
		board: cfg.Board,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/levels", h.handleGetLevels)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.handleListRooms)
			r.Post("/", h.handleCreateRoom)
			r.Route("/{roomID}", func(r chi.Router) {
				r.Get("/", h.handleGetRoom)
				r.Post("/join", h.handleJoinRoom)
				r.Post("/ready", h.handleReady)
				r.Post("/start", h.handleStartGame)
				r.Post("/leave", h.handleLeaveRoom)
			})
		})

		r.Route("/scores", func(r chi.Router) {
			r.Post("/", h.handleSubmitScore)
			r.Get("/top", h.handleTopScores)
			r.Get("/user", h.handleUserScores)
		})
	})

	return r
}
