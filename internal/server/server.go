package server

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"sketch-party/internal/config"
	"sketch-party/internal/game"
	"sketch-party/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const persistTimeout = 3 * time.Second

type Server struct {
	registry *game.Registry
	sessions store.SessionStore
	cache    store.SnapshotCache
	hub      *hub
	cfg      config.Config
	upgrader websocket.Upgrader
	timersMu sync.Mutex
	timers   map[string]*time.Timer

	// cacheLocks orders snapshot writes per room code.
	cacheMu    sync.Mutex
	cacheLocks map[string]*sync.Mutex
}

func New(registry *game.Registry, sessions store.SessionStore, cache store.SnapshotCache, cfg config.Config) *Server {
	registerValidators()
	if registry == nil {
		registry = game.NewRegistry(game.Settings{
			DrawingTime: cfg.DrawingSeconds,
			MaxPlayers:  cfg.MaxPlayers,
		})
	}
	if sessions == nil {
		sessions = store.NewSessionStore(nil)
	}
	if cache == nil {
		cache = store.NewNoopCache()
	}
	s := &Server{
		registry: registry,
		sessions: sessions,
		cache:    cache,
		hub:      newHub(),
		cfg:      cfg,
		timers:   make(map[string]*time.Timer),

		cacheLocks: make(map[string]*sync.Mutex),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors.New(corsConfig(s.cfg.CORSOrigins)))

	api := router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/lobbies/:code", s.handleGetLobby)
	api.GET("/sessions/:code", s.handleGetSession)
	api.GET("/players/:id/stats", s.handleGetPlayerStats)

	router.GET("/ws", s.handleWebsocket)
	return router
}

// Close drops every websocket connection. Each read loop then runs its
// normal disconnect path.
func (s *Server) Close() {
	s.hub.closeAll()
	s.timersMu.Lock()
	for code, timer := range s.timers {
		timer.Stop()
		delete(s.timers, code)
	}
	s.timersMu.Unlock()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.CORSOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.CORSOrigins, origin)
}
