package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cardkeeper/fivecrowns/internal/game"
	"github.com/cardkeeper/fivecrowns/internal/stats"
	"github.com/cardkeeper/fivecrowns/internal/store"
)

// DefaultGameID names the session persisted under the current-game slot.
// It always exists and survives restarts.
const DefaultGameID = "default"

// Server handles HTTP requests
type Server struct {
	store        store.Store
	stats        *stats.Engine
	errorHandler *ErrorHandler
	logger       *log.Logger
	startTime    time.Time

	mu       sync.Mutex
	sessions map[string]*session

	// statsMu serializes access to the stats engine, which is shared by
	// every request.
	statsMu sync.Mutex
}

// session pairs a game engine with the lock that serializes handler access
// to it. Engines are not safe for concurrent use on their own; every
// handler operation on a session's engine runs under mu.
type session struct {
	mu  sync.Mutex
	eng *game.Engine
}

// NewServer creates a new API server. The default game session is restored
// from the store when a snapshot exists.
func NewServer(st store.Store) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	errorHandler := NewErrorHandler(logger)

	server := &Server{
		store:        st,
		stats:        stats.NewEngine(st, logger),
		errorHandler: errorHandler,
		logger:       logger,
		startTime:    time.Now(),
		sessions:     make(map[string]*session),
	}

	eng := game.NewEngine(st, store.SlotCurrentGame, logger)
	var snap game.Snapshot
	found, err := st.Load(store.SlotCurrentGame, &snap)
	if err != nil {
		logger.Printf("default_game_load_failed err=%v", err)
	}
	if found {
		if err := eng.Restore(snap); err != nil {
			logger.Printf("default_game_restore_rejected err=%v", err)
		}
	}
	server.sessions[DefaultGameID] = &session{eng: eng}

	return server
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.CORSMiddleware)

	// Health and monitoring endpoints
	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/games", s.handleCreateGame)
		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Delete("/", s.handleResetGame)
			r.Post("/players", s.handleAddPlayer)
			r.Delete("/players/{index}", s.handleRemovePlayer)
			r.Post("/start", s.handleStartGame)
			r.Post("/rounds", s.handleSubmitRound)
			r.Delete("/rounds/last", s.handleUndoRound)
			r.Get("/export", s.handleExportGame)
			r.Post("/import", s.handleImportGame)
		})

		r.Get("/stats", s.handleStatsOverview)
		r.Get("/stats/players", s.handleAllPlayers)
		r.Get("/stats/players/{name}", s.handlePlayerStats)
		r.Get("/stats/recent", s.handleRecentGames)
		r.Get("/stats/export", s.handleExportHistory)
		r.Post("/stats/import", s.handleImportHistory)
		r.Delete("/stats", s.handleClearHistory)
		r.Delete("/stats/games/{id}", s.handleDeleteRecord)

		r.Get("/preferences/theme", s.handleGetTheme)
		r.Put("/preferences/theme", s.handleSetTheme)
	})

	return r
}

// createSession registers a new game session under a fresh uuid.
func (s *Server) createSession() (string, *session) {
	id := uuid.NewString()
	sess := &session{eng: game.NewEngine(s.store, store.GameSlot(id), s.logger)}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return id, sess
}

// getSession returns the session for an id. Unknown uuid sessions are
// rehydrated from their slot when a persisted snapshot exists, so sessions
// survive restarts without a registry of their own.
func (s *Server) getSession(id string) (*session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return sess, true
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	var snap game.Snapshot
	found, err := s.store.Load(store.GameSlot(id), &snap)
	if err != nil {
		s.logger.Printf("session_load_failed game_id=%s err=%v", id, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	eng := game.NewEngine(s.store, store.GameSlot(id), s.logger)
	if err := eng.Restore(snap); err != nil {
		s.logger.Printf("session_restore_rejected game_id=%s err=%v", id, err)
		return nil, false
	}

	s.mu.Lock()
	// A concurrent request may have rehydrated the same session already;
	// keep the registered one so both callers share an engine and lock.
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return existing, true
	}
	sess = &session{eng: eng}
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess, true
}

// dropSession removes a session from the registry. The default session is
// kept; resetting it empties the engine instead.
func (s *Server) dropSession(id string) {
	if id == DefaultGameID {
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// gameView assembles the presentation contract for a session.
func gameView(id string, eng *game.Engine) GameView {
	snap := eng.Snapshot()
	return GameView{
		ID:       id,
		Players:  snap.Players,
		Totals:   eng.Totals(),
		Scores:   snap.Scores,
		Round:    eng.RoundInfo(),
		Complete: eng.IsComplete(),
		Winner:   eng.Winner(),
	}
}

// storageWarning renders an engine's soft persistence failure, if any.
func storageWarning(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, try to write a simple error response
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSONBody encodes data onto an already-prepared response.
func writeJSONBody(w http.ResponseWriter, data any) error {
	return json.NewEncoder(w).Encode(data)
}
