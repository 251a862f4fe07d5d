package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cardkeeper/fivecrowns/internal/store"
)

// handleCreateGame creates a new game session. When the request carries
// players the game starts immediately.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}

	id, sess := s.createSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(req.Players) > 0 {
		if err := sess.eng.StartNewGame(req.Players); err != nil {
			s.dropSession(id)
			s.errorHandler.HandleCoreError(w, r, err)
			return
		}
	}

	s.writeJSON(w, http.StatusCreated, GameResponse{
		Game:           gameView(id, sess.eng),
		StorageWarning: storageWarning(sess.eng.LastSaveError()),
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.writeJSON(w, http.StatusOK, GameResponse{Game: gameView(id, sess.eng)})
}

// handleResetGame discards the session's game and its persisted snapshot.
// Non-default sessions are dropped entirely.
func (s *Server) handleResetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.eng.Reset()
	s.dropSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}

	var req AddPlayerRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	if err := ValidateAddPlayerRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "name", err.Error())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.eng.AddPlayer(req.Name); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GameResponse{Game: gameView(id, sess.eng)})
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "index", "index must be an integer")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.eng.RemovePlayer(index); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GameResponse{Game: gameView(id, sess.eng)})
}

// handleStartGame starts the game with the supplied names, or with the
// roster accumulated through add-player calls.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}

	var req StartGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	names := req.Players
	if len(names) == 0 {
		names = sess.eng.Players()
	}
	if err := sess.eng.StartNewGame(names); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, GameResponse{
		Game:           gameView(id, sess.eng),
		StorageWarning: storageWarning(sess.eng.LastSaveError()),
	})
}

// handleSubmitRound records a round. When the round completes the game,
// the snapshot is handed off to the statistics engine and the created
// record is echoed back.
func (s *Server) handleSubmitRound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}

	var req SubmitRoundRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	if err := ValidateSubmitRoundRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "scores", err.Error())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	complete, err := sess.eng.SubmitRound(req.Scores)
	if err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}

	resp := SubmitRoundResponse{
		Game:           gameView(id, sess.eng),
		Complete:       complete,
		StorageWarning: storageWarning(sess.eng.LastSaveError()),
	}

	if complete {
		s.statsMu.Lock()
		rec, err := s.stats.SaveGame(sess.eng.Snapshot())
		if err != nil {
			s.logger.Printf("history_record_failed game_id=%s err=%v", id, err)
		} else {
			resp.Record = rec
		}
		if resp.StorageWarning == "" {
			resp.StorageWarning = storageWarning(s.stats.LastSaveError())
		}
		s.statsMu.Unlock()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUndoRound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.eng.UndoLastRound(); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GameResponse{
		Game:           gameView(id, sess.eng),
		StorageWarning: storageWarning(sess.eng.LastSaveError()),
	})
}

func (s *Server) handleExportGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.writeJSON(w, http.StatusOK, sess.eng.Export())
}

func (s *Server) handleImportGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	sess, ok := s.getSession(id)
	if !ok {
		s.errorHandler.HandleNotFound(w, r, "game", id)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "unreadable body")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.eng.Import(body); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, GameResponse{
		Game:           gameView(id, sess.eng),
		StorageWarning: storageWarning(sess.eng.LastSaveError()),
	})
}

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	s.statsMu.Lock()
	resp := StatsOverviewResponse{
		Overall: s.stats.OverallStats(),
		Players: s.stats.AllPlayers(),
	}
	s.statsMu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllPlayers(w http.ResponseWriter, r *http.Request) {
	s.statsMu.Lock()
	players := s.stats.AllPlayers()
	s.statsMu.Unlock()
	s.writeJSON(w, http.StatusOK, players)
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.statsMu.Lock()
	ps := s.stats.PlayerStats(name)
	s.statsMu.Unlock()
	if ps == nil {
		s.errorHandler.HandleNotFound(w, r, "player", name)
		return
	}
	s.writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.errorHandler.HandleValidationError(w, r, "limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	s.statsMu.Lock()
	recent := s.stats.RecentGames(limit)
	s.statsMu.Unlock()
	s.writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	s.statsMu.Lock()
	data, err := s.stats.ExportHistory()
	s.statsMu.Unlock()
	if err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "unreadable body")
		return
	}

	s.statsMu.Lock()
	added, err := s.stats.ImportHistory(body)
	warning := storageWarning(s.stats.LastSaveError())
	s.statsMu.Unlock()
	if err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ImportResponse{
		Added:          added,
		StorageWarning: warning,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.statsMu.Lock()
	s.stats.ClearHistory()
	s.statsMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "id", "id must be an integer")
		return
	}
	s.statsMu.Lock()
	s.stats.DeleteGame(id)
	s.statsMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// handleGetTheme returns the stored display preference; "light" when none
// has been saved yet.
func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	pref := ThemePreference{Theme: "light"}
	if _, err := s.store.Load(store.SlotTheme, &pref); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pref)
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var pref ThemePreference
	if err := decodeBody(r, &pref); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON")
		return
	}
	if err := ValidateThemeRequest(&pref); err != nil {
		s.errorHandler.HandleValidationError(w, r, "theme", err.Error())
		return
	}

	if err := s.store.Save(store.SlotTheme, pref); err != nil {
		s.errorHandler.HandleCoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pref)
}

// decodeBody decodes a JSON request body into dest. An empty body leaves
// dest zero-valued.
func decodeBody(r *http.Request, dest any) error {
	err := json.NewDecoder(r.Body).Decode(dest)
	if err == io.EOF {
		return nil
	}
	return err
}
