package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sky-sprint/internal/leaderboard"
	"sky-sprint/internal/levels"
	"sky-sprint/internal/store"
)

// Handler methods for routerHandlers. Used by both the standalone router
// (for tests) and the full Server.

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, levels.All())
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	level := 0
	if raw := r.URL.Query().Get("level"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || !levels.Valid(parsed) {
			writeError(w, "invalid level", http.StatusBadRequest)
			return
		}
		level = parsed
	}

	rooms := h.store.FindAvailableRooms(level)
	writeJSON(w, map[string]interface{}{
		"rooms": rooms,
		"count": len(rooms),
	})
}

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Level  int    `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Name == "" {
		writeError(w, "userId and name are required", http.StatusBadRequest)
		return
	}
	if !levels.Valid(req.Level) {
		writeError(w, "invalid level", http.StatusBadRequest)
		return
	}

	roomID, err := h.store.CreateRoom(req.UserID, req.Name, req.Email, req.Level)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	room, err := h.store.GetRoom(roomID)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, room)
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.store.GetRoom(chi.URLParam(r, "roomID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, room)
}

func (h *routerHandlers) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Name == "" {
		writeError(w, "userId and name are required", http.StatusBadRequest)
		return
	}

	if err := h.store.JoinRoom(roomID, req.UserID, req.Name, req.Email); err != nil {
		writeStoreError(w, err)
		return
	}

	room, err := h.store.GetRoom(roomID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, room)
}

func (h *routerHandlers) handleReady(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		UserID string `json:"userId"`
		Ready  *bool  `json:"ready"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "userId is required", http.StatusBadRequest)
		return
	}

	ready := true
	if req.Ready != nil {
		ready = *req.Ready
	}

	if err := h.store.SetPlayerReady(roomID, req.UserID, ready); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleStartGame(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	if err := h.store.StartGame(roomID); err != nil {
		writeStoreError(w, err)
		return
	}
	RecordMatchStarted()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "userId is required", http.StatusBadRequest)
		return
	}

	if err := h.store.LeaveRoom(roomID, req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var sub leaderboard.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.board.Submit(sub)
	if err != nil {
		RecordScoreSubmission("rejected")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	RecordScoreSubmission("accepted")
	writeJSON(w, result)
}

func (h *routerHandlers) handleTopScores(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("level")
	if raw == "" {
		writeJSON(w, h.board.AllTop())
		return
	}

	level, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, "invalid level", http.StatusBadRequest)
		return
	}
	rows, err := h.board.TopByLevel(level)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, rows)
}

func (h *routerHandlers) handleUserScores(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.URL.Query().Get("email")
	}
	if userID == "" {
		writeError(w, "userId or email is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.board.ByUser(userID))
}

// writeStoreError maps store sentinel errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRoomNotFound), errors.Is(err, store.ErrPlayerNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrRoomFull), errors.Is(err, store.ErrRoomStarted),
		errors.Is(err, store.ErrMatchFinished):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
