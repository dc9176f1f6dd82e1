package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"markestedt/keydrip/config"
)

// handleConfig handles GET and PUT requests for configuration
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetConfig(w, r)
	case http.MethodPut:
		s.handlePutConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetConfig returns the current configuration
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.commander.ConfigSnapshot()

	resp := struct {
		Hotkey       string `json:"hotkey"`
		BaseDelayMs  int    `json:"baseDelayMs"`
		Jitter       bool   `json:"jitter"`
		JitterMinMs  int    `json:"jitterMinMs"`
		JitterMaxMs  int    `json:"jitterMaxMs"`
		StartDelayMs int    `json:"startDelayMs"`
		WebPort      int    `json:"webPort"`
	}{
		Hotkey:       cfg.Hotkey.Combo,
		BaseDelayMs:  cfg.Typing.BaseDelayMs,
		Jitter:       cfg.Typing.Jitter,
		JitterMinMs:  cfg.Typing.JitterMinMs,
		JitterMaxMs:  cfg.Typing.JitterMaxMs,
		StartDelayMs: cfg.Typing.StartDelayMs,
		WebPort:      cfg.Web.Port,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handlePutConfig updates the configuration
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hotkey       *string `json:"hotkey"`
		BaseDelayMs  *int    `json:"baseDelayMs"`
		Jitter       *bool   `json:"jitter"`
		JitterMinMs  *int    `json:"jitterMinMs"`
		JitterMaxMs  *int    `json:"jitterMaxMs"`
		StartDelayMs *int    `json:"startDelayMs"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Hotkey changes go through validation and rebinding; an invalid
	// combo keeps the prior binding and rejects the whole update.
	if req.Hotkey != nil {
		if _, err := s.commander.SetHotkey(*req.Hotkey); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	err := s.commander.UpdateConfig(func(cfg *config.Config) {
		if req.BaseDelayMs != nil && *req.BaseDelayMs >= 0 {
			cfg.Typing.BaseDelayMs = *req.BaseDelayMs
		}
		if req.Jitter != nil {
			cfg.Typing.Jitter = *req.Jitter
		}
		if req.JitterMinMs != nil && *req.JitterMinMs >= 0 {
			cfg.Typing.JitterMinMs = *req.JitterMinMs
		}
		if req.JitterMaxMs != nil && *req.JitterMaxMs >= 0 {
			cfg.Typing.JitterMaxMs = *req.JitterMaxMs
		}
		if req.StartDelayMs != nil && *req.StartDelayMs >= 0 {
			cfg.Typing.StartDelayMs = *req.StartDelayMs
		}
	})
	if err != nil {
		slog.Error("Failed to save config", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// handleStatus returns the current controller status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.commander.Status())
}

// handleSession dispatches session commands: start, pause, resume, stop
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/session/")

	var cmdErr error
	switch action {
	case "start", "stage":
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if action == "stage" {
			s.commander.StageText(req.Text)
			break
		}
		cmdErr = s.commander.StartTyping(req.Text)
	case "pause":
		s.commander.PauseTyping()
	case "resume":
		cmdErr = s.commander.ResumeTyping()
	case "stop":
		s.commander.StopTyping()
	default:
		http.Error(w, "Unknown session action", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if cmdErr != nil {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": cmdErr.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// handleHistory handles GET and DELETE requests for run history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated run history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 50 // default
	offset := 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	runs, err := s.db.GetRuns(limit, offset)
	if err != nil {
		slog.Error("Failed to get runs", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetRunCount()
	if err != nil {
		slog.Error("Failed to get run count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"runs":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleDeleteHistory deletes a run by ID
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	// Extract ID from path (e.g., /api/history/123)
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 4 {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	idStr := parts[len(parts)-1]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeleteRun(id); err != nil {
		slog.Error("Failed to delete run", "error", err, "id", id)
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	daysStr := r.URL.Query().Get("days")
	days := 7 // default to 7 days
	if daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"overall": overall,
		"daily":   daily,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
