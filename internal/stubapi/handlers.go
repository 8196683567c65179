package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/drills/internal/models"
)

// Response helpers

type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorBody{Detail: detail})
}

// exerciseFromRequest validates the path and resolves the exercise. It
// writes the error response and returns nil on failure.
func (s *Server) exerciseFromRequest(w http.ResponseWriter, r *http.Request) *Exercise {
	p := exerciseParams{
		Topic: chi.URLParam(r, "topic"),
		Name:  chi.URLParam(r, "name"),
	}
	if err := validateParams(s.validate, p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	ex := s.catalog.Get(p.Topic, p.Name)
	if ex == nil {
		respondError(w, http.StatusNotFound, "Exercise not found")
		return nil
	}
	return ex
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Catalog handlers

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Categories())
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stats.Summaries(s.catalog.Topics()))
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex := s.exerciseFromRequest(w, r)
	if ex == nil {
		return
	}
	respondJSON(w, http.StatusOK, models.ExerciseDetail{Code: ex.Code})
}

// Run handlers

func (s *Server) handleRunExercise(w http.ResponseWriter, r *http.Request) {
	ex := s.exerciseFromRequest(w, r)
	if ex == nil {
		return
	}

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}

	result := s.runner.Run(r.Context(), ex, req.Code)
	s.stats.RecordAttempt(ex.Topic, ex.Name, result.Passed)
	s.metrics.runs.WithLabelValues(strconv.FormatBool(result.Passed), string(result.ErrorType)).Inc()

	slog.Info("submission recorded",
		"topic", ex.Topic,
		"name", ex.Name,
		"passed", result.Passed,
		"error_type", result.ErrorType,
		"code_bytes", len(req.Code),
	)

	respondJSON(w, http.StatusOK, result)
}

// Stats handlers

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stats.All())
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	ex := s.exerciseFromRequest(w, r)
	if ex == nil {
		return
	}

	s.stats.Reset(ex.Topic, ex.Name)
	slog.Info("stats reset", "topic", ex.Topic, "name", ex.Name)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
