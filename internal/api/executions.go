package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-iot/internal/history"
)

// handleListExecutions returns recent program executions, newest first.
//
// Query parameters:
//   - status: running, succeeded or failed
//   - limit: page size (default 50, maximum 200)
//   - offset: rows to skip
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "execution history is disabled")
		return
	}

	filter := history.Filter{Status: history.Status(r.URL.Query().Get("status"))}
	switch filter.Status {
	case "", history.StatusRunning, history.StatusSucceeded, history.StatusFailed:
	default:
		writeBadRequest(w, "invalid status filter")
		return
	}

	var err error
	if filter.Limit, err = intParam(r, "limit"); err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(r, "offset"); err != nil {
		writeBadRequest(w, "invalid offset")
		return
	}

	execs, err := s.history.ListExecutions(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing executions failed", "error", err)
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": execs, "count": len(execs)})
}

// handleGetExecution returns one execution with its dispatch records.
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "execution history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	exec, err := s.history.GetExecution(r.Context(), id)
	if errors.Is(err, history.ErrExecutionNotFound) {
		writeNotFound(w, "execution not found")
		return
	}
	if err != nil {
		s.logger.Error("loading execution failed", "execution_id", id, "error", err)
		writeInternalError(w, "failed to load execution")
		return
	}

	dispatches, err := s.history.ListDispatches(r.Context(), id)
	if err != nil {
		s.logger.Error("loading dispatches failed", "execution_id", id, "error", err)
		writeInternalError(w, "failed to load execution")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"execution":  exec,
		"dispatches": dispatches,
	})
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
