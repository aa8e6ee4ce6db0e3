package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/storylines/internal/engine"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

// errorWriter maps errors to the API error shape. Messages of 500s are hidden in production.
type errorWriter struct {
	log        *slog.Logger
	production bool
}

func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var verr *engine.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrCharacterNotFound), errors.Is(err, engine.ErrSceneNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrSceneMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrTurnInProgress), errors.Is(err, engine.ErrStaleScene), errors.Is(err, engine.ErrGameOver):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrRequirementNotMet):
		status = http.StatusUnprocessableEntity
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		ew.log.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		if ew.production {
			message = "Internal Server Error"
		}
	} else {
		ew.log.Debug("Request rejected", "error", err, "status", status, "path", r.URL.Path)
	}
	ew.message(w, r, status, message)
}

func (ew errorWriter) message(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, ew.log, status, ErrorResponse{Error: ErrorBody{
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
	}})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}
