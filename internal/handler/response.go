package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// error shape:
//
//	{"error": "validation_error", "message": "basePrice must be 0 or more", "field": "basePrice"}
//
// Export failures additionally carry "retryable": true.

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/storage"
	"github.com/sakif/servicecard/internal/store"
)

// maxBodyBytes bounds editor request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error     string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message   string `json:"message"`         // Human-readable description
	Field     string `json:"field,omitempty"` // Offending input field for validation errors
	Retryable bool   `json:"retryable,omitempty"`
}

// StateResponse is returned by every editing operation: the current card
// after the edit, the store version and the number of saved cards.
//
// Warning is set when the edit succeeded in memory but the saved cards could
// not be written to durable storage.
type StateResponse struct {
	Card       model.Card `json:"card"`
	Version    uint64     `json:"version"`
	SavedCount int        `json:"savedCount"`
	Warning    string     `json:"warning,omitempty"`
}

func stateResponse(st store.State) StateResponse {
	return StateResponse{Card: st.Current, Version: st.Version, SavedCount: len(st.Saved)}
}

// writeJSON sends a JSON response with the given status code. Headers must be
// set before WriteHeader; once the body starts they are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeState answers an editing operation. A PersistenceError alongside a
// valid state is not a failure of the edit: the card is kept in memory and
// the response carries a warning instead.
func writeState(w http.ResponseWriter, logger *slog.Logger, st store.State, err error) {
	if err != nil && !errors.Is(err, apperror.ErrPersistence) {
		writeError(w, logger, err)
		return
	}
	resp := stateResponse(st)
	if err != nil {
		resp.Warning = messageOf(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps a domain error to an HTTP status code. The service layer
// knows nothing about HTTP; this is the only place the mapping lives.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	resp := ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}
	status := http.StatusInternalServerError

	var appErr *apperror.AppError
	isApp := errors.As(err, &appErr)

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, resp.Error = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		status, resp.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrEmptyCard):
		status, resp.Error = http.StatusUnprocessableEntity, "empty_card"
	case errors.Is(err, apperror.ErrExportFailed):
		status, resp.Error = http.StatusInternalServerError, "export_failed"
		resp.Retryable = apperror.Retryable(err)
	case errors.Is(err, apperror.ErrPersistence):
		status, resp.Error = http.StatusServiceUnavailable, "persistence_error"
	case errors.Is(err, storage.ErrDisabled):
		status, resp.Error = http.StatusServiceUnavailable, "publishing_disabled"
		resp.Message = "Publishing is not configured on this server"
	}

	if isApp {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}

	// NEVER expose internal error details to the client: raw messages may
	// contain SQL or file paths. They go to the log instead.
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()), slog.Int("status", status))
	}
	writeJSON(w, status, resp)
}

func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected so a
// misspelled field does not silently do nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	present, err := decodeOptionalJSON(w, r, dst)
	if err != nil {
		return err
	}
	if !present {
		return apperror.ValidationFailed("body", "request body is required")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted.
// It reports whether a body was present.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) (bool, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return true, nil
}
