package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-iot/internal/devices"
	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes. Dispatch failures use the iot error kinds as codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "unavailable"

	// ErrCodeInvalidPayload marks a command the device refused because of
	// its payload, e.g. play_song without a song.
	ErrCodeInvalidPayload = "invalid_payload"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDispatchError writes a dispatch failure using its error kind as code.
// Payload rejections answer 422 with code invalid_payload.
func writeDispatchError(w http.ResponseWriter, err error) {
	if isPayloadError(err) {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeInvalidPayload, err.Error())
		return
	}
	kind := iot.ErrorKind(err)
	writeError(w, statusForKind(kind), kind, err.Error())
}

// statusForError maps a dispatch or program failure to an HTTP status.
func statusForError(err error) int {
	if isPayloadError(err) {
		return http.StatusUnprocessableEntity
	}
	return statusForKind(iot.ErrorKind(err))
}

func isPayloadError(err error) bool {
	return errors.Is(err, devices.ErrInvalidPayload)
}

// statusForKind maps an iot error kind to an HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case iot.KindUnknownDevice:
		return http.StatusNotFound
	case iot.KindUnsupportedCommand:
		return http.StatusUnprocessableEntity
	case iot.KindDeviceExecution:
		return http.StatusBadGateway
	case iot.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
