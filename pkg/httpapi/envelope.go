package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), envelope{Success: false, Message: err.Error()})
}

// statusForError maps domain error reasons onto HTTP status codes.
func statusForError(err error) int {
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound
	}
	switch errorsx.Reason(err) {
	case errorsx.ReasonSessionInvalidToken:
		return http.StatusUnauthorized
	case errorsx.ReasonSessionCompleted:
		return http.StatusForbidden
	case errorsx.ReasonSessionUnknownQuestion:
		return http.StatusBadRequest
	case errorsx.ReasonSessionIncomplete:
		return http.StatusConflict
	case errorsx.ReasonUpload, errorsx.ReasonTranscribeSubmit,
		errorsx.ReasonTranscribeStatus, errorsx.ReasonTranscribeProcessing:
		return http.StatusBadGateway
	case errorsx.ReasonPollingTimeout:
		return http.StatusGatewayTimeout
	case errorsx.ReasonStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
