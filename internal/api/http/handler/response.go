package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/model"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// WriteJSON writes a successful envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteError classifies err and writes a failed envelope. Only
// *apierror.APIError messages reach the client.
func WriteError(w http.ResponseWriter, logger *logger.Logger, err error) {
	apiErr := handleError(err)
	if apiErr.Kind == apierror.KindInternal {
		logger.Error("HTTP handler: internal error", "error", err.Error())
	}
	writeEnvelope(w, apiErr.Status, Envelope{Success: false, Message: apiErr.Message, Data: apiErr.Details})
}

func handleError(err error) *apierror.APIError {
	if apiErr, ok := apierror.As(err); ok {
		if apiErr.Kind == apierror.KindInternal {
			return apierror.NewErrInternalServerError(nil)
		}
		return apiErr
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return apierror.NewErrNotFound("resource")
	default:
		return apierror.NewErrInternalServerError(nil)
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteJSONError writes a failed envelope with a fixed status and message.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, Envelope{Success: false, Message: message})
}
