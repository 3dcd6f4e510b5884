package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/flow"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/store"
)

const maxBodyBytes = 1 << 20

// ErrInvalidRequest marks malformed bodies and path parameters.
var ErrInvalidRequest = errors.New("invalid request")

// Pre-marshaled fallback so a marshal failure still yields a JSON body.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// marshal before touching headers so a failure can still change the status
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

func errorResponse(message string) models.APIResponse {
	return models.Error(message)
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, models.ErrStatusRegression),
		errors.Is(err, flow.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, flow.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrComposing):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the error envelope. Internal failures are not echoed.
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	resp := errorResponse(err.Error())
	if status == http.StatusInternalServerError {
		resp = errorResponse("Internal server error")
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		resp.Result = verr.Fields
	}
	writeJSONResponse(w, status, resp)
}

// decodeJSON reads a single JSON document from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", ErrInvalidRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", ErrInvalidRequest, err)
	}
	return nil
}
