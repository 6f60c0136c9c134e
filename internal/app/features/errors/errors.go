// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/limits"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch apperr.Kind(err) {
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "invalid_target", "invalid_state", "conflict":
		return http.StatusConflict
	case "invalid_input":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error": kind, "message": text}. Errors that do
// not wrap an apperr sentinel are logged and answered with a generic 500 so
// driver details never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := Status(err)
	body := errorBody{Error: apperr.Kind(err), Message: apperr.Message(err)}
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
		}
		body.Message = "internal error"
	}
	WriteJSON(w, status, body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON request body of at most limits.MaxJSONBody bytes
// into dst. Malformed, oversized or empty bodies return apperr.ErrInvalidInput.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooBig):
			return fmt.Errorf("%w: request body too large", apperr.ErrInvalidInput)
		case stderrors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", apperr.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", apperr.ErrInvalidInput, err)
		}
	}
	return nil
}
