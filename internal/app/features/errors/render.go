// internal/app/features/errors/render.go
package errors

import (
	"net/http"
)

// Handler serves the router's fallback responses.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "no route for " + r.URL.Path})
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: r.Method + " is not supported here"})
}
