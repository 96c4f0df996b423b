package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/logging"
)

// StudentsHandler handles roster endpoints.
type StudentsHandler struct {
	service Service
	logger  *zap.Logger
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(service Service, logger *zap.Logger) *StudentsHandler {
	return &StudentsHandler{service: service, logger: logging.OrNop(logger)}
}

// StudentResponse is one roster entry.
type StudentResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Enroll registers the face in the request body under the name query parameter.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	data, ok := readImage(w, r)
	if !ok {
		return
	}

	identity, err := h.service.Enroll(r.Context(), name, data)
	if err != nil {
		respondServiceError(w, h.logger.With(zap.String("name", sanitizeForLog(name))), "failed to enroll student", err)
		return
	}

	respondJSON(w, http.StatusCreated, StudentResponse{
		ID:        identity.ID,
		Name:      identity.Name,
		CreatedAt: identity.CreatedAt,
	})
}

// List returns the roster in enrollment order.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.service.Students(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "failed to list students", err)
		return
	}

	out := make([]StudentResponse, len(identities))
	for i, id := range identities {
		out[i] = StudentResponse{ID: id.ID, Name: id.Name, CreatedAt: id.CreatedAt}
	}
	respondJSON(w, http.StatusOK, out)
}
