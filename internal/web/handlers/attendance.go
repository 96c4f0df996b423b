package handlers

import (
	"encoding/base64"
	"net/http"

	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/imaging"
	"github.com/kozaktomas/rollcall/internal/logging"
)

const annotatedJPEGQuality = 90

// AttendanceHandler handles recognition and ledger endpoints.
type AttendanceHandler struct {
	service Service
	logger  *zap.Logger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(service Service, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: service, logger: logging.OrNop(logger)}
}

// MarkResponse is the outcome of one recognition request.
type MarkResponse struct {
	Entries        []database.AttendanceEntry `json:"entries"`
	Faces          []attendance.FaceResult    `json:"faces"`
	AnnotatedImage string                     `json:"annotated_image,omitempty"` // base64 JPEG
}

// Mark recognizes every face in the request body and records attendance.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	data, ok := readImage(w, r)
	if !ok {
		return
	}

	result, err := h.service.MarkAttendance(r.Context(), data)
	if err != nil {
		respondServiceError(w, h.logger, "failed to mark attendance", err)
		return
	}

	resp := MarkResponse{Entries: result.Entries, Faces: result.Faces}
	if result.Annotated != nil {
		jpg, err := imaging.EncodeJPEG(result.Annotated, annotatedJPEGQuality)
		if err != nil {
			// attendance is already recorded; the image is a convenience
			h.logger.Warn("Failed to encode annotated image", zap.Error(err))
		} else {
			resp.AnnotatedImage = base64.StdEncoding.EncodeToString(jpg)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// History returns every ledger entry, newest first.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "failed to get attendance history", err)
		return
	}
	if entries == nil {
		entries = []database.AttendanceEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// Clear deletes the whole ledger.
func (h *AttendanceHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Clear(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "failed to clear attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
