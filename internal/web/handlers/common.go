package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
)

// Service is the attendance pipeline exposed over HTTP.
type Service interface {
	Enroll(ctx context.Context, name string, imageData []byte) (database.Identity, error)
	MarkAttendance(ctx context.Context, imageData []byte) (*attendance.Result, error)
	Students(ctx context.Context) ([]database.Identity, error)
	History(ctx context.Context) ([]database.AttendanceEntry, error)
	Clear(ctx context.Context) (int64, error)
}

// errEmptyBody is returned when a request carries no image.
const errEmptyBody = "request body must contain an image"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// readImage reads the raw image body. It writes the error response itself and
// returns false when the body is empty or too large.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxImageBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if len(data) > constants.MaxImageBytes {
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image exceeds %d bytes", constants.MaxImageBytes))
		return nil, false
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, errEmptyBody)
		return nil, false
	}
	return data, true
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrInvalidName), errors.Is(err, attendance.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, database.ErrNoFaceDetected),
		errors.Is(err, database.ErrCorrelation),
		errors.Is(err, database.ErrDegenerateSignature):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError logs err and sends it with the mapped status. Server
// errors get a generic message; the details stay in the log.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(message, zap.Error(err))
		respondError(w, status, message)
		return
	}
	logger.Info(message, zap.Int("status", status), zap.Error(err))
	respondError(w, status, err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
