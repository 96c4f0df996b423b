package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/database"
)

// fakeService records the last call and returns canned results.
type fakeService struct {
	enrollName  string
	enrollImage []byte
	identity    database.Identity
	enrollErr   error

	markImage []byte
	result    *attendance.Result
	markErr   error

	students    []database.Identity
	studentsErr error

	history    []database.AttendanceEntry
	historyErr error

	cleared  int64
	clearErr error
}

func (f *fakeService) Enroll(ctx context.Context, name string, imageData []byte) (database.Identity, error) {
	f.enrollName = name
	f.enrollImage = imageData
	return f.identity, f.enrollErr
}

func (f *fakeService) MarkAttendance(ctx context.Context, imageData []byte) (*attendance.Result, error) {
	f.markImage = imageData
	return f.result, f.markErr
}

func (f *fakeService) Students(ctx context.Context) ([]database.Identity, error) {
	return f.students, f.studentsErr
}

func (f *fakeService) History(ctx context.Context) ([]database.AttendanceEntry, error) {
	return f.history, f.historyErr
}

func (f *fakeService) Clear(ctx context.Context) (int64, error) {
	return f.cleared, f.clearErr
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
