package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/database"
)

func TestAttendanceHandler_Mark_Success(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := &fakeService{result: &attendance.Result{
		Entries: []database.AttendanceEntry{
			{ID: 1, Name: "bob", Timestamp: now},
			{ID: 2, Name: "Unknown", Timestamp: now},
		},
		Faces: []attendance.FaceResult{
			{Region: database.FaceRegion{X1: 1, Y1: 2, X2: 3, Y2: 4}, Label: "bob", Identified: true, Similarity: 0.91},
			{Region: database.FaceRegion{X1: 5, Y1: 6, X2: 7, Y2: 8}, Label: "Unknown"},
		},
		Annotated: image.NewRGBA(image.Rect(0, 0, 32, 24)),
	}}
	handler := NewAttendanceHandler(svc, nil)

	req := httptest.NewRequest("POST", "/api/v1/attendance", bytes.NewReader([]byte("group photo")))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if string(svc.markImage) != "group photo" {
		t.Errorf("expected raw body to be passed through, got %q", svc.markImage)
	}

	var got MarkResponse
	parseJSONResponse(t, recorder, &got)
	if len(got.Entries) != 2 || got.Entries[0].Name != "bob" || got.Entries[1].Name != "Unknown" {
		t.Errorf("unexpected entries %+v", got.Entries)
	}
	if len(got.Faces) != 2 || got.Faces[0].Label != "bob" || got.Faces[0].Similarity != 0.91 {
		t.Errorf("unexpected faces %+v", got.Faces)
	}

	raw, err := base64.StdEncoding.DecodeString(got.AnnotatedImage)
	if err != nil {
		t.Fatalf("annotated image is not base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("annotated image is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("unexpected annotated image size %v", img.Bounds())
	}
}

func TestAttendanceHandler_Mark_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid image", attendance.ErrInvalidImage, http.StatusBadRequest},
		{"correlation", &database.CorrelationError{Stage: "crops", Want: 2, Got: 1}, http.StatusUnprocessableEntity},
		{"storage", database.NewStorageError("record attendance", errors.New("locked")), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAttendanceHandler(&fakeService{markErr: tc.err}, nil)

			req := httptest.NewRequest("POST", "/api/v1/attendance", bytes.NewReader([]byte("img")))
			recorder := httptest.NewRecorder()

			handler.Mark(recorder, req)

			assertStatusCode(t, recorder, tc.status)
		})
	}
}

func TestAttendanceHandler_Mark_EmptyBody(t *testing.T) {
	svc := &fakeService{}
	handler := NewAttendanceHandler(svc, nil)

	recorder := httptest.NewRecorder()
	handler.Mark(recorder, httptest.NewRequest("POST", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errEmptyBody)
	if svc.markImage != nil {
		t.Error("service must not be called without an image")
	}
}

func TestAttendanceHandler_History(t *testing.T) {
	svc := &fakeService{history: []database.AttendanceEntry{
		{ID: 2, Name: "bob", Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{ID: 1, Name: "alice", Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
	handler := NewAttendanceHandler(svc, nil)

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest("GET", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var got []database.AttendanceEntry
	parseJSONResponse(t, recorder, &got)
	if len(got) != 2 || got[0].Name != "bob" || got[1].Name != "alice" {
		t.Errorf("expected history order to be kept, got %+v", got)
	}
}

func TestAttendanceHandler_History_Empty(t *testing.T) {
	handler := NewAttendanceHandler(&fakeService{}, nil)

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest("GET", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if recorder.Body.String() != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", recorder.Body.String())
	}
}

func TestAttendanceHandler_Clear(t *testing.T) {
	handler := NewAttendanceHandler(&fakeService{cleared: 5}, nil)

	recorder := httptest.NewRecorder()
	handler.Clear(recorder, httptest.NewRequest("DELETE", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var got map[string]int64
	parseJSONResponse(t, recorder, &got)
	if got["deleted"] != 5 {
		t.Errorf("expected deleted=5, got %v", got)
	}
}

func TestAttendanceHandler_Clear_StorageError(t *testing.T) {
	handler := NewAttendanceHandler(&fakeService{clearErr: database.NewStorageError("clear", errors.New("locked"))}, nil)

	recorder := httptest.NewRecorder()
	handler.Clear(recorder, httptest.NewRequest("DELETE", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to clear attendance")
}
