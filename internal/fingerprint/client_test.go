package fingerprint

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

// readUpload returns the "file" part of a multipart request.
func readUpload(t *testing.T, r *http.Request) ([]byte, string) {
	t.Helper()
	f, hdr, err := r.FormFile("file")
	if err != nil {
		t.Errorf("missing file part: %v", err)
		return nil, ""
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	return data, hdr.Header.Get("Content-Type")
}

func testFace() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 160, 160))
	for y := range 160 {
		for x := range 160 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0}

func TestDetect(t *testing.T) {
	payload := loadTestData(t, "detect_two_faces.json")
	mux := http.NewServeMux()
	mux.HandleFunc("/detect/face", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		data, ctype := readUpload(t, r)
		if len(data) != len(jpegHeader) {
			t.Errorf("uploaded %d bytes, want %d", len(data), len(jpegHeader))
		}
		if ctype != "image/jpeg" {
			t.Errorf("part Content-Type = %q, want image/jpeg", ctype)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	regions, err := NewDetectorClient(server.URL+"/", time.Second).Detect(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	want := []database.FaceRegion{
		{X1: 120, Y1: 81, X2: 220, Y2: 201, Confidence: 0.98},
		{X1: 400, Y1: 95, X2: 481, Y2: 190, Confidence: 0.91},
	}
	if len(regions) != len(want) {
		t.Fatalf("got %d regions, want %d", len(regions), len(want))
	}
	for i := range want {
		if regions[i] != want[i] {
			t.Errorf("region %d = %+v, want %+v", i, regions[i], want[i])
		}
	}
}

func TestDetect_NoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count":0,"faces":[]}`))
	}))
	defer server.Close()

	regions, err := NewDetectorClient(server.URL, time.Second).Detect(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("got %d regions, want 0", len(regions))
	}
}

func TestDetect_BadBBox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces":[{"bbox":[1,2,3],"det_score":0.9}]}`))
	}))
	defer server.Close()

	_, err := NewDetectorClient(server.URL, time.Second).Detect(context.Background(), jpegHeader)
	if err == nil || !strings.Contains(err.Error(), "bbox") {
		t.Errorf("expected bbox error, got %v", err)
	}
}

func TestDetect_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewDetectorClient(server.URL, time.Second).Detect(context.Background(), jpegHeader)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDetect_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewDetectorClient(server.URL, 50*time.Millisecond).Detect(context.Background(), jpegHeader)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		data, ctype := readUpload(t, r)
		if ctype != "image/jpeg" {
			t.Errorf("crop Content-Type = %q, want image/jpeg", ctype)
		}
		if _, _, err := image.Decode(strings.NewReader(string(data))); err != nil {
			t.Errorf("crop is not a decodable image: %v", err)
		}
		json.NewEncoder(w).Encode(embeddingResponse{Dim: 3, Embedding: []float32{0.1, 0.2, 0.3}, Model: "arcface"})
	}))
	defer server.Close()

	sig, err := NewEmbedderClient(server.URL, time.Second, 3).Embed(context.Background(), testFace())
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(sig) != 3 || sig[0] != 0.1 || sig[2] != 0.3 {
		t.Errorf("unexpected signature %v", sig)
	}
}

func TestEmbed_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		dim  int
		want string
	}{
		{"empty", `{"embedding":[],"dim":0}`, 0, "empty embedding"},
		{"dim header mismatch", `{"embedding":[1,2],"dim":3}`, 0, "reports dim 3"},
		{"unexpected dimension", `{"embedding":[1,2],"dim":2}`, 512, "expected 512"},
		{"malformed", `not json`, 0, "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewEmbedderClient(server.URL, time.Second, tt.dim).Embed(context.Background(), testFace())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("hello world"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTransport_Defaults(t *testing.T) {
	tr := newTransport("", time.Second)
	if tr.baseURL != defaultInferenceURL {
		t.Errorf("baseURL = %q, want %q", tr.baseURL, defaultInferenceURL)
	}
	if tr.client.Timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", tr.client.Timeout)
	}
}
