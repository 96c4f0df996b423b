package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

// faceDetection is one face in the detector response.
type faceDetection struct {
	BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore float64   `json:"det_score"`
}

// detectResponse represents the response from the face detection endpoint
type detectResponse struct {
	Faces []faceDetection `json:"faces"`
	Model string          `json:"model"`
}

// DetectorClient finds faces through the inference server.
type DetectorClient struct {
	transport
}

// NewDetectorClient creates a detector client; an empty baseURL uses localhost:8000.
func NewDetectorClient(baseURL string, timeout time.Duration) *DetectorClient {
	return &DetectorClient{transport: newTransport(baseURL, timeout)}
}

// Detect returns the face regions of an encoded image in detector order.
// An image without faces yields an empty slice and no error.
func (c *DetectorClient) Detect(ctx context.Context, imageData []byte) ([]database.FaceRegion, error) {
	body, err := c.postMultipartImage(ctx, "/detect/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	regions := make([]database.FaceRegion, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		if len(f.BBox) != 4 {
			return nil, fmt.Errorf("face %d: bbox has %d values, want 4", i, len(f.BBox))
		}
		regions = append(regions, database.FaceRegion{
			X1:         int(math.Round(f.BBox[0])),
			Y1:         int(math.Round(f.BBox[1])),
			X2:         int(math.Round(f.BBox[2])),
			Y2:         int(math.Round(f.BBox[3])),
			Confidence: f.DetScore,
		})
	}
	return regions, nil
}
