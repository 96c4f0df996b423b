package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// embeddingResponse represents the response from the embedding server
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// EmbedderClient computes face signatures through the inference server.
type EmbedderClient struct {
	transport
	dim int
}

// NewEmbedderClient creates an embedder client. A positive dim makes Embed
// reject signatures of any other length.
func NewEmbedderClient(baseURL string, timeout time.Duration, dim int) *EmbedderClient {
	return &EmbedderClient{transport: newTransport(baseURL, timeout), dim: dim}
}

// Embed encodes a normalized face crop as JPEG and returns its signature.
func (c *EmbedderClient) Embed(ctx context.Context, face image.Image) ([]float32, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, face, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode face crop: %w", err)
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", buf.Bytes())
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if embResp.Dim > 0 && embResp.Dim != len(embResp.Embedding) {
		return nil, fmt.Errorf("embedding reports dim %d but has %d values", embResp.Dim, len(embResp.Embedding))
	}
	if c.dim > 0 && len(embResp.Embedding) != c.dim {
		return nil, fmt.Errorf("embedding has %d values, expected %d", len(embResp.Embedding), c.dim)
	}

	return embResp.Embedding, nil
}
