// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultMatchThreshold is the minimum cosine similarity a candidate must
	// strictly exceed to be accepted as a match
	DefaultMatchThreshold = 0.5

	// UnknownName is the label recorded for faces that match no enrolled identity
	UnknownName = "Unknown"

	// IndexSearchK is the number of candidates requested from the HNSW index
	// before exact re-scoring
	IndexSearchK = 8
)

// Face processing constants
const (
	// FaceSize is the edge length in pixels of the square crop fed to the embedder
	FaceSize = 160

	// DefaultSignatureDim is the expected dimension of face signatures
	DefaultSignatureDim = 512

	// MaxImageBytes is the maximum accepted image upload size
	MaxImageBytes = 20 << 20
)

// Annotation constants
const (
	// LabelOffset is the vertical distance between a box's top edge and its label baseline
	LabelOffset = 10
)
