package database

import (
	"time"
)

// Identity is an enrolled person. Names are unique under facematch.NormalizePersonName.
type Identity struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SignatureRef string    `json:"-"` // opaque key into a SignatureStore
	CreatedAt    time.Time `json:"created_at"`
}

// AttendanceEntry is one recognition event. Timestamp is assigned by the ledger.
type AttendanceEntry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"date"`
}

// FaceRegion is a detected face bounding box in source image pixels.
type FaceRegion struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Width returns the region width in pixels.
func (r FaceRegion) Width() int { return r.X2 - r.X1 }

// Height returns the region height in pixels.
func (r FaceRegion) Height() int { return r.Y2 - r.Y1 }

// BBox returns the region as [x1, y1, x2, y2].
func (r FaceRegion) BBox() []float64 {
	return []float64{float64(r.X1), float64(r.Y1), float64(r.X2), float64(r.Y2)}
}

// MatchResult is the outcome of matching one signature against the roster.
// An unknown result has Identified=false and Name set to the unknown token.
type MatchResult struct {
	Identified bool    `json:"identified"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}
