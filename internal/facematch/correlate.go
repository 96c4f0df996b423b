package facematch

import (
	"image"

	"github.com/kozaktomas/rollcall/internal/database"
)

// Face is everything known about one detected face of an image. The record is
// filled in stages (crop, signature, result) so the pieces can never drift apart.
type Face struct {
	Index     int // position in detector output
	Region    database.FaceRegion
	Crop      image.Image
	Signature []float32
	Result    database.MatchResult
	Resolved  bool
}

// Annotation is a drawing instruction for one face.
type Annotation struct {
	Region     database.FaceRegion `json:"region"`
	Label      string              `json:"label"`
	Identified bool                `json:"identified"`
}

// Correlate pairs every region with its crop by position. Mismatched counts
// fail with a *database.CorrelationError; nothing is truncated.
func Correlate(regions []database.FaceRegion, crops []image.Image) ([]Face, error) {
	if len(regions) != len(crops) {
		return nil, &database.CorrelationError{Stage: "crops", Want: len(regions), Got: len(crops)}
	}
	faces := make([]Face, len(regions))
	for i := range regions {
		faces[i] = Face{Index: i, Region: regions[i], Crop: crops[i]}
	}
	return faces, nil
}

// AttachSignatures stores one signature per face, by position.
func AttachSignatures(faces []Face, signatures [][]float32) error {
	if len(faces) != len(signatures) {
		return &database.CorrelationError{Stage: "signatures", Want: len(faces), Got: len(signatures)}
	}
	for i := range faces {
		faces[i].Signature = signatures[i]
	}
	return nil
}

// AttachResults stores one match result per face, by position.
func AttachResults(faces []Face, results []database.MatchResult) error {
	if len(faces) != len(results) {
		return &database.CorrelationError{Stage: "results", Want: len(faces), Got: len(results)}
	}
	for i := range faces {
		faces[i].Result = results[i]
		faces[i].Resolved = true
	}
	return nil
}

// Annotate returns one labeled box per face in detector order. Every face must
// be resolved.
func Annotate(faces []Face) ([]Annotation, error) {
	out := make([]Annotation, 0, len(faces))
	for _, f := range faces {
		if !f.Resolved {
			return nil, &database.CorrelationError{Stage: "results", Want: len(faces), Got: len(out)}
		}
		out = append(out, Annotation{
			Region:     f.Region,
			Label:      f.Result.Name,
			Identified: f.Result.Identified,
		})
	}
	return out, nil
}

// ResolvedNames returns the ledger names of resolved faces in detector order.
func ResolvedNames(faces []Face) ([]string, error) {
	names := make([]string, len(faces))
	for i, f := range faces {
		if !f.Resolved {
			return nil, &database.CorrelationError{Stage: "results", Want: len(faces), Got: i}
		}
		names[i] = f.Result.Name
	}
	return names, nil
}
