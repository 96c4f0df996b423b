// Package attendance runs enrollment and recognition end to end: detect faces,
// crop them, compute signatures, match them against the roster and record the
// outcome in the ledger.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/imaging"
	"github.com/kozaktomas/rollcall/internal/logging"
)

// ErrInvalidImage is returned when an upload cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// Detector finds face regions in an encoded image.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]database.FaceRegion, error)
}

// Cropper produces one normalized face image per region, in region order.
type Cropper interface {
	Extract(img image.Image, regions []database.FaceRegion) ([]image.Image, error)
}

// Embedder turns a normalized face image into a signature.
type Embedder interface {
	Embed(ctx context.Context, face image.Image) ([]float32, error)
}

// Matcher resolves a signature to an identity.
type Matcher interface {
	Match(ctx context.Context, query []float32) (database.MatchResult, error)
}

// Renderer draws annotations onto an image.
type Renderer interface {
	Render(img image.Image, anns []facematch.Annotation) image.Image
}

// Deps are the collaborators of a Service. Metrics and Logger are optional.
type Deps struct {
	Detector   Detector
	Cropper    Cropper
	Embedder   Embedder
	Matcher    Matcher
	Renderer   Renderer
	Roster     database.RosterWriter
	Ledger     database.Ledger
	Signatures database.SignatureStore
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Service is the enrollment and recognition pipeline.
type Service struct {
	detector   Detector
	cropper    Cropper
	embedder   Embedder
	matcher    Matcher
	renderer   Renderer
	roster     database.RosterWriter
	ledger     database.Ledger
	signatures database.SignatureStore
	metrics    *Metrics
	logger     *zap.Logger
}

// NewService checks that every required collaborator is present.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Detector == nil:
		return nil, errors.New("attendance: detector is required")
	case d.Cropper == nil:
		return nil, errors.New("attendance: cropper is required")
	case d.Embedder == nil:
		return nil, errors.New("attendance: embedder is required")
	case d.Matcher == nil:
		return nil, errors.New("attendance: matcher is required")
	case d.Renderer == nil:
		return nil, errors.New("attendance: renderer is required")
	case d.Roster == nil:
		return nil, errors.New("attendance: roster is required")
	case d.Ledger == nil:
		return nil, errors.New("attendance: ledger is required")
	case d.Signatures == nil:
		return nil, errors.New("attendance: signature store is required")
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}
	return &Service{
		detector:   d.Detector,
		cropper:    d.Cropper,
		embedder:   d.Embedder,
		matcher:    d.Matcher,
		renderer:   d.Renderer,
		roster:     d.Roster,
		ledger:     d.Ledger,
		signatures: d.Signatures,
		metrics:    metrics,
		logger:     logging.OrNop(d.Logger),
	}, nil
}

// FaceResult describes one recognized face of a marked image.
type FaceResult struct {
	Region       database.FaceRegion `json:"region"`
	RelativeBBox []float64           `json:"bbox_relative"`
	Label        string              `json:"label"`
	Identified   bool                `json:"identified"`
	Similarity   float64             `json:"similarity"`
}

// Result is the outcome of marking attendance from one image.
type Result struct {
	Entries   []database.AttendanceEntry `json:"entries"`
	Faces     []FaceResult               `json:"faces"`
	Annotated image.Image                `json:"-"`
}

// Enroll registers name with the signature of the first face found in image.
// Nothing is stored unless every step succeeds.
func (s *Service) Enroll(ctx context.Context, name string, imageData []byte) (database.Identity, error) {
	identity, err := s.enroll(ctx, name, imageData)
	switch {
	case err == nil:
		s.metrics.RecordEnrollment("success")
	case errors.Is(err, database.ErrNoFaceDetected):
		s.metrics.RecordEnrollment("no_face")
	case errors.Is(err, database.ErrDuplicateIdentity):
		s.metrics.RecordEnrollment("duplicate")
	default:
		s.metrics.RecordEnrollment("error")
	}
	return identity, err
}

func (s *Service) enroll(ctx context.Context, name string, imageData []byte) (database.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Identity{}, database.ErrInvalidName
	}
	if facematch.IsReservedName(name) {
		return database.Identity{}, fmt.Errorf("enroll %q: name is reserved: %w", name, database.ErrInvalidName)
	}

	existing, err := s.roster.GetByName(ctx, name)
	if err != nil {
		return database.Identity{}, database.NewStorageError("look up student", err)
	}
	if existing != nil {
		return database.Identity{}, fmt.Errorf("enroll %q: %w", name, database.ErrDuplicateIdentity)
	}

	img, regions, err := s.detect(ctx, "enroll", imageData)
	if err != nil {
		return database.Identity{}, err
	}
	if len(regions) == 0 {
		return database.Identity{}, database.ErrNoFaceDetected
	}
	if len(regions) > 1 {
		s.logger.Info("Multiple faces in enrollment image, using the first",
			zap.String("name", name),
			zap.Int("faces", len(regions)))
	}

	crops, err := s.cropper.Extract(img, regions[:1])
	if err != nil {
		return database.Identity{}, fmt.Errorf("crop face: %w", err)
	}
	if len(crops) != 1 {
		return database.Identity{}, &database.CorrelationError{Stage: "crops", Want: 1, Got: len(crops)}
	}

	sig, err := s.embed(ctx, crops[0])
	if err != nil {
		return database.Identity{}, err
	}
	if database.IsDegenerate(sig) {
		return database.Identity{}, fmt.Errorf("enroll %q: %w", name, database.ErrDegenerateSignature)
	}

	ref, err := s.signatures.Save(ctx, sig)
	if err != nil {
		return database.Identity{}, database.NewStorageError("save signature", err)
	}

	identity, err := s.roster.Insert(ctx, name, ref)
	if err != nil {
		if delErr := s.signatures.Delete(ctx, ref); delErr != nil {
			s.logger.Warn("Failed to remove orphaned signature",
				zap.String("ref", ref),
				zap.Error(delErr))
		}
		if errors.Is(err, database.ErrDuplicateIdentity) || errors.Is(err, database.ErrInvalidName) {
			return database.Identity{}, err
		}
		return database.Identity{}, database.NewStorageError("insert student", err)
	}

	s.logger.Info("Enrolled student",
		zap.Int64("id", identity.ID),
		zap.String("name", identity.Name),
		zap.Int("dim", len(sig)))
	return identity, nil
}

// MarkAttendance recognizes every face in image and records one ledger entry
// per face, unknown faces included. Any failure before the ledger write leaves
// the ledger untouched. An image without faces records nothing and is not an
// error.
func (s *Service) MarkAttendance(ctx context.Context, imageData []byte) (*Result, error) {
	img, regions, err := s.detect(ctx, "mark", imageData)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		s.logger.Info("No faces detected, nothing recorded")
		return &Result{
			Entries:   []database.AttendanceEntry{},
			Faces:     []FaceResult{},
			Annotated: s.renderer.Render(img, nil),
		}, nil
	}

	crops, err := s.cropper.Extract(img, regions)
	if err != nil {
		return nil, fmt.Errorf("crop faces: %w", err)
	}
	faces, err := facematch.Correlate(regions, crops)
	if err != nil {
		return nil, err
	}

	sigs := make([][]float32, 0, len(faces))
	for _, f := range faces {
		sig, err := s.embed(ctx, f.Crop)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", f.Index, err)
		}
		sigs = append(sigs, sig)
	}
	if err := facematch.AttachSignatures(faces, sigs); err != nil {
		return nil, err
	}

	results, err := s.matchAll(ctx, faces)
	if err != nil {
		return nil, err
	}
	if err := facematch.AttachResults(faces, results); err != nil {
		return nil, err
	}

	names, err := facematch.ResolvedNames(faces)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	entries, err := s.ledger.RecordBatch(ctx, names)
	s.metrics.ObserveStage("record", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordLedgerWrite("error")
		return nil, database.NewStorageError("record attendance", err)
	}
	s.metrics.RecordLedgerWrite("success")

	anns, err := facematch.Annotate(faces)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	out := make([]FaceResult, len(faces))
	for i, f := range faces {
		out[i] = FaceResult{
			Region:       f.Region,
			RelativeBBox: facematch.ConvertPixelBBoxToRelative(f.Region.BBox(), bounds.Dx(), bounds.Dy()),
			Label:        f.Result.Name,
			Identified:   f.Result.Identified,
			Similarity:   f.Result.Similarity,
		}
	}

	s.logger.Info("Marked attendance",
		zap.Int("faces", len(faces)),
		zap.Strings("names", names))
	return &Result{
		Entries:   entries,
		Faces:     out,
		Annotated: s.renderer.Render(img, anns),
	}, nil
}

func (s *Service) matchAll(ctx context.Context, faces []facematch.Face) ([]database.MatchResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStage("match", time.Since(start).Seconds()) }()

	results := make([]database.MatchResult, 0, len(faces))
	for _, f := range faces {
		res, err := s.matcher.Match(ctx, f.Signature)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", f.Index, err)
		}
		s.metrics.RecordMatch(res.Identified)
		results = append(results, res)
	}
	return results, nil
}

// detect decodes the upload and runs the detector on it.
func (s *Service) detect(ctx context.Context, operation string, imageData []byte) (image.Image, []database.FaceRegion, error) {
	img, _, err := imaging.Decode(imageData)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	start := time.Now()
	regions, err := s.detector.Detect(ctx, imageData)
	s.metrics.ObserveStage("detect", time.Since(start).Seconds())
	if err != nil {
		return nil, nil, fmt.Errorf("detect faces: %w", err)
	}
	s.metrics.RecordFacesDetected(operation, len(regions))
	return img, regions, nil
}

func (s *Service) embed(ctx context.Context, face image.Image) ([]float32, error) {
	start := time.Now()
	sig, err := s.embedder.Embed(ctx, face)
	s.metrics.ObserveStage("embed", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("compute signature: %w", err)
	}
	return sig, nil
}

// Students returns the roster in enrollment order.
func (s *Service) Students(ctx context.Context) ([]database.Identity, error) {
	ids, err := s.roster.ListAll(ctx)
	if err != nil {
		return nil, database.NewStorageError("list students", err)
	}
	return ids, nil
}

// History returns every attendance entry, newest first.
func (s *Service) History(ctx context.Context) ([]database.AttendanceEntry, error) {
	entries, err := s.ledger.History(ctx)
	if err != nil {
		return nil, database.NewStorageError("list attendance", err)
	}
	return entries, nil
}

// Clear deletes the whole attendance history.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	n, err := s.ledger.Clear(ctx)
	if err != nil {
		return 0, database.NewStorageError("clear attendance", err)
	}
	s.logger.Info("Cleared attendance history", zap.Int64("deleted", n))
	return n, nil
}

// EntryFor returns the newest entry for name.
func (s *Service) EntryFor(ctx context.Context, name string) (database.AttendanceEntry, error) {
	e, err := s.ledger.EntryFor(ctx, name)
	if err != nil && !errors.Is(err, database.ErrEntryNotFound) {
		return database.AttendanceEntry{}, database.NewStorageError("get attendance entry", err)
	}
	return e, err
}
