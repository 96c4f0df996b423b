package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFaceDetected is returned when the detector finds no face. It is an
	// expected outcome: enrollment rejects it, recognition records nothing.
	ErrNoFaceDetected = errors.New("no face detected, please upload a valid face image")

	// ErrDegenerateSignature marks an empty or zero-norm signature.
	ErrDegenerateSignature = errors.New("degenerate signature")

	// ErrDuplicateIdentity is returned when enrolling a name that already exists.
	ErrDuplicateIdentity = errors.New("identity already enrolled")

	// ErrInvalidName is returned for blank identity names.
	ErrInvalidName = errors.New("invalid identity name")

	// ErrSignatureNotFound is returned when a signature reference has no stored vector.
	ErrSignatureNotFound = errors.New("signature not found")

	// ErrEntryNotFound is returned when the ledger has no entry for a name.
	ErrEntryNotFound = errors.New("attendance entry not found")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage error")

	// ErrCorrelation matches every *CorrelationError via errors.Is.
	ErrCorrelation = errors.New("correlation error")
)

// StorageError wraps a failure of the roster, the signature store or the ledger.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports true for ErrStorage so callers can classify without errors.As.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err, or returns nil when err is nil. An error that is
// already a StorageError is returned unchanged.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// CorrelationError reports a count mismatch between two per-face sequences of one image.
type CorrelationError struct {
	Stage string // e.g. "crops", "signatures", "results"
	Want  int
	Got   int
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("correlation: %s count %d does not match %d detected regions", e.Stage, e.Got, e.Want)
}

// Is reports true for ErrCorrelation.
func (e *CorrelationError) Is(target error) bool { return target == ErrCorrelation }

// ErrDimensionMismatch is returned when two signatures have different lengths.
var ErrDimensionMismatch = errors.New("signature dimension mismatch")
