// Package signature stores face signatures as files on disk.
package signature

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kozaktomas/rollcall/internal/database"
)

const (
	fileExt       = ".sig"
	formatVersion = 1
)

// record is the on-disk form of one signature.
type record struct {
	Version int
	Dim     int
	Vector  []float32
}

// FileStore keeps one gob-encoded file per signature, named by a random uuid
// so display names never collide or overwrite each other.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("signature directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create signature dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes the signature atomically and returns its reference ("<uuid>.sig").
func (s *FileStore) Save(ctx context.Context, sig []float32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(sig) == 0 {
		return "", fmt.Errorf("save signature: %w", database.ErrDegenerateSignature)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record{Version: formatVersion, Dim: len(sig), Vector: sig}); err != nil {
		return "", fmt.Errorf("encode signature: %w", err)
	}

	ref := uuid.NewString() + fileExt
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp signature file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write signature: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close signature file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, ref)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename signature file: %w", err)
	}
	return ref, nil
}

// Load reads a signature by reference.
func (s *FileStore) Load(ctx context.Context, ref string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // ref is validated above
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", ref, database.ErrSignatureNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read signature %s: %w", ref, err)
	}

	var rec record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode signature %s: %w", ref, err)
	}
	if rec.Version != formatVersion {
		return nil, fmt.Errorf("signature %s: unsupported format version %d", ref, rec.Version)
	}
	if rec.Dim != len(rec.Vector) {
		return nil, fmt.Errorf("signature %s: header says %d dims, found %d", ref, rec.Dim, len(rec.Vector))
	}
	return rec.Vector, nil
}

// Delete removes a signature file. Missing files are ignored.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete signature %s: %w", ref, err)
	}
	return nil
}

// path resolves a reference, rejecting anything that is not a bare "<uuid>.sig".
func (s *FileStore) path(ref string) (string, error) {
	id, ok := strings.CutSuffix(ref, fileExt)
	if !ok || filepath.Base(ref) != ref {
		return "", fmt.Errorf("invalid signature reference %q", ref)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid signature reference %q: %w", ref, err)
	}
	return filepath.Join(s.dir, ref), nil
}

var _ database.SignatureStore = (*FileStore)(nil)
