package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/fingerprint"
	"github.com/kozaktomas/rollcall/internal/imaging"
	"github.com/kozaktomas/rollcall/internal/logging"
	"github.com/kozaktomas/rollcall/internal/signature"

	// Storage backends register themselves with database.RegisterBackend.
	_ "github.com/kozaktomas/rollcall/internal/database/mariadb"
	_ "github.com/kozaktomas/rollcall/internal/database/mock"
	_ "github.com/kozaktomas/rollcall/internal/database/postgres"
	_ "github.com/kozaktomas/rollcall/internal/database/sqlite"
)

// app holds everything a command needs to talk to the roster and ledger.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	backend  *database.Backend
	service  *attendance.Service
	registry *prometheus.Registry
}

// newApp loads configuration and opens the configured backend. registry may
// be nil when the command does not expose metrics.
func newApp(ctx context.Context, registry *prometheus.Registry) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	// backend migrations log through the global logger
	zap.ReplaceGlobals(logger)

	backend, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sigs := backend.Signatures
	if sigs == nil {
		fs, err := signature.NewFileStore(cfg.Signatures.Dir)
		if err != nil {
			backend.Close()
			return nil, err
		}
		sigs = fs
	}

	metrics, err := attendance.NewMetrics(registry)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	service, err := attendance.NewService(attendance.Deps{
		Detector:   fingerprint.NewDetectorClient(cfg.Inference.URL, cfg.Inference.Timeout),
		Cropper:    imaging.NewCropper(cfg.Inference.FaceSize),
		Embedder:   fingerprint.NewEmbedderClient(cfg.Inference.URL, cfg.Inference.Timeout, cfg.Signatures.Dim),
		Matcher:    newMatcher(cfg, backend.Roster, sigs, logger),
		Renderer:   imaging.NewRenderer(cfg.Annotation),
		Roster:     backend.Roster,
		Ledger:     backend.Ledger,
		Signatures: sigs,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger.Debug("Opened storage",
		zap.String("backend", cfg.Database.Backend),
		zap.String("signatures", cfg.Signatures.Store),
		zap.String("matcher", cfg.Match.Index),
		zap.Float64("threshold", cfg.Match.Threshold))

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		service:  service,
		registry: registry,
	}, nil
}

func newMatcher(cfg *config.Config, roster database.RosterReader, sigs database.SignatureStore, logger *zap.Logger) attendance.Matcher {
	if cfg.Match.Index == config.MatchIndexHNSW {
		return facematch.NewIndexedMatcher(roster, sigs, cfg.Match.Threshold, 0, logger)
	}
	return facematch.NewMatcher(roster, sigs, cfg.Match.Threshold, logger)
}

// Close releases the backend and flushes the logger.
func (a *app) Close() error {
	err := a.backend.Close()
	_ = a.logger.Sync()
	return err
}

// describeError turns pipeline errors into short user-facing messages.
func describeError(err error) error {
	switch {
	case errors.Is(err, database.ErrNoFaceDetected):
		return errors.New("no face detected in image")
	case errors.Is(err, database.ErrDuplicateIdentity):
		return fmt.Errorf("student already enrolled: %w", err)
	case errors.Is(err, attendance.ErrInvalidImage):
		return fmt.Errorf("could not read image: %w", err)
	}
	return err
}
