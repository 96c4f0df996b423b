package config

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/rollcall/internal/constants"
)

//go:embed annotation.yaml
var annotationYAML []byte

// Storage backends selectable through DATABASE_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
	BackendMemory   = "memory"
)

// Signature stores selectable through SIGNATURE_STORE.
const (
	SignatureStoreFile     = "file"
	SignatureStorePostgres = "postgres"
)

// Matchers selectable through MATCH_INDEX.
const (
	MatchIndexScan = "scan"
	MatchIndexHNSW = "hnsw"
)

type Config struct {
	Database   DatabaseConfig
	Signatures SignatureConfig
	Match      MatchConfig
	Inference  InferenceConfig
	Log        LogConfig
	Web        WebConfig
	Annotation AnnotationConfig
}

type DatabaseConfig struct {
	Backend      string // sqlite, postgres, mariadb or memory (default sqlite)
	URL          string // PostgreSQL connection URL or MariaDB DSN
	SQLitePath   string // SQLite database file (default ./data/rollcall.db)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type SignatureConfig struct {
	Store string // file or postgres (default file)
	Dir   string // Directory for file-backed signatures (default ./data/signatures)
	Dim   int    // Expected signature dimension (default 512)
}

type MatchConfig struct {
	Threshold float64 // Minimum cosine similarity to accept a match (default 0.5)
	Index     string  // scan or hnsw (default scan)
}

type InferenceConfig struct {
	URL      string        // Detector/embedder server, defaults to http://localhost:8000
	Timeout  time.Duration // Per-request timeout (default 30s)
	FaceSize int           // Crop edge length in pixels (default 160)
}

type LogConfig struct {
	Level  string // debug, info, warn, error (default info)
	Format string // console or json (default console)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS whitelist from WEB_ALLOWED_ORIGINS; localhost is always allowed
}

// AnnotationConfig is the drawing style for annotated output images.
type AnnotationConfig struct {
	Box struct {
		Color     string `yaml:"color"`
		Thickness int    `yaml:"thickness"`
	} `yaml:"box"`
	Label struct {
		Color  string `yaml:"color"`
		Offset int    `yaml:"offset"`
	} `yaml:"label"`
	Unknown struct {
		Color string `yaml:"color"`
	} `yaml:"unknown"`
}

// BoxColor returns the parsed box color.
func (a AnnotationConfig) BoxColor() color.RGBA {
	return parseHexColor(a.Box.Color, color.RGBA{G: 0xff, A: 0xff})
}

// LabelColor returns the parsed label color.
func (a AnnotationConfig) LabelColor() color.RGBA {
	return parseHexColor(a.Label.Color, color.RGBA{G: 0xff, A: 0xff})
}

// UnknownColor returns the color used for boxes of unrecognized faces.
func (a AnnotationConfig) UnknownColor() color.RGBA {
	return parseHexColor(a.Unknown.Color, a.BoxColor())
}

// parseHexColor parses "#rrggbb", falling back to def for anything else.
func parseHexColor(s string, def color.RGBA) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in the closed range [0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration ("30s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString returns the env var lowercased, or the default if unset.
func envString(key, defaultVal string) string {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	return strings.ToLower(s)
}

// envList splits a comma-separated env var, dropping blank items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var annotation AnnotationConfig
	if err := yaml.Unmarshal(annotationYAML, &annotation); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded annotation.yaml: " + err.Error())
	}
	if annotation.Box.Thickness <= 0 {
		annotation.Box.Thickness = 2
	}
	if annotation.Label.Offset <= 0 {
		annotation.Label.Offset = constants.LabelOffset
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "./data/rollcall.db"
	}
	sigDir := os.Getenv("SIGNATURE_DIR")
	if sigDir == "" {
		sigDir = "./data/signatures"
	}
	webHost := os.Getenv("WEB_HOST")
	if webHost == "" {
		webHost = "0.0.0.0"
	}

	return &Config{
		Database: DatabaseConfig{
			Backend:      envString("DATABASE_BACKEND", BackendSQLite),
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   sqlitePath,
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Signatures: SignatureConfig{
			Store: envString("SIGNATURE_STORE", SignatureStoreFile),
			Dir:   sigDir,
			Dim:   envInt("SIGNATURE_DIM", constants.DefaultSignatureDim),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			Index:     envString("MATCH_INDEX", MatchIndexScan),
		},
		Inference: InferenceConfig{
			URL:      os.Getenv("INFERENCE_URL"),
			Timeout:  envDuration("INFERENCE_TIMEOUT", 30*time.Second),
			FaceSize: envInt("FACE_SIZE", constants.FaceSize),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
		Web: WebConfig{
			Host:           webHost,
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Annotation: annotation,
	}
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case BackendSQLite, BackendMemory:
	case BackendPostgres, BackendMariaDB:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.Database.Backend)
		}
	default:
		return fmt.Errorf("unknown DATABASE_BACKEND %q", c.Database.Backend)
	}

	switch c.Signatures.Store {
	case SignatureStoreFile:
	case SignatureStorePostgres:
		if c.Database.Backend != BackendPostgres {
			return fmt.Errorf("SIGNATURE_STORE=postgres requires DATABASE_BACKEND=postgres, got %q", c.Database.Backend)
		}
	default:
		return fmt.Errorf("unknown SIGNATURE_STORE %q", c.Signatures.Store)
	}

	switch c.Match.Index {
	case MatchIndexScan, MatchIndexHNSW:
	default:
		return fmt.Errorf("unknown MATCH_INDEX %q", c.Match.Index)
	}
	return nil
}
