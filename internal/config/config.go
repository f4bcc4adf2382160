package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SnapshotBackendNone  = "none"
	SnapshotBackendLocal = "local"
	SnapshotBackendS3    = "s3"
)

// Config holds runtime configuration for the image server.
type Config struct {
	StorePath          string
	ListenAddr         string
	AdminToken         string
	CORSAllowedOrigins []string
	MaxUploadBytes     int64
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	// optional directory served at / (index.html and assets)
	StaticDir          string

	// per client and per minute, 0 disables the limit
	RateLimitRead  int
	RateLimitWrite int

	Snapshot SnapshotConfig
}

// SnapshotConfig selects where background snapshots go and how often.
type SnapshotConfig struct {
	Backend     string
	Root        string
	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
	Interval    time.Duration
	Delay       time.Duration
}

func (s SnapshotConfig) Enabled() bool {
	return s.Backend != SnapshotBackendNone
}

func Load() (Config, error) {
	cfg := Config{
		StorePath:        getenv("IMGFS_PATH", ""),
		ListenAddr:       getenv("LISTEN_ADDR", ":8000"),
		AdminToken:       getenv("ADMIN_TOKEN", ""),
		MaxUploadBytes:   getenvInt64("MAX_UPLOAD_BYTES", 16*1024*1024),
		HTTPReadTimeout:  getenvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout: getenvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
		HTTPIdleTimeout:  getenvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		StaticDir:        getenv("STATIC_DIR", ""),
		RateLimitRead:    getenvInt("RATE_LIMIT_READ", 600),
		RateLimitWrite:   getenvInt("RATE_LIMIT_WRITE", 60),
		Snapshot:         loadSnapshot(),
	}
	cfg.CORSAllowedOrigins = parseList(getenv("CORS_ALLOWED_ORIGINS", "*"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.StorePath == "" {
		return Config{}, fmt.Errorf("IMGFS_PATH cannot be empty")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.RateLimitRead < 0 {
		cfg.RateLimitRead = 0
	}
	if cfg.RateLimitWrite < 0 {
		cfg.RateLimitWrite = 0
	}
	if err := cfg.Snapshot.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadSnapshot reads only the SNAPSHOT_* keys, for tools that do not run
// the server.
func LoadSnapshot() (SnapshotConfig, error) {
	cfg := loadSnapshot()
	if err := cfg.validate(); err != nil {
		return SnapshotConfig{}, err
	}
	return cfg, nil
}

func loadSnapshot() SnapshotConfig {
	return SnapshotConfig{
		Backend:     strings.ToLower(getenv("SNAPSHOT_BACKEND", SnapshotBackendNone)),
		Root:        getenv("SNAPSHOT_ROOT", "./snapshots"),
		S3Bucket:    getenv("SNAPSHOT_S3_BUCKET", ""),
		S3Prefix:    getenv("SNAPSHOT_S3_PREFIX", ""),
		S3Endpoint:  getenv("SNAPSHOT_S3_ENDPOINT", ""),
		S3Region:    getenv("SNAPSHOT_S3_REGION", "us-east-1"),
		S3AccessKey: getenv("SNAPSHOT_S3_ACCESS_KEY", ""),
		S3SecretKey: getenv("SNAPSHOT_S3_SECRET_KEY", ""),
		S3PathStyle: getenvBool("SNAPSHOT_S3_PATH_STYLE", false),
		Interval:    getenvDuration("SNAPSHOT_INTERVAL", time.Hour),
		Delay:       getenvDuration("SNAPSHOT_DELAY", 30*time.Second),
	}
}

func (s *SnapshotConfig) validate() error {
	switch s.Backend {
	case SnapshotBackendNone:
	case SnapshotBackendLocal:
		if s.Root == "" {
			return fmt.Errorf("SNAPSHOT_ROOT cannot be empty for the local backend")
		}
	case SnapshotBackendS3:
		if s.S3Bucket == "" {
			return fmt.Errorf("SNAPSHOT_S3_BUCKET cannot be empty for the s3 backend")
		}
		if (s.S3AccessKey == "") != (s.S3SecretKey == "") {
			return fmt.Errorf("SNAPSHOT_S3_ACCESS_KEY and SNAPSHOT_S3_SECRET_KEY must be set together")
		}
		if s.S3Prefix != "" && !strings.HasSuffix(s.S3Prefix, "/") {
			s.S3Prefix += "/"
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q", s.Backend)
	}
	if s.Interval < 0 {
		s.Interval = 0
	}
	if s.Delay < 0 {
		s.Delay = 0
	}
	return nil
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseList(raw string) []string {
	replacer := strings.NewReplacer("\n", ",", ";", ",")
	parts := strings.Split(replacer.Replace(raw), ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		key := strings.ToLower(p)
		if p == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
