package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "multi delimiters and dedupe",
			raw:  " https://a.example ; https://b.example,\nhttps://A.example ",
			want: []string{"https://a.example", "https://b.example"},
		},
		{
			name: "single",
			raw:  "*",
			want: []string{"*"},
		},
		{
			name: "empty",
			raw:  " , ; \n ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseList(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseList() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IMGFS_PATH", "/data/gallery.imgfs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":8000" {
		t.Fatalf("ListenAddr = %q, want :8000", cfg.ListenAddr)
	}
	if cfg.MaxUploadBytes != 16*1024*1024 {
		t.Fatalf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.Snapshot.Enabled() {
		t.Fatalf("snapshots enabled by default")
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_RequiresStorePath(t *testing.T) {
	t.Setenv("IMGFS_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want non-nil")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("IMGFS_PATH", "gallery.imgfs")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("RATE_LIMIT_READ", "42")
	t.Setenv("RATE_LIMIT_WRITE", "-3")
	t.Setenv("HTTP_READ_TIMEOUT", "2s")
	t.Setenv("HTTP_IDLE_TIMEOUT", "not-a-duration")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173;http://example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.RateLimitRead != 42 || cfg.RateLimitWrite != 0 {
		t.Fatalf("rate limits = %d/%d, want 42/0", cfg.RateLimitRead, cfg.RateLimitWrite)
	}
	if cfg.HTTPReadTimeout != 2*time.Second || cfg.HTTPIdleTimeout != 60*time.Second {
		t.Fatalf("timeouts = %s/%s", cfg.HTTPReadTimeout, cfg.HTTPIdleTimeout)
	}
	wantOrigins := []string{"http://localhost:5173", "http://example.com"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, wantOrigins) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, wantOrigins)
	}
}

func TestLoad_SnapshotBackends(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, s SnapshotConfig)
	}{
		{
			name: "local",
			env:  map[string]string{"SNAPSHOT_BACKEND": "Local", "SNAPSHOT_ROOT": "/backups", "SNAPSHOT_INTERVAL": "5m"},
			check: func(t *testing.T, s SnapshotConfig) {
				if s.Backend != SnapshotBackendLocal || s.Root != "/backups" || s.Interval != 5*time.Minute {
					t.Fatalf("snapshot = %+v", s)
				}
			},
		},
		{
			name: "s3 prefix gets slash",
			env:  map[string]string{"SNAPSHOT_BACKEND": "s3", "SNAPSHOT_S3_BUCKET": "imgs", "SNAPSHOT_S3_PREFIX": "prod"},
			check: func(t *testing.T, s SnapshotConfig) {
				if s.S3Prefix != "prod/" || s.S3Region != "us-east-1" {
					t.Fatalf("snapshot = %+v", s)
				}
			},
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"SNAPSHOT_BACKEND": "s3"},
			wantErr: true,
		},
		{
			name:    "s3 half credentials",
			env:     map[string]string{"SNAPSHOT_BACKEND": "s3", "SNAPSHOT_S3_BUCKET": "imgs", "SNAPSHOT_S3_ACCESS_KEY": "id"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"SNAPSHOT_BACKEND": "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IMGFS_PATH", "gallery.imgfs")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg.Snapshot)
		})
	}
}
