package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for tourcache.
type Config struct {
	UserID       string             `toml:"user_id"`
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	Database     DatabaseConfig     `toml:"database"`
	Remote       RemoteConfig       `toml:"remote"`
	Fetcher      FetcherConfig      `toml:"fetcher"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
	Retention    RetentionConfig    `toml:"retention"`
	Encryption   EncryptionConfig   `toml:"encryption"`
}

// DatabaseConfig configures the local store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// RemoteConfig configures the booking-backend API client.
type RemoteConfig struct {
	BaseURL        string `toml:"base_url"`
	AuthToken      string `toml:"auth_token,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-request; defaults to 30
}

// FetcherConfig configures where asset payloads are fetched from.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type FetcherConfig struct {
	Type           string `toml:"type"`            // "http" or "s3"
	TimeoutSeconds int    `toml:"timeout_seconds"` // only used for type=http; defaults to 30

	// S3-specific fields (only used when Type == "s3")
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // for S3-compatible services (MinIO, etc.)
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
}

// ConnectivityConfig configures how online/offline transitions are observed.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ConnectivityConfig struct {
	Type                 string `toml:"type"`                     // "probe" or "manual"
	ProbeURL             string `toml:"probe_url,omitempty"`      // only used for type=probe; empty falls back to remote base_url
	ProbeIntervalSeconds int    `toml:"probe_interval_seconds"`   // only used for type=probe; defaults to 30
	ManualOnline         bool   `toml:"manual_online,omitempty"`  // initial state for type=manual
}

// RetentionConfig configures stale-download eviction.
type RetentionConfig struct {
	MaxAgeDays int `toml:"max_age_days"` // 0 means evict everything on cleanup
}

// EncryptionConfig holds paths to the age key pair used for at-rest audio
// encryption. Downloads store raw payloads when disabled.
type EncryptionConfig struct {
	Enabled        bool   `toml:"enabled"`
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:  userID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Remote: RemoteConfig{
			TimeoutSeconds: 30,
		},
		Fetcher: FetcherConfig{
			Type:           "http",
			TimeoutSeconds: 30,
		},
		Connectivity: ConnectivityConfig{
			Type:                 "probe",
			ProbeIntervalSeconds: 30,
		},
		Retention: RetentionConfig{
			MaxAgeDays: 30,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "tourcache.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "tourcache.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
// Refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
