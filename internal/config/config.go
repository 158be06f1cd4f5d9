package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for wallsync.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Graph      GraphConfig      `toml:"graph"`
	Database   DatabaseConfig   `toml:"database"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// GraphConfig holds everything needed to talk to the remote feed API.
type GraphConfig struct {
	AccessToken           string   `toml:"access_token"`
	ClientID              int64    `toml:"client_id"`
	BaseURL               string   `toml:"base_url"`
	Fields                []string `toml:"fields"`
	UpdateIntervalSeconds int64    `toml:"update_interval_seconds"` // 0 = always fetch
	PageLimit             int64    `toml:"page_limit"`              // optional &limit= on the first request
	MaxPages              int      `toml:"max_pages"`               // 0 = follow next until exhausted
	RequestTimeoutSeconds int64    `toml:"request_timeout_seconds"`
}

// UpdateInterval returns the cache freshness window.
func (g GraphConfig) UpdateInterval() time.Duration {
	return time.Duration(g.UpdateIntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout, defaulting to 30s.
func (g GraphConfig) RequestTimeout() time.Duration {
	if g.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(g.RequestTimeoutSeconds) * time.Second
}

// DatabaseConfig represents configuration for the cache database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type     string `toml:"type"`                // "sqlite" or "memory"
	CacheDir string `toml:"cache_dir,omitempty"` // only used for type=sqlite
}

// VaultConfig represents configuration for a snapshot archive backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt archived
// snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// DefaultFields is the field list requested for status items.
var DefaultFields = []string{"id", "message", "privacy", "type"}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Graph: GraphConfig{
			BaseURL:               "https://graph.facebook.com/me/posts",
			Fields:                DefaultFields,
			UpdateIntervalSeconds: 3600,
			RequestTimeoutSeconds: 30,
		},
		Database: DatabaseConfig{
			Type:     "sqlite",
			CacheDir: filepath.Join(baseDir, "cache"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wallsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wallsync.key"),
		},
	}
}

// applyDefaults fills in values a config file left unspecified.
func applyDefaults(cfg *Config) {
	if cfg.Graph.BaseURL == "" {
		cfg.Graph.BaseURL = "https://graph.facebook.com/me/posts"
	}
	if len(cfg.Graph.Fields) == 0 {
		cfg.Graph.Fields = DefaultFields
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.CacheDir == "" {
		cfg.Database.CacheDir = filepath.Join(cfg.BaseDir, "cache")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.BaseDir, "log")
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
	applyDefaults(&cfg)
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
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
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

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
