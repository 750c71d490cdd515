package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"ivcs-go/internal/ivcs"
)

// Defaults carried into every new config.
var (
	DefaultExtensions      = []string{".img", ".tif"}
	DefaultChangeDetection = string(ivcs.DetectByModificationTime)
	DefaultWatchInterval   = "5m"
	DefaultWatchDebounce   = "2s"
)

// Config represents the main configuration for ivcs.
type Config struct {
	// Username is the acting user for checkout and commit unless --user overrides it.
	Username   string           `toml:"username"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Tracking   TrackingConfig   `toml:"tracking"`
	Scan       ScanConfig       `toml:"scan"`
	Database   DatabaseConfig   `toml:"database"`
	Store      StoreConfig      `toml:"store"`
	Encryption EncryptionConfig `toml:"encryption"`
	Watch      WatchConfig      `toml:"watch"`
}

// TrackingConfig selects which files are tracked and how changes are detected.
type TrackingConfig struct {
	Extensions      []string `toml:"extensions"`       // case-sensitive, leading dot
	ChangeDetection string   `toml:"change_detection"` // "hash" or "modification_time"
	Ignore          []string `toml:"ignore"`
}

type ScanConfig struct {
	Workers int `toml:"workers"` // 0 means one per CPU
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StoreConfig represents configuration for the version store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "badger" or "s3"

	// Root is the store directory for type=filesystem and type=badger.
	// Badger holds each blob as one value, so blobs over its 1 GiB value log
	// file size are refused; use filesystem or s3 for larger imagery.
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`

	// CompressionLevel is a zstd level from 1 (fastest) to 4 (best). 0 uses the default.
	CompressionLevel int `toml:"compression_level,omitempty"`
	// CacheSize bounds the in-process cache of keys known to exist. 0 uses the default.
	CacheSize int `toml:"cache_size,omitempty"`
}

// EncryptionConfig holds the age key pair used to encrypt stored versions.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// WatchConfig controls `ivcs watch`.
type WatchConfig struct {
	Interval string `toml:"interval"` // Go duration between full rescans
	Debounce string `toml:"debounce"` // quiet period after a filesystem event
}

// NewConfig creates a new Config with default tracking settings and storage
// laid out under baseDir.
func NewConfig(username, baseDir string) *Config {
	return &Config{
		Username: username,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Tracking: TrackingConfig{
			Extensions:      append([]string(nil), DefaultExtensions...),
			ChangeDetection: DefaultChangeDetection,
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Store:    StoreConfig{Type: "filesystem", Root: filepath.Join(baseDir, "store")},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ivcs.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ivcs.key"),
		},
		Watch: WatchConfig{Interval: DefaultWatchInterval, Debounce: DefaultWatchDebounce},
	}
}

// Validate checks values that would otherwise fail late. An unknown change
// detection method is reported as *ivcs.ConfigError.
func (c *Config) Validate() error {
	if _, err := ivcs.ParseDetectionMethod(c.Tracking.ChangeDetection); err != nil {
		return err
	}
	for _, ext := range c.Tracking.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return &ivcs.ConfigError{Field: "extensions", Value: ext, Msg: "must start with a dot"}
		}
	}
	if c.Scan.Workers < 0 {
		return &ivcs.ConfigError{Field: "workers", Value: fmt.Sprint(c.Scan.Workers), Msg: "must not be negative"}
	}
	if c.Store.CompressionLevel < 0 || c.Store.CompressionLevel > 4 {
		return &ivcs.ConfigError{Field: "compression_level", Value: fmt.Sprint(c.Store.CompressionLevel), Msg: "must be between 1 and 4"}
	}
	for field, value := range map[string]string{"interval": c.Watch.Interval, "debounce": c.Watch.Debounce} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return &ivcs.ConfigError{Field: field, Value: value, Msg: "must be a positive duration"}
		}
	}
	return nil
}

// Settings returns the tracking settings for the service layer.
func (c *Config) Settings() (ivcs.Settings, error) {
	method, err := ivcs.ParseDetectionMethod(c.Tracking.ChangeDetection)
	if err != nil {
		return ivcs.Settings{}, err
	}
	return ivcs.Settings{
		Extensions: c.Tracking.Extensions,
		Method:     method,
		Workers:    c.Scan.Workers,
	}, nil
}

// WatchIntervals parses the watch durations, falling back to the defaults.
func (c *Config) WatchIntervals() (interval, debounce time.Duration, err error) {
	parse := func(value, fallback string) (time.Duration, error) {
		if value == "" {
			value = fallback
		}
		return time.ParseDuration(value)
	}
	if interval, err = parse(c.Watch.Interval, DefaultWatchInterval); err != nil {
		return 0, 0, fmt.Errorf("parsing watch interval: %w", err)
	}
	if debounce, err = parse(c.Watch.Debounce, DefaultWatchDebounce); err != nil {
		return 0, 0, fmt.Errorf("parsing watch debounce: %w", err)
	}
	return interval, debounce, nil
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

// ReadFromFile reads and validates a Config from the specified file path.
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
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

// Init writes a new config file. It refuses to overwrite an existing one.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
