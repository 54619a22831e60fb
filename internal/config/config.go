package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values applied by Normalize.
const (
	DefaultListen       = "127.0.0.1:5000"
	DefaultWeekStart    = "monday"
	DefaultLogLevel     = "info"
	DefaultHistoryDepth = 20
	DefaultMaxUploadMB  = 16
	DefaultArchiveDir   = "backups"
	DefaultArchiveKeep  = 10
	DefaultICSProductID = "-//area710//Event Editor//DE"
	DefaultICSTimezone  = "Europe/Berlin"
	DefaultICSName      = "area710"
)

// StorageConfig controls how collection files are treated.
type StorageConfig struct {
	// OverwriteCorrupt allows mutations on a collection file that could not
	// be parsed. The file is then replaced by whatever the mutation produces
	// (the broken bytes survive in the .backup copy).
	OverwriteCorrupt bool `yaml:"overwrite_corrupt" json:"overwrite_corrupt"`
}

// S3Config describes an optional S3 / MinIO destination for scheduled archives.
type S3Config struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`

	// Static credentials. When empty the default AWS credential chain
	// (environment, shared config, instance role) is used.
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"-"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"-"`
}

// ArchiveConfig configures scheduled project archives.
type ArchiveConfig struct {
	// Schedule is a 5-field cron expression (e.g. "0 3 * * *").
	// Empty disables scheduled archives.
	Schedule string `yaml:"schedule" json:"schedule"`

	// Dir receives archives when no S3 bucket is configured. Relative paths
	// are resolved against the active project directory.
	Dir string `yaml:"dir" json:"dir"`

	// Keep is how many archives DirSink retains.
	Keep int `yaml:"keep" json:"keep"`

	S3 *S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// ICSConfig controls the iCalendar feed.
type ICSConfig struct {
	ProductID string `yaml:"product_id" json:"product_id"`
	Timezone  string `yaml:"timezone" json:"timezone"`
	Name      string `yaml:"name" json:"name"`

	// CacheDir keeps fetched remote calendars for conditional requests and
	// offline fallback. Empty uses a directory under the system temp dir.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the editor UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// ProjectPath is the project directory selected at startup. It can be
	// changed at runtime through the API.
	ProjectPath string `yaml:"project_path" json:"project_path"`

	// WeekStart controls the first column of calendar views:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// HistoryDepth bounds the undo and redo stacks of each session.
	HistoryDepth int `yaml:"history_depth" json:"history_depth"`

	MaxUploadMB int `yaml:"max_upload_mb" json:"max_upload_mb"`

	Storage StorageConfig `yaml:"storage" json:"storage"`
	Archive ArchiveConfig `yaml:"archive" json:"archive"`
	ICS     ICSConfig     `yaml:"ics" json:"ics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		ProjectPath:  os.Getenv("PROJECT_PATH"),
		WeekStart:    DefaultWeekStart,
		LogLevel:     DefaultLogLevel,
		HistoryDepth: DefaultHistoryDepth,
		MaxUploadMB:  DefaultMaxUploadMB,
		Archive: ArchiveConfig{
			Dir:  DefaultArchiveDir,
			Keep: DefaultArchiveKeep,
		},
		ICS: ICSConfig{
			ProductID: DefaultICSProductID,
			Timezone:  DefaultICSTimezone,
			Name:      DefaultICSName,
		},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = DefaultWeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.HistoryDepth <= 0 {
		c.HistoryDepth = DefaultHistoryDepth
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = DefaultArchiveDir
	}
	if c.Archive.Keep <= 0 {
		c.Archive.Keep = DefaultArchiveKeep
	}
	if c.Archive.S3 != nil && c.Archive.S3.Bucket == "" {
		c.Archive.S3 = nil
	}
	if c.ICS.ProductID == "" {
		c.ICS.ProductID = DefaultICSProductID
	}
	if c.ICS.Timezone == "" {
		c.ICS.Timezone = DefaultICSTimezone
	}
	if c.ICS.Name == "" {
		c.ICS.Name = DefaultICSName
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unwritable config dir is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".area710-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
