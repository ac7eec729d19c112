// Package config loads tacticsdb settings from a YAML file, a project .env
// file and TACTICSDB_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"tacticsdb/internal/blob"
	"tacticsdb/internal/database"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TACTICSDB"

// FileName is the config file name searched for, without extension.
const FileName = ".tacticsdb"

// Config holds the resolved settings.
type Config struct {
	ProjectDir       string         `mapstructure:"project_dir"`
	DataDir          string         `mapstructure:"data_dir"`
	Format           string         `mapstructure:"format"`
	LogLevel         string         `mapstructure:"log_level"`
	LogFormat        string         `mapstructure:"log_format"`
	WriteConcurrency int            `mapstructure:"write_concurrency"`
	MetricsAddr      string         `mapstructure:"metrics_addr"`
	Blob             BlobConfig     `mapstructure:"blob"`
	Snapshot         SnapshotConfig `mapstructure:"snapshot"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// BlobConfig selects where catalog files are stored.
type BlobConfig struct {
	Driver string   `mapstructure:"driver"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config configures the s3 blob driver.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// SnapshotConfig configures export and import.
type SnapshotConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// Options controls Load.
type Options struct {
	// File, when set, is read instead of searching the default paths.
	File string
	// Fs is the filesystem config and .env files are read from.
	Fs afero.Fs
	// Overrides are applied with the highest priority, typically from flags.
	Overrides map[string]any
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_dir", ".")
	v.SetDefault("data_dir", "game_data")
	v.SetDefault("format", string(database.FormatJSON))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("write_concurrency", database.DefaultWriteConcurrency)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "")
	v.SetDefault("blob.s3.prefix", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("snapshot.driver", "sqlite")
	v.SetDefault("snapshot.sqlite_path", "tacticsdb.db")
	v.SetDefault("snapshot.postgres_dsn", "")
}

// Load resolves the configuration. A missing config file is not an error.
func Load(opts Options) (*Config, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	v := viper.New()
	v.SetFs(fsys)
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config %s: %w", opts.File, err)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "tacticsdb"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}
	for key, val := range opts.Overrides {
		v.Set(key, val)
	}

	if err := loadDotEnv(fsys, filepath.Join(v.GetString("project_dir"), ".env")); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// loadDotEnv exports TACTICSDB_* variables from path that the environment
// does not already set. Viper reads environment values lazily, so they apply
// to the Unmarshal that follows.
func loadDotEnv(fsys afero.Fs, path string) error {
	f, err := fsys.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	for key, val := range vars {
		if !strings.HasPrefix(key, EnvPrefix+"_") {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return err
		}
	}
	return nil
}

var (
	logLevels  = map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError}
	logFormats = map[string]bool{"text": true, "json": true}
	snapshots  = map[string]bool{"sqlite": true, "postgres": true}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ProjectDir) == "" {
		errs = append(errs, errors.New("project_dir is required"))
	}
	if _, err := database.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel))
	}
	if !logFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Errorf("log_format %q: want text or json", c.LogFormat))
	}
	if c.WriteConcurrency < 1 {
		errs = append(errs, fmt.Errorf("write_concurrency must be positive, got %d", c.WriteConcurrency))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver %q: want fs, s3 or memory", c.Blob.Driver))
	}
	if !snapshots[c.Snapshot.Driver] {
		errs = append(errs, fmt.Errorf("snapshot.driver %q: want sqlite or postgres", c.Snapshot.Driver))
	}
	if c.Snapshot.Driver == "postgres" && c.Snapshot.PostgresDSN == "" {
		errs = append(errs, errors.New("snapshot.postgres_dsn is required for the postgres driver"))
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, info when unrecognised.
func (c *Config) SlogLevel() slog.Level {
	if lvl, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// CatalogFormat returns the parsed catalog file format.
func (c *Config) CatalogFormat() database.Format {
	f, err := database.ParseFormat(c.Format)
	if err != nil {
		return database.FormatJSON
	}
	return f
}

// DataPath returns the directory catalog files live in. A relative data_dir
// is resolved against project_dir.
func (c *Config) DataPath() string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(c.ProjectDir, c.DataDir)
}

// BlobStore returns the blob factory config for the data directory.
func (c *Config) BlobStore() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		Root:   c.DataPath(),
		S3: blob.S3Config{
			Bucket:       c.Blob.S3.Bucket,
			Region:       c.Blob.S3.Region,
			Prefix:       c.Blob.S3.Prefix,
			Endpoint:     c.Blob.S3.Endpoint,
			PathStyle:    c.Blob.S3.PathStyle,
		},
	}
}

// WriteDefault writes a config file with every default setting to path.
func WriteDefault(fsys afero.Fs, path string) error {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	v := viper.New()
	v.SetFs(fsys)
	setDefaults(v)
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}
