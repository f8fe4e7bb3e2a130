package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	AppName   = "fsrecon"
	EnvPrefix = "FSRECON"
)

// Config holds everything the subcommands read from file, environment or
// defaults. Command-line flags override the root paths.
type Config struct {
	Canonical  string          `mapstructure:"canonical"`
	Incoming   string          `mapstructure:"incoming"`
	Scan       ScanConfig      `mapstructure:"scan"`
	Reconcile  ReconcileConfig `mapstructure:"reconcile"`
	History    HistoryConfig   `mapstructure:"history"`
	Log        LogConfig       `mapstructure:"log"`
	Categories []Category      `mapstructure:"categories"`
}

type ScanConfig struct {
	ChunkSize   int `mapstructure:"chunkSize"`
	PrefixBytes int `mapstructure:"prefixBytes"`
}

type ReconcileConfig struct {
	DryRun bool `mapstructure:"dryRun"`
}

// HistoryConfig points at the SQLite run history. An empty path disables it.
type HistoryConfig struct {
	Database string `mapstructure:"database"`
}

type LogConfig struct {
	File      string `mapstructure:"file"`
	Verbosity int    `mapstructure:"verbosity"`
}

// Category is one row of the extension table used for size totals.
type Category struct {
	Name       string   `mapstructure:"name"`
	Extensions []string `mapstructure:"extensions"`
}

// DefaultCategories is the extension table used when the config file does
// not provide one.
func DefaultCategories() []Category {
	return []Category{
		{Name: "text", Extensions: []string{"txt", "doc", "docx", "odt", "csv", "xls", "ppt", "odp"}},
		{Name: "images", Extensions: []string{"jpg", "png", "bmp", "gif", "svg"}},
		{Name: "video", Extensions: []string{"mp4", "avi", "mov", "mpeg", "wmv"}},
		{Name: "audio", Extensions: []string{"mp3", "mp2", "wav", "bwf"}},
	}
}

// ScannerOptions converts the scan section into scanner options.
func (c *Config) ScannerOptions() scanner.Options {
	return scanner.Options{ChunkSize: c.Scan.ChunkSize, PrefixBytes: c.Scan.PrefixBytes}
}

// LoadConfig reads configPath, or searches the default locations when it is
// empty. A missing config file is not an error; defaults apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	v.SetDefault("scan.chunkSize", scanner.DefaultChunkSize)
	v.SetDefault("scan.prefixBytes", scanner.DefaultPrefixBytes)
	v.SetDefault("reconcile.dryRun", false)
	v.SetDefault("history.database", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.verbosity", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper already knows about
	for _, key := range []string{"canonical", "incoming"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfig, "bind env for %s", key)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, errors.Wrap(err, errors.ErrConfig, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "unable to decode config")
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	if cfg.Scan.ChunkSize <= 0 {
		return nil, errors.Newf(errors.ErrConfig, "scan.chunkSize must be positive, got %d", cfg.Scan.ChunkSize)
	}

	return &cfg, nil
}

// ValidateRoots checks the two roots before any tree work begins. Both must
// be existing directories, and neither may contain the other: a canonical
// walk that reached into incoming would classify every incoming file as
// already present.
func ValidateRoots(fsys afero.Fs, canonical, incoming string) error {
	if err := ValidateRoot(fsys, "canonical", canonical); err != nil {
		return err
	}
	if err := ValidateRoot(fsys, "incoming", incoming); err != nil {
		return err
	}

	c, err := filepath.Abs(canonical)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfig, "resolve canonical root")
	}
	i, err := filepath.Abs(incoming)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfig, "resolve incoming root")
	}
	if c == i {
		return errors.Newf(errors.ErrConfig, "canonical and incoming are the same directory: %s", c)
	}
	if within(c, i) || within(i, c) {
		return errors.Newf(errors.ErrConfig, "canonical %s and incoming %s overlap", c, i)
	}
	return nil
}

// ValidateRoot checks that root names an existing directory.
func ValidateRoot(fsys afero.Fs, label, root string) error {
	if root == "" {
		return errors.Newf(errors.ErrConfig, "%s root is required", label)
	}
	info, err := fsys.Stat(root)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfig, "%s root %s is not accessible", label, root).WithDetail("path", root)
	}
	if !info.IsDir() {
		return errors.Newf(errors.ErrConfig, "%s root %s is not a directory", label, root).WithDetail("path", root)
	}
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
