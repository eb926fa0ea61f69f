// Package config loads tagindex settings from defaults, a .tagindex.yaml file
// and TAGINDEX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/phobologic/tagindex/internal/discover"
	"github.com/phobologic/tagindex/internal/model"
)

// FileName is the config file looked up in the project root.
const FileName = ".tagindex.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full configuration.
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Globals []GlobalTags  `mapstructure:"globals"`
	Builder BuilderConfig `mapstructure:"builder"`
	Log     LogConfig     `mapstructure:"log"`
}

// PathsConfig controls project scanning.
type PathsConfig struct {
	// Ignore holds glob patterns of paths to skip, relative to the project root.
	Ignore []string `mapstructure:"ignore"`
	// Languages restricts scanning; empty means every supported language.
	Languages []string `mapstructure:"languages"`
	// MaxFileSize skips larger files, in bytes. Zero disables the limit.
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// GlobalTags names a tag file loaded into every workspace.
type GlobalTags struct {
	Path     string `mapstructure:"path"`
	Language string `mapstructure:"language"`
}

// BuilderConfig holds build-globals defaults.
type BuilderConfig struct {
	// Preprocessor is split on whitespace into an argv; no shell is involved.
	Preprocessor string `mapstructure:"preprocessor"`
	Language     string `mapstructure:"language"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Ignore:      []string{"**/testdata/**"},
			Languages:   []string{},
			MaxFileSize: 1_000_000,
		},
		Builder: BuilderConfig{Language: "C"},
		Log:     LogConfig{Level: "warn"},
	}
}

// Load reads configuration for the project at rootDir. Priority, highest
// first: TAGINDEX_* environment variables, rootDir/.tagindex.yaml, defaults.
// A missing config file is not an error.
func Load(rootDir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(rootDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads configuration from an explicit file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TAGINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("paths.ignore")
	_ = v.BindEnv("paths.languages")
	_ = v.BindEnv("paths.max_file_size")
	_ = v.BindEnv("builder.preprocessor")
	_ = v.BindEnv("builder.language")
	_ = v.BindEnv("log.level")

	d := Default()
	v.SetDefault("paths.ignore", d.Paths.Ignore)
	v.SetDefault("paths.languages", d.Paths.Languages)
	v.SetDefault("paths.max_file_size", d.Paths.MaxFileSize)
	v.SetDefault("builder.preprocessor", d.Builder.Preprocessor)
	v.SetDefault("builder.language", d.Builder.Language)
	v.SetDefault("log.level", d.Log.Level)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem in cfg, each wrapping ErrInvalid.
func Validate(cfg *Config) error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	for _, p := range cfg.Paths.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			invalid("paths.ignore %q: %v", p, err)
		}
	}
	for _, name := range cfg.Paths.Languages {
		if l, err := model.ParseLanguage(name); err != nil || l == model.LangAny {
			invalid("paths.languages: unsupported language %q", name)
		}
	}
	if cfg.Paths.MaxFileSize < 0 {
		invalid("paths.max_file_size must not be negative")
	}
	for i, g := range cfg.Globals {
		if g.Path == "" {
			invalid("globals[%d]: path is required", i)
		}
		if _, err := model.ParseLanguage(g.Language); err != nil {
			invalid("globals[%d]: %v", i, err)
		}
	}
	if l, err := model.ParseLanguage(cfg.Builder.Language); err != nil || l == model.LangAny {
		invalid("builder.language: unsupported language %q", cfg.Builder.Language)
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		invalid("log.level: %v", err)
	}
	return errors.Join(errs...)
}

// DiscoverOptions converts the paths section into scan options.
func (c *Config) DiscoverOptions() discover.Options {
	opts := discover.Options{Ignore: c.Paths.Ignore, MaxFileSize: c.Paths.MaxFileSize}
	for _, name := range c.Paths.Languages {
		if l, err := model.ParseLanguage(name); err == nil && l != model.LangAny {
			opts.Languages = append(opts.Languages, l)
		}
	}
	return opts
}

// PreprocessorArgv splits the configured preprocessor command.
func (c *Config) PreprocessorArgv() []string {
	return strings.Fields(c.Builder.Preprocessor)
}

// LogLevel returns the configured level, warn when unset.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("unknown level %q", s)
}
