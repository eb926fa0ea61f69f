package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tagindex/internal/model"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "C", cfg.Builder.Language)
	assert.Equal(t, int64(1_000_000), cfg.DiscoverOptions().MaxFileSize)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
	assert.Empty(t, cfg.PreprocessorArgv())
	assert.Empty(t, cfg.DiscoverOptions().Languages)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Paths.Ignore, cfg.Paths.Ignore)
	assert.Empty(t, cfg.Paths.Languages)
	assert.Equal(t, d.Paths.MaxFileSize, cfg.Paths.MaxFileSize)
	assert.Empty(t, cfg.Globals)
	assert.Equal(t, d.Builder, cfg.Builder)
	assert.Equal(t, d.Log, cfg.Log)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `paths:
  ignore:
    - "vendor/**"
  languages: [c, python]
globals:
  - path: /usr/share/tagindex/libc.tags
    language: C
builder:
  preprocessor: "gcc -E -dD {}"
log:
  level: debug
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"vendor/**"}, cfg.Paths.Ignore)
	assert.Equal(t, []model.Language{model.LangC, model.LangPython}, cfg.DiscoverOptions().Languages)
	require.Len(t, cfg.Globals, 1)
	assert.Equal(t, GlobalTags{Path: "/usr/share/tagindex/libc.tags", Language: "C"}, cfg.Globals[0])
	assert.Equal(t, []string{"gcc", "-E", "-dD", "{}"}, cfg.PreprocessorArgv())
	assert.Equal(t, "C", cfg.Builder.Language, "unset keys keep their default")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log:\n  level: debug\nbuilder:\n  language: C\n")
	t.Setenv("TAGINDEX_LOG_LEVEL", "error")
	t.Setenv("TAGINDEX_BUILDER_LANGUAGE", "c++")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.LogLevel())
	assert.Equal(t, "c++", cfg.Builder.Language)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "builder:\n  preprocessor: cpp\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpp"}, cfg.PreprocessorArgv())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "paths: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log:\n  level: loud\n")

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad ignore glob", func(c *Config) { c.Paths.Ignore = []string{"[unclosed"} }},
		{"unknown scan language", func(c *Config) { c.Paths.Languages = []string{"cobol"} }},
		{"any is not a scan language", func(c *Config) { c.Paths.Languages = []string{"any"} }},
		{"global without path", func(c *Config) { c.Globals = []GlobalTags{{Language: "C"}} }},
		{"global with bad language", func(c *Config) { c.Globals = []GlobalTags{{Path: "x", Language: "cobol"}} }},
		{"builder language", func(c *Config) { c.Builder.Language = "" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative max file size", func(c *Config) { c.Paths.MaxFileSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), ErrInvalid)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Builder.Language = "cobol"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "builder.language")
}
