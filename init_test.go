package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tagindex/internal/config"
)

func TestApplySection(t *testing.T) {
	t.Parallel()

	block := func(body string) string { return sentinelStart + "\n" + body + "\n" + sentinelEnd }

	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{"empty file", "", "\n" + block("fresh") + "\n"},
		{"appends after content", "extra: true\n", "extra: true\n\n" + block("fresh") + "\n"},
		{"adds missing newline", "extra: true", "extra: true\n\n" + block("fresh") + "\n"},
		{
			"replaces block in place",
			"# top\n\n" + block("stale") + "\n\nextra: true\n",
			"# top\n\n" + block("fresh") + "\n\nextra: true\n",
		},
		{"end before start is not a block", sentinelEnd + "\n" + sentinelStart + "\n", sentinelEnd + "\n" + sentinelStart + "\n\n" + block("fresh") + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, applySection(tt.existing, block("fresh")))
		})
	}
}

func runInit(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(append([]string{"init"}, args...), &stdout, &stderr), stderr.String())
	return stdout.String()
}

func TestInitWritesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)

	runInit(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), sentinelStart)
	assert.Contains(t, string(data), sentinelEnd)
	assert.Contains(t, string(data), "max_file_size: 1000000")
}

func TestInitIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)

	runInit(t, path)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	runInit(t, path)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestInitDryRun(t *testing.T) {
	t.Parallel()

	t.Run("no path prints the section", func(t *testing.T) {
		t.Parallel()
		out := runInit(t, "--dry-run")
		assert.True(t, strings.HasPrefix(out, sentinelStart), out)
		assert.Equal(t, generateSection(config.Default())+"\n", out)
	})

	t.Run("missing file is not created", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), config.FileName)
		out := runInit(t, "--dry-run", path)
		assert.Contains(t, out, sentinelEnd)
		assert.NoFileExists(t, path)
	})

	t.Run("existing file is shown whole and left alone", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), config.FileName)
		existing := "# local overrides\nlog:\n  level: debug\n"
		require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

		out := runInit(t, "--dry-run", path)
		assert.True(t, strings.HasPrefix(out, existing), out)
		assert.Contains(t, out, sentinelStart)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, existing, string(data))
	})
}

func TestInitSectionLoadsAsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)
	runInit(t, path)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	want := config.Default()
	assert.Equal(t, want.Paths.Ignore, cfg.Paths.Ignore)
	assert.Empty(t, cfg.Paths.Languages)
	assert.Equal(t, want.Paths.MaxFileSize, cfg.Paths.MaxFileSize)
	assert.Empty(t, cfg.Globals)
	assert.Equal(t, want.Builder, cfg.Builder)
	assert.Equal(t, want.Log, cfg.Log)
}

func TestGenerateSectionGlobals(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Globals = []config.GlobalTags{{Path: "/tags/libc.tags", Language: "C"}}
	cfg.Builder.Preprocessor = "gcc -E {}"

	section := generateSection(cfg)
	assert.Contains(t, section, "  - path: \"/tags/libc.tags\"\n    language: \"C\"\n")
	assert.Contains(t, section, `  preprocessor: "gcc -E {}"`)
	assert.True(t, strings.HasPrefix(section, sentinelStart))
	assert.True(t, strings.HasSuffix(section, sentinelEnd))
}
