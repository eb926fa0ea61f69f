package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/tagindex/internal/config"
)

const (
	sentinelStart = "# tagindex:start"
	sentinelEnd   = "# tagindex:end"
)

// initCmd implements `tagindex init`, which writes (or updates) the managed
// settings block of a .tagindex.yaml file.
func initCmd(stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default settings block to " + config.FileName,
		Long: `Write the default tagindex settings to a config file. The block is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path defaults to ./` + config.FileName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			section := generateSection(config.Default())

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(out, section)
				return nil
			}

			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(out, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(stderr, "wrote tagindex settings to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection renders cfg as the sentinel-wrapped YAML settings block.
func generateSection(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(sentinelStart + "\n")
	b.WriteString("# Managed by `tagindex init`; edits inside this block are replaced.\n")

	b.WriteString("paths:\n")
	b.WriteString("  # Glob patterns relative to the project root.\n")
	writeList(&b, "  ", "ignore", cfg.Paths.Ignore)
	b.WriteString("  # Restrict scanning to these languages; empty scans all.\n")
	writeList(&b, "  ", "languages", cfg.Paths.Languages)
	fmt.Fprintf(&b, "  max_file_size: %d\n", cfg.Paths.MaxFileSize)

	b.WriteString("# Tag files loaded into every workspace.\n")
	if len(cfg.Globals) == 0 {
		b.WriteString("globals: []\n")
	} else {
		b.WriteString("globals:\n")
		for _, g := range cfg.Globals {
			fmt.Fprintf(&b, "  - path: %s\n    language: %s\n", strconv.Quote(g.Path), strconv.Quote(g.Language))
		}
	}

	b.WriteString("builder:\n")
	b.WriteString("  # Run over the headers before parsing, e.g. \"gcc -E -dD {}\".\n")
	fmt.Fprintf(&b, "  preprocessor: %s\n", strconv.Quote(cfg.Builder.Preprocessor))
	fmt.Fprintf(&b, "  language: %s\n", strconv.Quote(cfg.Builder.Language))

	b.WriteString("log:\n")
	fmt.Fprintf(&b, "  level: %s\n", cfg.Log.Level)

	b.WriteString(sentinelEnd)
	return b.String()
}

func writeList(b *strings.Builder, indent, key string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%s%s: []\n", indent, key)
		return
	}
	fmt.Fprintf(b, "%s%s:\n", indent, key)
	for _, v := range values {
		fmt.Fprintf(b, "%s  - %s\n", indent, strconv.Quote(v))
	}
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
