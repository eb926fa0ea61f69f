// Package discover finds parseable source files in a project directory.
package discover

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/tagindex/internal/lang"
	"github.com/phobologic/tagindex/internal/model"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to the project root, slash separated
	Language model.Language
}

// Options narrows what Files returns.
type Options struct {
	// Languages restricts results to these languages. Empty means all.
	Languages []model.Language
	// Ignore holds glob patterns matched against root-relative paths.
	Ignore []string
	// MaxFileSize skips files larger than this many bytes. Zero means no limit.
	MaxFileSize int64
}

// Build output and dependency trees that never hold project sources.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"__pycache__":  {},
	"venv":         {},
	"env":          {},
	"build":        {},
	"dist":         {},
	"target":       {},
	"out":          {},
	"CMakeFiles":   {},
	"egg-info":     {},
}

const gitTimeout = 10 * time.Second

// matcher is one compiled ignore pattern. A pattern starting with "**/"
// also gets a root-level form so "**/*_test.go" excludes "a_test.go".
type matcher struct {
	glob glob.Glob
	root glob.Glob
}

type walker struct {
	root      string
	opts      Options
	languages map[model.Language]struct{}
	ignores   []matcher
	tracked   map[string]struct{}
	gitignore *ignore.GitIgnore
	found     []FileEntry
}

// Files discovers parseable source files under root, sorted by path. Inside a
// git checkout only tracked and untracked-but-not-ignored files are returned;
// elsewhere a top-level .gitignore is honoured.
func Files(root string, opts Options) ([]FileEntry, error) {
	ignores, err := compile(opts.Ignore)
	if err != nil {
		return nil, err
	}
	w := &walker{
		root:      root,
		opts:      opts,
		languages: make(map[model.Language]struct{}, len(opts.Languages)),
		ignores:   ignores,
		tracked:   gitLsFiles(root),
	}
	for _, l := range opts.Languages {
		w.languages[l] = struct{}{}
	}
	if w.tracked == nil {
		w.gitignore = loadGitignore(root)
	}

	if err := filepath.WalkDir(root, w.visit); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	slices.SortFunc(w.found, func(a, b FileEntry) int { return cmp.Compare(a.Path, b.Path) })
	return w.found, nil
}

func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		// Unreadable entries are skipped, not fatal.
		return nil
	}
	name := d.Name()
	if d.IsDir() {
		if path != w.root && hiddenOrSkipped(name) {
			return filepath.SkipDir
		}
		return nil
	}
	if strings.HasPrefix(name, ".") || d.Type()&fs.ModeSymlink != 0 {
		return nil
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if w.excluded(rel) {
		return nil
	}

	l := lang.ForPath(name)
	if l == nil {
		return nil
	}
	if len(w.languages) > 0 {
		if _, ok := w.languages[l.ID]; !ok {
			return nil
		}
	}
	if w.opts.MaxFileSize > 0 {
		if info, err := d.Info(); err == nil && info.Size() > w.opts.MaxFileSize {
			return nil
		}
	}

	w.found = append(w.found, FileEntry{Path: rel, Language: l.ID})
	return nil
}

func hiddenOrSkipped(dir string) bool {
	if strings.HasPrefix(dir, ".") {
		return true
	}
	_, skip := skipDirs[dir]
	return skip
}

func (w *walker) excluded(rel string) bool {
	switch {
	case w.tracked != nil:
		if _, ok := w.tracked[rel]; !ok {
			return true
		}
	case w.gitignore != nil && w.gitignore.MatchesPath(rel):
		return true
	}
	return matchAny(w.ignores, rel)
}

func compile(patterns []string) ([]matcher, error) {
	out := make([]matcher, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		m := matcher{glob: g}
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			if m.root, err = glob.Compile(rest, '/'); err != nil {
				return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func matchAny(matchers []matcher, rel string) bool {
	topLevel := !strings.Contains(rel, "/")
	for _, m := range matchers {
		if m.glob.Match(rel) {
			return true
		}
		if topLevel && m.root != nil && m.root.Match(rel) {
			return true
		}
	}
	return false
}

// gitLsFiles returns the files git would index under root, or nil when root
// is not the top of a git checkout or git is unavailable.
func gitLsFiles(root string) map[string]struct{} {
	if info, err := os.Stat(filepath.Join(root, ".git")); err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", root, "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, name := range bytes.Split(out, []byte{0}) {
		if len(name) > 0 {
			files[string(name)] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
