// Package globaltags builds global tag files: it collects a set of header
// files, optionally runs them through a preprocessor, parses the result as
// one translation unit and writes the selected tags in tag file format.
package globaltags

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/phobologic/tagindex/internal/lang"
	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/parse"
	"github.com/phobologic/tagindex/internal/tagfile"
	"github.com/phobologic/tagindex/internal/tags"
)

var (
	// ErrNoIncludes is returned when no include spec expands to a file.
	ErrNoIncludes = errors.New("no include files")
	// ErrNoTags is returned when the combined source yields no tags at all,
	// which is also how a failed preprocessor run shows up.
	ErrNoTags = errors.New("no tags parsed")
	// ErrNoMatchingTags is returned when no parsed tag survives the type mask.
	ErrNoMatchingTags = errors.New("no tags match the language type mask")
)

// Placeholder marks where the preprocessor argv takes the input file.
const Placeholder = "{}"

// Lines consisting only of these macros confuse the C parser and are dropped
// from preprocessor output.
var declGuardRe = regexp.MustCompile(`^\s*(G_BEGIN_DECLS|G_END_DECLS)\s*$`)

// Parser parses the combined translation unit.
type Parser interface {
	Parse(ref *model.FileRef, source []byte) ([]*model.Tag, error)
}

// Options configures Build.
type Options struct {
	// Preprocessor is the command run over the combined file, as an argv.
	// Placeholder is replaced by the input path; without one the path is
	// appended. Empty means the include files are concatenated verbatim.
	Preprocessor []string
	// Includes are file paths. When the first one starts with a double quote
	// every spec is a glob pattern wrapped in quotes.
	Includes []string
	Language model.Language
	Output   string

	// Identity maps a path to a key shared by all paths of the same physical
	// file. Defaults to FileIdentity.
	Identity func(path string) (string, error)
	// TempDir holds the intermediate files. Defaults to os.TempDir().
	TempDir string
	// Parser defaults to the tree-sitter parser.
	Parser Parser
	Logger *slog.Logger
}

// TypeMask returns the tag kinds kept in a global tag file for l.
func TypeMask(l model.Language) model.TagType {
	switch l {
	case model.LangC, model.LangCPP:
		return model.TypeClass | model.TypeTypedef | model.TypeEnum | model.TypeEnumerator |
			model.TypePrototype |
			model.TypeFunction | model.TypeMethod | // inline functions
			model.TypeMacro | model.TypeMacroWithArg
	}
	return model.TypeAny
}

// Build writes the global tag file described by opts. Every intermediate file
// is removed before it returns, on success and on failure.
func Build(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	identity := opts.Identity
	if identity == nil {
		identity = FileIdentity
	}
	parser := opts.Parser
	if parser == nil {
		parser = parse.New()
	}

	files, err := Expand(opts.Includes, identity)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNoIncludes
	}
	log.Debug("include files collected", "specs", len(opts.Includes), "files", len(files))

	ext := ".c"
	if l := lang.ForID(opts.Language); l != nil && len(l.Extensions) > 0 {
		ext = l.Extensions[0]
	}

	src, err := os.CreateTemp(opts.TempDir, "tagindex-*"+ext)
	if err != nil {
		return fmt.Errorf("creating source file: %w", err)
	}
	defer removeTemp(log, src.Name())

	if len(opts.Preprocessor) > 0 {
		err = writeIncludes(src, files)
	} else {
		err = concatenate(src, files, log)
	}
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing source file: %w", err)
	}

	unit := src.Name()
	if len(opts.Preprocessor) > 0 {
		out, err := os.CreateTemp(opts.TempDir, "tagindex-*"+ext)
		if err != nil {
			return fmt.Errorf("creating preprocessed file: %w", err)
		}
		defer removeTemp(log, out.Name())

		err = preprocess(ctx, opts.Preprocessor, src.Name(), out, log)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("preprocessing: %w", err)
		}
		unit = out.Name()
	}

	source, err := os.ReadFile(unit)
	if err != nil {
		return fmt.Errorf("reading translation unit: %w", err)
	}
	parsed, err := parser.Parse(&model.FileRef{Path: unit, Language: opts.Language}, source)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		return ErrNoTags
	}

	selected := tags.New(parsed...).Extract(TypeMask(opts.Language))
	if selected.Len() == 0 {
		return ErrNoMatchingTags
	}
	selected.SortDedup(tags.GlobalSort...)

	dst, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("creating tag file: %w", err)
	}
	err = tagfile.Write(dst, selected.Tags, tagfile.FieldAll)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing tag file: %w", err)
	}
	log.Debug("global tags written", "output", opts.Output, "parsed", len(parsed), "written", selected.Len())
	return nil
}

// Expand turns include specs into a list of files in which every physical
// file appears once, in first-seen order. If the first spec starts with a
// double quote, all specs are glob patterns with their first and last
// characters (the quotes) stripped; each pattern's matches are taken in
// lexical order.
func Expand(specs []string, identity func(string) (string, error)) ([]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	var candidates []string
	if strings.HasPrefix(specs[0], `"`) {
		for _, spec := range specs {
			if len(spec) < 2 {
				continue
			}
			pattern := spec[1 : len(spec)-1]
			matches, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
			}
			sort.Strings(matches)
			candidates = append(candidates, matches...)
		}
	} else {
		candidates = specs
	}

	seen := make(map[string]struct{}, len(candidates))
	files := make([]string, 0, len(candidates))
	for _, path := range candidates {
		key, err := identity(path)
		if err != nil {
			// Unidentifiable files are kept by name; reading them fails later.
			key = "path:" + path
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		files = append(files, path)
	}
	return files, nil
}

func writeIncludes(w io.Writer, files []string) error {
	bw := bufio.NewWriter(w)
	for _, f := range files {
		if _, err := fmt.Fprintf(bw, "#include \"%s\"\n", f); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// concatenate appends each file followed by a newline, so a file lacking a
// final newline cannot join lines with the next one. Unreadable files are
// skipped.
func concatenate(w io.Writer, files []string, log *slog.Logger) error {
	for _, f := range files {
		contents, err := os.ReadFile(f)
		if err != nil {
			log.Warn("unable to read include file", "path", f, "error", err)
			continue
		}
		if _, err := w.Write(contents); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// preprocess runs argv over input and copies its output into out with the
// declaration guard lines removed. The exit status is not trusted either
// way: a failed run leaves little or nothing in out, which the caller
// detects as an empty parse.
// maxPreprocessedLine bounds a single line of preprocessor output.
const maxPreprocessedLine = 16 << 20

func preprocess(ctx context.Context, argv []string, input string, out io.Writer, log *slog.Logger) error {
	args := make([]string, 0, len(argv)+1)
	replaced := false
	for _, a := range argv {
		if strings.Contains(a, Placeholder) {
			a = strings.ReplaceAll(a, Placeholder, input)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, input)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	log.Debug("running preprocessor", "argv", args)
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("preprocessor did not start", "argv", args, "error", err)
		return nil
	}

	bw := bufio.NewWriter(out)
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), maxPreprocessedLine)
	var werr error
	for sc.Scan() {
		line := sc.Bytes()
		if declGuardRe.Match(line) || werr != nil {
			continue
		}
		if _, err := bw.Write(line); err != nil {
			werr = err
			continue
		}
		werr = bw.WriteByte('\n')
	}
	// Drain what the scanner left so the process can exit.
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		log.Debug("preprocessor exit status ignored", "error", err)
	}
	if werr != nil {
		return werr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading preprocessor output: %w", err)
	}
	return bw.Flush()
}

func removeTemp(log *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("removing temporary file", "path", path, "error", err)
	}
}
