package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/tags"
)

// SourceFile owns the tags parsed from one file.
type SourceFile struct {
	ref    *model.FileRef
	parser Parser
	tags   *tags.Array
	parent Object

	hash   uint64
	hashed bool
	err    error
}

// NewSourceFile creates a source file object for path and parses it. When
// lang is model.LangAny the language is detected from the path.
func NewSourceFile(path string, lang model.Language, parser Parser) (*SourceFile, error) {
	abs, err := canonical(path)
	if err != nil {
		return nil, err
	}
	if lang == model.LangAny && parser != nil {
		lang = parser.Detect(abs)
	}
	f := &SourceFile{
		ref:    &model.FileRef{Path: abs, Language: lang},
		parser: parser,
		tags:   tags.New(),
	}
	if _, err := f.refresh(true); err != nil {
		return nil, err
	}
	return f, nil
}

// NewSourceFileFromTags creates a source file object whose tags come from
// memory instead of a parser. Each tag's provenance is set to the new file.
// Update never re-reads such a file; use SetTags to replace its tags.
func NewSourceFileFromTags(path string, lang model.Language, ts ...*model.Tag) *SourceFile {
	abs, err := canonical(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	f := &SourceFile{
		ref:  &model.FileRef{Path: abs, Language: lang},
		tags: tags.New(),
	}
	f.setTags(ts)
	return f
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

func (f *SourceFile) Name() string      { return f.ref.Path }
func (f *SourceFile) Kind() Kind        { return KindSourceFile }
func (f *SourceFile) Tags() *tags.Array { return f.tags }
func (f *SourceFile) Parent() Object    { return f.parent }

func (f *SourceFile) setParent(p Object) { f.parent = p }

// Language returns the language the file is parsed as.
func (f *SourceFile) Language() model.Language { return f.ref.Language }

// Ref returns the provenance shared by the file's tags.
func (f *SourceFile) Ref() *model.FileRef { return f.ref }

// Err returns the error of the last failed refresh, or nil.
func (f *SourceFile) Err() error { return f.err }

// SetTags replaces the file's tags and, when the file is attached, forces its
// parent to rebuild.
func (f *SourceFile) SetTags(ts ...*model.Tag) {
	f.setTags(ts)
	if f.parent != nil {
		f.parent.Update(true, false, true)
	}
}

func (f *SourceFile) setTags(ts []*model.Tag) {
	for _, t := range ts {
		t.File = f.ref
	}
	f.tags = tags.New(ts...)
	f.tags.Sort(tags.FileSort...)
}

// Update re-reads and re-parses the file. Unchanged content is skipped
// unless force is set. recurse has no meaning for a leaf.
func (f *SourceFile) Update(force, recurse, updateParent bool) bool {
	if f.parser == nil {
		return false
	}
	changed, err := f.refresh(force)
	f.err = err
	if !changed {
		return false
	}
	if updateParent && f.parent != nil {
		f.parent.Update(true, false, true)
	}
	return true
}

func (f *SourceFile) refresh(force bool) (bool, error) {
	source, err := os.ReadFile(f.ref.Path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", f.ref.Path, err)
	}
	sum := xxhash.Sum64(source)
	if !force && f.hashed && sum == f.hash {
		return false, nil
	}

	var parsed []*model.Tag
	if f.parser != nil {
		if parsed, err = f.parser.Parse(f.ref, source); err != nil {
			return false, err
		}
	}
	f.hash, f.hashed = sum, true
	f.tags = tags.New(parsed...)
	f.tags.Sort(tags.FileSort...)
	return true, nil
}

// FindObject matches the file's own path. Paths are compared after making them
// absolute; with nameOnly only the base names are compared.
func (f *SourceFile) FindObject(path string, nameOnly bool) Object {
	if nameOnly {
		if filepath.Base(path) == filepath.Base(f.ref.Path) {
			return f
		}
		return nil
	}
	abs, err := canonical(path)
	if err == nil && abs == f.ref.Path {
		return f
	}
	return nil
}

func (f *SourceFile) Free() {
	f.tags = tags.New()
	f.parent = nil
}

func (f *SourceFile) Dump(w io.Writer, depth int) {
	fmt.Fprintf(w, "%s%s %s [%s] (%d tags)\n",
		strings.Repeat("  ", depth), f.Kind(), f.ref.Path, f.ref.Language, f.tags.Len())
}
