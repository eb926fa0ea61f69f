package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/phobologic/tagindex/internal/discover"
	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/tags"
)

// Project groups the source files found under one directory. Its tag array
// is the merged array of its files, rebuilt the same way as the workspace's.
type Project struct {
	dir    string
	parser Parser
	log    *slog.Logger
	files  []Object
	tags   *tags.Array
	parent Object
}

// NewProject returns an empty project rooted at dir. Call Scan to populate it.
func NewProject(dir string, parser Parser, logger *slog.Logger) (*Project, error) {
	abs, err := canonical(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Project{dir: abs, parser: parser, log: logger, tags: tags.New()}, nil
}

func (p *Project) Name() string      { return p.dir }
func (p *Project) Kind() Kind        { return KindProject }
func (p *Project) Tags() *tags.Array { return p.tags }
func (p *Project) Parent() Object    { return p.parent }

func (p *Project) setParent(parent Object) { p.parent = parent }

// Files returns the project's source files in the order they were added.
func (p *Project) Files() []Object { return slices.Clone(p.files) }

// Scan adds a source file for every discovered file not already in the
// project, then rebuilds. Files that fail to parse are logged and skipped.
func (p *Project) Scan(opts discover.Options) error {
	entries, err := discover.Files(p.dir, opts)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", p.dir, err)
	}
	added := 0
	for _, e := range entries {
		path := filepath.Join(p.dir, filepath.FromSlash(e.Path))
		if p.FindObject(path, false) != nil {
			continue
		}
		f, err := NewSourceFile(path, e.Language, p.parser)
		if err != nil {
			p.log.Warn("skipping file", "path", path, "error", err)
			continue
		}
		f.setParent(p)
		p.files = append(p.files, f)
		added++
	}
	p.log.Debug("project scanned", "dir", p.dir, "discovered", len(entries), "added", added)
	p.Update(true, false, true)
	return nil
}

// AddFile parses path and adds it to the project. Adding a path that is
// already present returns the existing file.
func (p *Project) AddFile(path string) (*SourceFile, error) {
	if existing, ok := p.FindObject(path, false).(*SourceFile); ok {
		return existing, nil
	}
	f, err := NewSourceFile(path, model.LangAny, p.parser)
	if err != nil {
		return nil, err
	}
	f.setParent(p)
	p.files = append(p.files, f)
	p.Update(true, false, true)
	return f, nil
}

// RemoveFile drops the file at path from the project and reports whether it
// was present.
func (p *Project) RemoveFile(path string) bool {
	for i, f := range p.files {
		if f.FindObject(path, false) != nil {
			p.files = slices.Delete(p.files, i, i+1)
			f.Free()
			p.Update(true, false, true)
			return true
		}
	}
	return false
}

// Update refreshes the project's files when recurse is set and rebuilds the
// merged array when forced or when any file changed.
func (p *Project) Update(force, recurse, updateParent bool) bool {
	changed := force
	if recurse {
		for _, f := range p.files {
			if f.Update(false, true, false) {
				changed = true
			}
			if sf, ok := f.(*SourceFile); ok && sf.Err() != nil {
				p.log.Warn("file update failed", "path", sf.Name(), "error", sf.Err())
			}
		}
	}
	if !changed {
		return false
	}
	p.rebuild()
	if updateParent && p.parent != nil {
		p.parent.Update(true, false, false)
	}
	return true
}

func (p *Project) rebuild() {
	p.tags.Reset()
	for _, f := range p.files {
		p.tags.Add(f.Tags().Tags...)
	}
	p.tags.SortDedup(tags.WorkspaceSort...)
}

func (p *Project) FindObject(path string, nameOnly bool) Object {
	for _, f := range p.files {
		if found := f.FindObject(path, nameOnly); found != nil {
			return found
		}
	}
	return nil
}

func (p *Project) Free() {
	for _, f := range p.files {
		f.Free()
	}
	p.files = nil
	p.tags = tags.New()
	p.parent = nil
}

func (p *Project) Dump(w io.Writer, depth int) {
	fmt.Fprintf(w, "%s%s %s (%d tags)\n", strings.Repeat("  ", depth), p.Kind(), p.dir, p.tags.Len())
	for _, f := range p.files {
		f.Dump(w, depth+1)
	}
}
