package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/tagfile"
	"github.com/phobologic/tagindex/internal/tags"
)

// ErrClosed is returned by mutators called on a nil or closed workspace.
var ErrClosed = errors.New("workspace is closed")

// Workspace is the root of the work object tree. It owns the top-level
// objects, the merged tag array rebuilt from them and the global tags.
//
// Every method is safe to call on a nil or closed *Workspace: queries return
// nothing and mutators report failure.
type Workspace struct {
	id      string
	log     *slog.Logger
	objects []Object
	tags    *tags.Array
	global  *tags.Array
	closed  bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		id:     uuid.NewString(),
		log:    slog.New(slog.DiscardHandler),
		tags:   tags.New(),
		global: tags.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("workspace", w.id)
	w.log.Debug("workspace created")
	return w
}

func (w *Workspace) live() bool { return w != nil && !w.closed }

// Close frees every object depth-first and releases the global tags. A
// closed workspace stays closed.
func (w *Workspace) Close() {
	if !w.live() {
		return
	}
	for _, obj := range w.objects {
		obj.Free()
	}
	w.objects = nil
	w.tags = tags.New()
	w.global = tags.New()
	w.closed = true
	w.log.Debug("workspace closed")
}

// Free is Close, for the Object interface.
func (w *Workspace) Free() { w.Close() }

// Name returns the workspace id.
func (w *Workspace) Name() string {
	if w == nil {
		return ""
	}
	return w.id
}

func (w *Workspace) Kind() Kind     { return KindWorkspace }
func (w *Workspace) Parent() Object { return nil }

// The workspace is always the root.
func (w *Workspace) setParent(Object) {}

// Tags returns the merged array of every attached object's tags, sorted by
// name, file, scope, type and arglist.
func (w *Workspace) Tags() *tags.Array {
	if !w.live() {
		return nil
	}
	return w.tags
}

// GlobalTags returns the tags loaded from tag files, sorted by name, scope,
// type and arglist.
func (w *Workspace) GlobalTags() *tags.Array {
	if !w.live() {
		return nil
	}
	return w.global
}

// Objects returns the attached top-level objects in attach order.
func (w *Workspace) Objects() []Object {
	if !w.live() {
		return nil
	}
	return slices.Clone(w.objects)
}

// AddObject attaches obj to the workspace. The merged array is not rebuilt;
// call Update or RecreateTags afterwards. Objects already attached somewhere
// are rejected.
func (w *Workspace) AddObject(obj Object) bool {
	if !w.live() || obj == nil || obj.Kind() == KindWorkspace || obj.Parent() != nil {
		return false
	}
	w.objects = append(w.objects, obj)
	obj.setParent(w)
	return true
}

// RemoveObject detaches obj, frees it when free is set, and always rebuilds
// the merged array. It reports false when obj is not attached here.
func (w *Workspace) RemoveObject(obj Object, free bool) bool {
	if !w.live() || obj == nil {
		return false
	}
	i := slices.Index(w.objects, obj)
	if i < 0 {
		return false
	}
	w.objects = slices.Delete(w.objects, i, i+1)
	obj.setParent(nil)
	if free {
		obj.Free()
	}
	w.Update(true, false, false)
	return true
}

// LoadGlobalTags appends the tags in the file at path to the global tags,
// giving each the language lang, and re-sorts the whole collection. A
// malformed record ends the load early but keeps what was read before it.
// Any other read error leaves the global tags untouched.
func (w *Workspace) LoadGlobalTags(path string, lang model.Language) error {
	if !w.live() {
		return ErrClosed
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loading global tags: %w", err)
	}
	defer f.Close()

	loaded, err := tagfile.Read(f, lang)
	switch {
	case errors.Is(err, tagfile.ErrMalformed):
		w.log.Warn("global tag file truncated at malformed record", "path", path, "error", err)
	case err != nil:
		return fmt.Errorf("loading global tags from %s: %w", path, err)
	}
	w.global.Add(loaded...)
	w.global.SortDedup(tags.GlobalSort...)
	w.log.Debug("global tags loaded", "path", path, "lang", lang, "count", len(loaded), "total", w.global.Len())
	return nil
}

// RecreateTags rebuilds the merged array from every attached object's own
// array in attach order. Nested projects contribute their already merged
// array; they are not expanded further.
func (w *Workspace) RecreateTags() {
	if !w.live() {
		return
	}
	w.tags.Reset()
	for _, obj := range w.objects {
		w.tags.Add(obj.Tags().Tags...)
	}
	w.tags.SortDedup(tags.WorkspaceSort...)
	w.log.Debug("merged tags rebuilt", "objects", len(w.objects), "tags", w.tags.Len())
}

// Update refreshes attached objects when recurse is set and rebuilds the
// merged array when forced or when any object changed. updateParent is
// ignored: the workspace has no parent.
func (w *Workspace) Update(force, recurse, updateParent bool) bool {
	if !w.live() {
		return false
	}
	changed := force
	if recurse {
		for _, obj := range w.objects {
			if obj.Update(false, true, false) {
				changed = true
			}
			if sf, ok := obj.(*SourceFile); ok && sf.Err() != nil {
				w.log.Warn("file update failed", "path", sf.Name(), "error", sf.Err())
			}
		}
	}
	if changed {
		w.RecreateTags()
	}
	return changed
}

// FindObject returns the first object in the tree matching path.
func (w *Workspace) FindObject(path string, nameOnly bool) Object {
	if !w.live() {
		return nil
	}
	for _, obj := range w.objects {
		if found := obj.FindObject(path, nameOnly); found != nil {
			return found
		}
	}
	return nil
}

// FindFile is FindObject narrowed to source files.
func (w *Workspace) FindFile(path string, nameOnly bool) *SourceFile {
	f, _ := w.FindObject(path, nameOnly).(*SourceFile)
	return f
}

// Dump writes the workspace tree.
func (w *Workspace) Dump(out io.Writer, depth int) {
	if !w.live() {
		return
	}
	fmt.Fprintf(out, "%s%s %s (%d tags, %d global)\n",
		strings.Repeat("  ", depth), w.Kind(), w.id, w.tags.Len(), w.global.Len())
	for _, obj := range w.objects {
		obj.Dump(out, depth+1)
	}
}
