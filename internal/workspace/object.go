// Package workspace holds the tree of work objects (source files and
// projects) under a workspace root, the merged tag array built from them and
// the global tags loaded from tag files, and answers lookups over both.
//
// A Workspace is single-writer: callers must not mutate it from several
// goroutines without their own locking.
package workspace

import (
	"io"

	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/tags"
)

// Kind identifies the concrete variant of an Object.
type Kind int

const (
	KindSourceFile Kind = iota
	KindProject
	KindWorkspace
)

func (k Kind) String() string {
	switch k {
	case KindSourceFile:
		return "file"
	case KindProject:
		return "project"
	case KindWorkspace:
		return "workspace"
	}
	return "unknown"
}

// Object is a node of the work object tree. The set of implementations is
// closed: *SourceFile, *Project and *Workspace.
type Object interface {
	// Name is the file or directory path; for a workspace, its id.
	Name() string
	Kind() Kind
	// Tags returns the object's own tag array. For projects and workspaces it
	// is the merged array of their children.
	Tags() *tags.Array
	// Parent returns the object this one is attached to, or nil.
	Parent() Object
	// Update refreshes the object's tags and reports whether anything
	// changed. With recurse, children are updated first. With updateParent,
	// a change forces the parent to rebuild.
	Update(force, recurse, updateParent bool) bool
	// FindObject searches the subtree depth-first for a source file by path,
	// or by base name when nameOnly is set.
	FindObject(path string, nameOnly bool) Object
	// Free releases the object's tags and children and detaches it.
	Free()
	// Dump writes a debug tree rooted at the object.
	Dump(w io.Writer, depth int)

	setParent(parent Object)
}

// Parser produces the tags of one source file.
type Parser interface {
	Detect(path string) model.Language
	Parse(ref *model.FileRef, source []byte) ([]*model.Tag, error)
}

var (
	_ Object = (*SourceFile)(nil)
	_ Object = (*Project)(nil)
	_ Object = (*Workspace)(nil)
)
