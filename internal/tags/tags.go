// Package tags implements sorted tag arrays with multi-key ordering and
// binary-search lookup by name.
package tags

import (
	"cmp"
	"slices"
	"strings"

	"github.com/phobologic/tagindex/internal/model"
)

// Attr is a sort key.
type Attr int

const (
	AttrName Attr = iota + 1
	AttrType
	AttrFile
	AttrLine
	AttrScope
	AttrArglist
	AttrVarType
	AttrPointer
	AttrLang
)

// Common key lists.
var (
	// GlobalSort orders global tag collections and built tag files.
	GlobalSort = []Attr{AttrName, AttrScope, AttrType, AttrArglist}
	// WorkspaceSort orders the merged workspace and project arrays.
	WorkspaceSort = []Attr{AttrName, AttrFile, AttrScope, AttrType, AttrArglist}
	// FileSort orders the tags of a single source file.
	FileSort = []Attr{AttrName, AttrLine, AttrType}
)

// Array is an ordered sequence of shared tag records. The same *model.Tag may
// live in several arrays at once (a file's own array and the merged one).
type Array struct {
	Tags []*model.Tag

	sortedBy []Attr
}

// New returns an unsorted array holding tags.
func New(tags ...*model.Tag) *Array {
	return &Array{Tags: tags}
}

// Len returns the number of tags.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Tags)
}

// Add appends tags and marks the array unsorted.
func (a *Array) Add(tags ...*model.Tag) {
	a.Tags = append(a.Tags, tags...)
	a.sortedBy = nil
}

// Reset empties the array, keeping its storage.
func (a *Array) Reset() {
	clear(a.Tags)
	a.Tags = a.Tags[:0]
	a.sortedBy = nil
}

// SortedBy returns the keys of the last sort, or nil if the array has been
// modified since.
func (a *Array) SortedBy() []Attr {
	if a == nil {
		return nil
	}
	return a.sortedBy
}

// Sort orders the array by attrs in priority order. The sort is stable.
func (a *Array) Sort(attrs ...Attr) {
	slices.SortStableFunc(a.Tags, func(x, y *model.Tag) int {
		return Compare(x, y, attrs)
	})
	a.sortedBy = slices.Clone(attrs)
}

// SortDedup sorts like Sort, then drops every record that compares equal on
// all attrs to its predecessor. The first of each run survives.
func (a *Array) SortDedup(attrs ...Attr) {
	a.Sort(attrs...)
	if len(a.Tags) < 2 {
		return
	}
	out := a.Tags[:1]
	for _, t := range a.Tags[1:] {
		if Compare(out[len(out)-1], t, attrs) != 0 {
			out = append(out, t)
		}
	}
	clear(a.Tags[len(out):])
	a.Tags = out
}

// Find returns the contiguous run of tags whose name equals name, or starts
// with name when partial is set. The array must already be sorted with
// AttrName as its primary key; results are undefined otherwise.
//
// The returned slice aliases the array and is invalidated by the next
// modification of it.
func (a *Array) Find(name string, partial bool) []*model.Tag {
	if a.Len() == 0 || name == "" {
		return nil
	}

	match := func(t *model.Tag) int {
		if partial {
			return comparePrefix(t.Name, name)
		}
		return strings.Compare(t.Name, name)
	}

	// Binary search lands on some member of the run, not necessarily its
	// first element, so widen in both directions afterwards.
	lo, hi := 0, len(a.Tags)-1
	hit := -1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		c := match(a.Tags[mid])
		switch {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid - 1
		default:
			hit = mid
			lo = hi + 1
		}
	}
	if hit < 0 {
		return nil
	}

	first, last := hit, hit
	for first > 0 && match(a.Tags[first-1]) == 0 {
		first--
	}
	for last < len(a.Tags)-1 && match(a.Tags[last+1]) == 0 {
		last++
	}
	return a.Tags[first : last+1]
}

// Extract returns a new array holding the tags whose type intersects mask,
// in their current order.
func (a *Array) Extract(mask model.TagType) *Array {
	out := &Array{}
	if a == nil {
		return out
	}
	for _, t := range a.Tags {
		if t.Type&mask != 0 {
			out.Tags = append(out.Tags, t)
		}
	}
	return out
}

// comparePrefix compares the first len(prefix) bytes of name with prefix,
// like strncmp.
func comparePrefix(name, prefix string) int {
	if len(name) > len(prefix) {
		name = name[:len(prefix)]
	}
	return strings.Compare(name, prefix)
}

// Compare orders two tags by attrs in priority order.
func Compare(x, y *model.Tag, attrs []Attr) int {
	for _, attr := range attrs {
		var c int
		switch attr {
		case AttrName:
			c = strings.Compare(x.Name, y.Name)
		case AttrType:
			c = cmp.Compare(x.Type, y.Type)
		case AttrFile:
			c = compareFile(x.File, y.File)
		case AttrLine:
			c = cmp.Compare(x.Line, y.Line)
		case AttrScope:
			c = strings.Compare(x.Scope, y.Scope)
		case AttrArglist:
			c = strings.Compare(x.Arglist, y.Arglist)
		case AttrVarType:
			c = strings.Compare(x.VarType, y.VarType)
		case AttrPointer:
			c = cmp.Compare(x.Pointer, y.Pointer)
		case AttrLang:
			c = cmp.Compare(x.Language(), y.Language())
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareFile(x, y *model.FileRef) int {
	switch {
	case x == y:
		return 0
	case x == nil:
		return -1
	case y == nil:
		return 1
	}
	return strings.Compare(x.Path, y.Path)
}
