// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and the walkers that turn their syntax trees into tags.
package lang

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/tagindex/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	ID         model.Language
	Extensions []string
	lang       *sitter.Language

	// Extract walks a parsed tree and returns its tags. Every tag points at ref.
	Extract func(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag
}

// NewParser creates a fresh tree-sitter parser for this language.
// Parsers are not safe for concurrent use.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

var (
	extensionMap  map[string]*Language
	byID          map[model.Language]*Language
	extensionOnce sync.Once
)

func buildMaps() {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]*Language)
		byID = make(map[model.Language]*Language)
		for _, l := range Languages {
			byID[l.ID] = l
			for _, ext := range l.Extensions {
				extensionMap[ext] = l
			}
		}
	})
}

// ForExtension returns the language for a file extension, or nil if unsupported.
func ForExtension(ext string) *Language {
	buildMaps()
	return extensionMap[strings.ToLower(ext)]
}

// ForPath returns the language for a file path, or nil if unsupported.
func ForPath(path string) *Language {
	return ForExtension(filepath.Ext(path))
}

// ForID returns the registered language with the given id, or nil.
func ForID(id model.Language) *Language {
	buildMaps()
	return byID[id]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// collector accumulates tags during a tree walk and tracks the enclosing
// scope chain.
type collector struct {
	source []byte
	ref    *model.FileRef
	sep    string
	scope  []string
	tags   []*model.Tag
}

func newCollector(source []byte, ref *model.FileRef, sep string) *collector {
	return &collector{source: source, ref: ref, sep: sep}
}

func (c *collector) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return NodeText(n, c.source)
}

func (c *collector) scopeName() string {
	return strings.Join(c.scope, c.sep)
}

func (c *collector) push(name string) {
	c.scope = append(c.scope, name)
}

func (c *collector) pop() {
	c.scope = c.scope[:len(c.scope)-1]
}

// add records a tag at node's start line in the current scope.
func (c *collector) add(node *sitter.Node, name string, typ model.TagType) *model.Tag {
	t := &model.Tag{
		Name:  name,
		Type:  typ,
		Line:  int(node.StartPoint().Row) + 1,
		Scope: c.scopeName(),
		File:  c.ref,
	}
	c.tags = append(c.tags, t)
	return t
}

// children calls fn for every named child of n.
func children(n *sitter.Node, fn func(child *sitter.Node)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		fn(n.NamedChild(i))
	}
}

// fieldChildren returns the children of n attached under field.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// joinNames collects the text of children of n whose type is in kinds into a
// comma-separated list.
func joinNames(c *collector, n *sitter.Node, kinds ...string) string {
	if n == nil {
		return ""
	}
	var names []string
	children(n, func(child *sitter.Node) {
		for _, k := range kinds {
			if child.Type() == k {
				names = append(names, CollapseWhitespace(c.text(child)))
				return
			}
		}
	})
	return strings.Join(names, ",")
}
