// Package parse extracts tags from source files using tree-sitter.
package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/tagindex/internal/lang"
	"github.com/phobologic/tagindex/internal/model"
)

// Parser turns source text into tags. It keeps one tree-sitter parser per
// language and, like those, is not safe for concurrent use.
type Parser struct {
	parsers map[model.Language]*sitter.Parser
}

// New returns a Parser for every registered language.
func New() *Parser {
	return &Parser{parsers: make(map[model.Language]*sitter.Parser)}
}

// Detect returns the language for path by extension, or model.LangAny when
// no registered language handles it.
func (p *Parser) Detect(path string) model.Language {
	if l := lang.ForPath(path); l != nil {
		return l.ID
	}
	return model.LangAny
}

// Parse extracts the tags in source. Every tag points at ref. A file in an
// unsupported language, or an empty file, has no tags.
func (p *Parser) Parse(ref *model.FileRef, source []byte) ([]*model.Tag, error) {
	l := lang.ForID(ref.Language)
	if l == nil || len(source) == 0 {
		return nil, nil
	}

	sp, ok := p.parsers[l.ID]
	if !ok {
		sp = l.NewParser()
		p.parsers[l.ID] = sp
	}

	tree, err := sp.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ref.Path, err)
	}
	defer tree.Close()

	return l.Extract(tree.RootNode(), source, ref), nil
}
