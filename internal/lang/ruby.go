package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/tagindex/internal/model"
)

func init() {
	Languages["ruby"] = &Language{
		Name:       "ruby",
		ID:         model.LangRuby,
		Extensions: []string{".rb"},
		lang:       ruby.GetLanguage(),
		Extract: func(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag {
			c := newCollector(source, ref, "::")
			rubyBody(c, root, false)
			return c.tags
		},
	}
}

// rubyBody tags classes, modules, methods and constants among the children
// of n. Method bodies are not descended into.
func rubyBody(c *collector, n *sitter.Node, inClass bool) {
	children(n, func(child *sitter.Node) {
		switch child.Type() {
		case "class":
			rubyContainer(c, child, model.TypeClass)
		case "module":
			rubyContainer(c, child, model.TypeNamespace)
		case "method":
			typ := model.TypeFunction
			if inClass {
				typ = model.TypeMethod
			}
			t := c.add(child, c.text(child.ChildByFieldName("name")), typ)
			t.Arglist = CollapseWhitespace(c.text(child.ChildByFieldName("parameters")))
		case "singleton_method":
			t := c.add(child, c.text(child.ChildByFieldName("name")), model.TypeMethod)
			t.Arglist = CollapseWhitespace(c.text(child.ChildByFieldName("parameters")))
		case "assignment":
			left := child.ChildByFieldName("left")
			if left != nil && left.Type() == "constant" {
				c.add(child, c.text(left), model.TypeVariable)
			}
		case "body_statement", "begin_block", "if", "unless":
			rubyBody(c, child, inClass)
		}
	})
}

func rubyContainer(c *collector, n *sitter.Node, typ model.TagType) {
	full := rubyClassName(n, c.source)
	if full == "" {
		return
	}
	// "class A::B" declares B inside A.
	name, outer := full, ""
	if i := strings.LastIndex(full, "::"); i >= 0 {
		name, outer = full[i+2:], full[:i]
	}

	saved := c.scope
	if outer != "" {
		c.scope = append(append([]string(nil), c.scope...), outer)
	}
	t := c.add(n, name, typ)
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		t.Inheritance = joinNames(c, sc, "constant", "scope_resolution")
	}
	c.push(name)
	rubyBody(c, n, true)
	c.scope = saved
}

// rubyClassName extracts the name from a class or module node.
func rubyClassName(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "constant" || child.Type() == "scope_resolution" {
			return NodeText(child, source)
		}
	}
	return ""
}
