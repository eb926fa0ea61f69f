package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/tagindex/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		ID:         model.LangPython,
		Extensions: []string{".py"},
		lang:       python.GetLanguage(),
		Extract: func(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag {
			c := newCollector(source, ref, ".")
			pythonBlock(c, root, false)
			return c.tags
		},
	}
}

// pythonBlock tags the definitions directly inside a module or class body.
// Function bodies are not descended into.
func pythonBlock(c *collector, block *sitter.Node, inClass bool) {
	children(block, func(n *sitter.Node) {
		if n.Type() == "decorated_definition" {
			n = n.ChildByFieldName("definition")
			if n == nil {
				return
			}
		}
		switch n.Type() {
		case "class_definition":
			pythonClass(c, n)
		case "function_definition":
			typ := model.TypeFunction
			if inClass {
				typ = model.TypeMethod
			}
			t := c.add(n, c.text(n.ChildByFieldName("name")), typ)
			t.Arglist = CollapseWhitespace(c.text(n.ChildByFieldName("parameters")))
			t.VarType = CollapseWhitespace(c.text(n.ChildByFieldName("return_type")))
		case "expression_statement":
			children(n, func(expr *sitter.Node) {
				if expr.Type() != "assignment" {
					return
				}
				left := expr.ChildByFieldName("left")
				if left == nil || left.Type() != "identifier" {
					return
				}
				typ := model.TypeVariable
				if inClass {
					typ = model.TypeMember
				}
				t := c.add(expr, c.text(left), typ)
				t.VarType = CollapseWhitespace(c.text(expr.ChildByFieldName("type")))
			})
		}
	})
}

// pythonClass tags a class and its body. Positional superclass arguments
// become the inheritance list; keyword arguments such as metaclass= are skipped.
func pythonClass(c *collector, n *sitter.Node) {
	name := c.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	t := c.add(n, name, model.TypeClass)
	t.Inheritance = joinNames(c, n.ChildByFieldName("superclasses"), "identifier", "attribute")

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	c.push(name)
	pythonBlock(c, body, true)
	c.pop()
}
