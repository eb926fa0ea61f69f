package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/phobologic/tagindex/internal/model"
)

func init() {
	Languages["java"] = &Language{
		Name:       "java",
		ID:         model.LangJava,
		Extensions: []string{".java"},
		lang:       java.GetLanguage(),
		Extract: func(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag {
			c := newCollector(source, ref, ".")
			javaBody(c, root)
			return c.tags
		},
	}
}

func javaBody(c *collector, n *sitter.Node) {
	children(n, func(child *sitter.Node) {
		switch child.Type() {
		case "package_declaration":
			children(child, func(id *sitter.Node) {
				if id.Type() == "scoped_identifier" || id.Type() == "identifier" {
					c.add(child, c.text(id), model.TypePackage)
				}
			})
		case "class_declaration", "record_declaration":
			javaType(c, child, model.TypeClass)
		case "interface_declaration", "annotation_type_declaration":
			javaType(c, child, model.TypeInterface)
		case "enum_declaration":
			javaType(c, child, model.TypeEnum)
		case "method_declaration", "constructor_declaration":
			t := c.add(child, c.text(child.ChildByFieldName("name")), model.TypeMethod)
			t.Arglist = CollapseWhitespace(c.text(child.ChildByFieldName("parameters")))
			t.VarType = CollapseWhitespace(c.text(child.ChildByFieldName("type")))
		case "field_declaration", "constant_declaration":
			vartype := CollapseWhitespace(c.text(child.ChildByFieldName("type")))
			for _, d := range fieldChildren(child, "declarator") {
				t := c.add(d, c.text(d.ChildByFieldName("name")), model.TypeField)
				t.VarType = vartype
			}
		case "enum_constant":
			c.add(child, c.text(child.ChildByFieldName("name")), model.TypeEnumerator)
		case "enum_body_declarations":
			javaBody(c, child)
		}
	})
}

// javaType tags a class, interface or enum declaration. The extends clause
// is listed before implemented interfaces in the inheritance list.
func javaType(c *collector, n *sitter.Node, typ model.TagType) {
	name := c.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	t := c.add(n, name, typ)

	var parents []string
	children(n, func(child *sitter.Node) {
		switch child.Type() {
		case "superclass":
			if s := javaTypeNames(c, child); s != "" {
				parents = append(parents, s)
			}
		case "super_interfaces", "extends_interfaces":
			children(child, func(list *sitter.Node) {
				if list.Type() == "type_list" {
					if s := javaTypeNames(c, list); s != "" {
						parents = append(parents, s)
					}
				}
			})
		}
	})
	t.Inheritance = strings.Join(parents, ",")

	if body := n.ChildByFieldName("body"); body != nil {
		c.push(name)
		javaBody(c, body)
		c.pop()
	}
}

// javaTypeNames lists the type names under n with generic arguments dropped,
// since the inheritance list is comma separated.
func javaTypeNames(c *collector, n *sitter.Node) string {
	var names []string
	children(n, func(child *sitter.Node) {
		switch child.Type() {
		case "generic_type":
			if child.NamedChildCount() > 0 {
				names = append(names, c.text(child.NamedChild(0)))
			}
		case "type_identifier", "scoped_type_identifier":
			names = append(names, c.text(child))
		}
	})
	return strings.Join(names, ",")
}
