package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/tagindex/internal/model"
)

func init() {
	Languages["go"] = &Language{
		Name:       "go",
		ID:         model.LangGo,
		Extensions: []string{".go"},
		lang:       golang.GetLanguage(),
		Extract:    goExtract,
	}
}

func goExtract(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag {
	c := newCollector(source, ref, ".")
	children(root, func(n *sitter.Node) {
		switch n.Type() {
		case "package_clause":
			children(n, func(id *sitter.Node) {
				if id.Type() == "package_identifier" {
					c.add(n, c.text(id), model.TypePackage)
				}
			})
		case "function_declaration":
			t := c.add(n, c.text(n.ChildByFieldName("name")), model.TypeFunction)
			t.Arglist = CollapseWhitespace(c.text(n.ChildByFieldName("parameters")))
			t.VarType = CollapseWhitespace(c.text(n.ChildByFieldName("result")))
		case "method_declaration":
			c.push(goFindReceiverType(n, source))
			t := c.add(n, c.text(n.ChildByFieldName("name")), model.TypeMethod)
			c.pop()
			t.Arglist = CollapseWhitespace(c.text(n.ChildByFieldName("parameters")))
			t.VarType = CollapseWhitespace(c.text(n.ChildByFieldName("result")))
		case "type_declaration":
			children(n, func(spec *sitter.Node) {
				if spec.Type() == "type_spec" || spec.Type() == "type_alias" {
					goTypeSpec(c, spec)
				}
			})
		case "var_declaration", "const_declaration":
			children(n, func(spec *sitter.Node) {
				if spec.Type() != "var_spec" && spec.Type() != "const_spec" {
					return
				}
				vartype := CollapseWhitespace(c.text(spec.ChildByFieldName("type")))
				for _, id := range fieldChildren(spec, "name") {
					t := c.add(id, c.text(id), model.TypeVariable)
					t.VarType = vartype
				}
			})
		}
	})
	return c.tags
}

func goTypeSpec(c *collector, spec *sitter.Node) {
	name := c.text(spec.ChildByFieldName("name"))
	if name == "" {
		return
	}
	typeNode := spec.ChildByFieldName("type")

	typ := model.TypeTypedef
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			typ = model.TypeStruct
		case "interface_type":
			typ = model.TypeInterface
		}
	}
	t := c.add(spec, name, typ)
	if typ == model.TypeTypedef {
		t.VarType = CollapseWhitespace(c.text(typeNode))
	}
	if typ != model.TypeStruct {
		return
	}

	// Embedded fields act as the struct's ancestors; named fields are members.
	var embedded []string
	c.push(name)
	walkFields(typeNode, func(field *sitter.Node) {
		names := fieldChildren(field, "name")
		fieldType := field.ChildByFieldName("type")
		if len(names) == 0 {
			if embed := goTypeName(fieldType, c.source); embed != "" {
				embedded = append(embedded, embed)
			}
			return
		}
		for _, id := range names {
			m := c.add(id, c.text(id), model.TypeMember)
			m.VarType = CollapseWhitespace(c.text(fieldType))
		}
	})
	c.pop()
	t.Inheritance = strings.Join(embedded, ",")
}

// walkFields calls fn for each field_declaration of a struct_type.
func walkFields(structType *sitter.Node, fn func(*sitter.Node)) {
	children(structType, func(list *sitter.Node) {
		if list.Type() != "field_declaration_list" {
			return
		}
		children(list, func(field *sitter.Node) {
			if field.Type() == "field_declaration" {
				fn(field)
			}
		})
	})
}

// goFindReceiverType extracts the receiver type name from a method_declaration node.
func goFindReceiverType(node *sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() == "parameter_declaration" {
			return goTypeName(param.ChildByFieldName("type"), source)
		}
	}
	return ""
}

// goTypeName returns the bare type name of a type node, unwrapping pointers,
// generic instantiations and package qualifiers.
func goTypeName(n *sitter.Node, source []byte) string {
	for n != nil {
		switch n.Type() {
		case "type_identifier":
			return NodeText(n, source)
		case "qualified_type":
			return NodeText(n.ChildByFieldName("name"), source)
		case "pointer_type", "generic_type":
			var next *sitter.Node
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.Type() != "type_arguments" {
					next = child
					break
				}
			}
			n = next
		default:
			return ""
		}
	}
	return ""
}
