package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/phobologic/tagindex/internal/model"
)

func init() {
	Languages["c"] = &Language{
		Name:       "c",
		ID:         model.LangC,
		Extensions: []string{".c", ".h"},
		lang:       c.GetLanguage(),
		Extract: func(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag {
			w := &cWalker{collector: newCollector(source, ref, "::")}
			w.walk(root)
			return w.tags
		},
	}
	Languages["cpp"] = &Language{
		Name:       "cpp",
		ID:         model.LangCPP,
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"},
		lang:       cpp.GetLanguage(),
		Extract: func(root *sitter.Node, source []byte, ref *model.FileRef) []*model.Tag {
			w := &cWalker{collector: newCollector(source, ref, "::"), cpp: true}
			w.walk(root)
			return w.tags
		},
	}
}

// cWalker extracts tags from C and C++ trees. The two grammars share node
// names for everything C has; C++ adds classes, namespaces and qualified names.
type cWalker struct {
	*collector
	cpp bool
	// classDepth counts enclosing class/struct bodies; functions declared
	// inside one are methods.
	classDepth int
}

func (w *cWalker) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		w.function(n)
		return
	case "declaration":
		w.declaration(n, false)
	case "field_declaration":
		w.declaration(n, true)
	case "type_definition":
		w.typedef(n)
	case "preproc_def":
		w.add(n, w.text(n.ChildByFieldName("name")), model.TypeMacro)
		return
	case "preproc_function_def":
		t := w.add(n, w.text(n.ChildByFieldName("name")), model.TypeMacroWithArg)
		t.Arglist = CollapseWhitespace(w.text(n.ChildByFieldName("parameters")))
		return
	case "struct_specifier", "union_specifier", "class_specifier":
		if w.record(n) {
			return
		}
	case "enum_specifier":
		if w.enum(n) {
			return
		}
	case "namespace_definition":
		w.namespace(n)
		return
	}
	children(n, w.walk)
}

func (w *cWalker) function(n *sitter.Node) {
	decl := n.ChildByFieldName("declarator")
	fd, pointer := functionDeclarator(decl)
	if fd == nil {
		return
	}
	name, qual := w.declaratorName(fd.ChildByFieldName("declarator"))
	if name == "" {
		return
	}

	typ := model.TypeFunction
	if w.cpp && (w.classDepth > 0 || qual != "") {
		typ = model.TypeMethod
	}

	saved := w.scope
	if qual != "" {
		w.scope = append(append([]string(nil), w.scope...), strings.Split(qual, "::")...)
	}
	t := w.add(n, name, typ)
	w.scope = saved

	t.Arglist = CollapseWhitespace(w.text(fd.ChildByFieldName("parameters")))
	t.VarType = CollapseWhitespace(w.text(n.ChildByFieldName("type")))
	t.Pointer = pointer
}

// declaration handles both plain and field declarations: each declarator
// becomes a prototype, variable or member.
func (w *cWalker) declaration(n *sitter.Node, field bool) {
	typeNode := n.ChildByFieldName("type")
	vartype := CollapseWhitespace(w.text(typeNode))
	extern := hasStorageClass(w.collector, n, "extern")

	for _, d := range fieldChildren(n, "declarator") {
		inner := d
		if inner.Type() == "init_declarator" {
			inner = inner.ChildByFieldName("declarator")
		}
		if inner == nil {
			continue
		}

		if fd, pointer := functionDeclarator(inner); fd != nil {
			name, qual := w.declaratorName(fd.ChildByFieldName("declarator"))
			if name == "" {
				continue
			}
			saved := w.scope
			if qual != "" {
				w.scope = append(append([]string(nil), w.scope...), strings.Split(qual, "::")...)
			}
			t := w.add(d, name, model.TypePrototype)
			w.scope = saved
			t.Arglist = CollapseWhitespace(w.text(fd.ChildByFieldName("parameters")))
			t.VarType = vartype
			t.Pointer = pointer
			continue
		}

		name, _ := w.declaratorName(inner)
		if name == "" {
			continue
		}
		typ := model.TypeVariable
		switch {
		case field:
			typ = model.TypeMember
		case extern:
			typ = model.TypeExternVar
		}
		t := w.add(d, name, typ)
		t.VarType = vartype
		t.Pointer = pointerDepth(inner)
	}
}

func (w *cWalker) typedef(n *sitter.Node) {
	vartype := CollapseWhitespace(w.text(n.ChildByFieldName("type")))
	for _, d := range fieldChildren(n, "declarator") {
		if fd, _ := functionDeclarator(d); fd != nil {
			d = fd.ChildByFieldName("declarator")
		}
		name, _ := w.declaratorName(d)
		if name == "" {
			continue
		}
		t := w.add(d, name, model.TypeTypedef)
		t.VarType = vartype
		t.Pointer = pointerDepth(d)
	}
}

// record handles struct, union and class specifiers that have a body. It
// returns true when it walked the body itself.
func (w *cWalker) record(n *sitter.Node) bool {
	body := n.ChildByFieldName("body")
	nameNode := n.ChildByFieldName("name")
	if body == nil {
		return false
	}

	name := w.text(nameNode)
	if name != "" {
		typ := model.TypeStruct
		switch n.Type() {
		case "union_specifier":
			typ = model.TypeUnion
		case "class_specifier":
			typ = model.TypeClass
		}
		t := w.add(n, name, typ)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child.Type() == "base_class_clause" {
				t.Inheritance = w.baseNames(child)
			}
		}
		w.push(name)
	}

	w.classDepth++
	children(body, w.walk)
	w.classDepth--

	if name != "" {
		w.pop()
	}
	return true
}

// baseNames lists the classes in a base_class_clause. Template arguments are
// dropped so the list stays comma separated.
func (w *cWalker) baseNames(clause *sitter.Node) string {
	var names []string
	children(clause, func(child *sitter.Node) {
		switch child.Type() {
		case "type_identifier", "qualified_identifier":
			names = append(names, CollapseWhitespace(w.text(child)))
		case "template_type":
			names = append(names, w.text(child.ChildByFieldName("name")))
		}
	})
	return strings.Join(names, ",")
}

func (w *cWalker) enum(n *sitter.Node) bool {
	body := n.ChildByFieldName("body")
	if body == nil {
		return false
	}
	name := w.text(n.ChildByFieldName("name"))
	if name != "" {
		w.add(n, name, model.TypeEnum)
		w.push(name)
	}
	children(body, func(child *sitter.Node) {
		if child.Type() == "enumerator" {
			w.add(child, w.text(child.ChildByFieldName("name")), model.TypeEnumerator)
		}
	})
	if name != "" {
		w.pop()
	}
	return true
}

func (w *cWalker) namespace(n *sitter.Node) {
	name := w.text(n.ChildByFieldName("name"))
	body := n.ChildByFieldName("body")
	if name != "" {
		w.add(n, name, model.TypeNamespace)
		w.push(name)
	}
	if body != nil {
		// Declarations in a namespace body are not class members.
		depth := w.classDepth
		w.classDepth = 0
		children(body, w.walk)
		w.classDepth = depth
	}
	if name != "" {
		w.pop()
	}
}

// declaratorName unwraps pointer, reference, array and parenthesized
// declarators down to the identifier. For C++ qualified names it returns the
// last component and the qualifying prefix separately.
func (w *cWalker) declaratorName(d *sitter.Node) (name, qualifier string) {
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "type_identifier",
			"destructor_name", "operator_name":
			return w.text(d), ""
		case "qualified_identifier":
			full := CollapseWhitespace(w.text(d))
			if i := strings.LastIndex(full, "::"); i >= 0 {
				return full[i+2:], full[:i]
			}
			return full, ""
		case "pointer_declarator", "array_declarator", "parenthesized_declarator",
			"init_declarator", "function_declarator", "attributed_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil && d.NamedChildCount() > 0 {
				next = d.NamedChild(0)
			}
			d = next
		case "reference_declarator":
			if d.NamedChildCount() == 0 {
				return "", ""
			}
			d = d.NamedChild(0)
		default:
			return "", ""
		}
	}
	return "", ""
}

// functionDeclarator finds the function_declarator under d, counting pointer
// declarators on the way (the return type's pointer depth).
func functionDeclarator(d *sitter.Node) (*sitter.Node, int) {
	pointer := 0
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			return d, pointer
		case "pointer_declarator":
			pointer++
			d = d.ChildByFieldName("declarator")
		case "reference_declarator", "parenthesized_declarator", "attributed_declarator":
			if d.NamedChildCount() == 0 {
				return nil, 0
			}
			d = d.NamedChild(0)
		default:
			return nil, 0
		}
	}
	return nil, 0
}

func pointerDepth(d *sitter.Node) int {
	depth := 0
	for d != nil && d.Type() == "pointer_declarator" {
		depth++
		d = d.ChildByFieldName("declarator")
	}
	return depth
}

func hasStorageClass(c *collector, n *sitter.Node, class string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "storage_class_specifier" && c.text(child) == class {
			return true
		}
	}
	return false
}
