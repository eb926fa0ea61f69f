// Package model defines core data structures for tagindex.
package model

import (
	"fmt"
	"strings"
)

// TagType is a bit flag identifying the kind of a tag. A tag has exactly one
// kind; queries filter with an OR of several.
type TagType uint32

const (
	TypeUndef        TagType = 1
	TypeClass        TagType = 2
	TypeEnum         TagType = 4
	TypeEnumerator   TagType = 8
	TypeField        TagType = 16
	TypeFunction     TagType = 32
	TypeInterface    TagType = 64
	TypeMember       TagType = 128
	TypeMethod       TagType = 256
	TypeNamespace    TagType = 512
	TypePackage      TagType = 1024
	TypePrototype    TagType = 2048
	TypeStruct       TagType = 4096
	TypeTypedef      TagType = 8192
	TypeUnion        TagType = 16384
	TypeVariable     TagType = 32768
	TypeExternVar    TagType = 65536
	TypeMacro        TagType = 131072
	TypeMacroWithArg TagType = 262144
	TypeFile         TagType = 524288
	TypeOther        TagType = 1048576

	// TypeAny matches every kind.
	TypeAny TagType = 0x1FFFFF
)

// ClassTypes are the kinds that may carry an inheritance list.
const ClassTypes = TypeClass | TypeStruct | TypeInterface

// FunctionTypes are the kinds that own a body and can enclose a line.
const FunctionTypes = TypeFunction | TypeMethod

type typeInfo struct {
	code byte
	name string
}

var typeTable = map[TagType]typeInfo{
	TypeUndef:        {'?', "undef"},
	TypeClass:        {'c', "class"},
	TypeEnum:         {'g', "enum"},
	TypeEnumerator:   {'e', "enumerator"},
	TypeField:        {'w', "field"},
	TypeFunction:     {'f', "function"},
	TypeInterface:    {'i', "interface"},
	TypeMember:       {'m', "member"},
	TypeMethod:       {'M', "method"},
	TypeNamespace:    {'n', "namespace"},
	TypePackage:      {'P', "package"},
	TypePrototype:    {'p', "prototype"},
	TypeStruct:       {'s', "struct"},
	TypeTypedef:      {'t', "typedef"},
	TypeUnion:        {'u', "union"},
	TypeVariable:     {'v', "variable"},
	TypeExternVar:    {'x', "externvar"},
	TypeMacro:        {'d', "macro"},
	TypeMacroWithArg: {'D', "macro_with_arg"},
	TypeFile:         {'F', "file"},
	TypeOther:        {'o', "other"},
}

var (
	typeByCode = map[byte]TagType{}
	typeByName = map[string]TagType{}
)

func init() {
	for t, info := range typeTable {
		typeByCode[info.code] = t
		typeByName[info.name] = t
	}
}

// Code returns the single-character code used in tag files.
func (t TagType) Code() byte {
	if info, ok := typeTable[t]; ok {
		return info.code
	}
	return '?'
}

// String returns the lower-case kind name, or a |-joined list for masks.
func (t TagType) String() string {
	if info, ok := typeTable[t]; ok {
		return info.name
	}
	var names []string
	for bit := TypeUndef; bit <= TypeOther; bit <<= 1 {
		if t&bit != 0 {
			names = append(names, typeTable[bit].name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// TypeFromCode maps a tag file code back to its kind.
func TypeFromCode(code byte) (TagType, bool) {
	t, ok := typeByCode[code]
	return t, ok
}

// ParseTypeMask parses a comma-separated list of kind names ("class,function")
// into a mask. "any" or an empty string yields TypeAny.
func ParseTypeMask(s string) (TagType, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "any" {
		return TypeAny, nil
	}
	var mask TagType
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		t, ok := typeByName[name]
		if !ok {
			return 0, fmt.Errorf("unknown tag kind %q", name)
		}
		mask |= t
	}
	return mask, nil
}

// Language identifies the source language of a tag.
type Language int

const (
	LangAny Language = -1
	LangC   Language = iota - 1
	LangCPP
	LangJava
	LangPython
	LangRuby
	LangGo
)

var languageNames = map[Language]string{
	LangC:      "C",
	LangCPP:    "C++",
	LangJava:   "Java",
	LangPython: "Python",
	LangRuby:   "Ruby",
	LangGo:     "Go",
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	if l == LangAny {
		return "any"
	}
	return fmt.Sprintf("lang(%d)", int(l))
}

// ParseLanguage resolves a language name case-insensitively. "cpp" and "c++"
// are both accepted.
func ParseLanguage(name string) (Language, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "any":
		return LangAny, nil
	case "cpp", "cxx":
		return LangCPP, nil
	case "golang":
		return LangGo, nil
	}
	for l, s := range languageNames {
		if strings.ToLower(s) == n {
			return l, nil
		}
	}
	return LangAny, fmt.Errorf("unsupported language %q", name)
}

// FileRef is the provenance shared by every tag parsed from one file.
type FileRef struct {
	Path     string
	Language Language
}

// Tag represents a single symbol occurrence.
//
// Exactly one provenance form is populated: workspace tags point at their
// owning file through File (Lang is unused), global tags have File == nil and
// carry their language inline in Lang. Line is the line number in either case.
type Tag struct {
	Name        string
	Type        TagType
	Line        int
	Scope       string
	Arglist     string
	VarType     string
	Pointer     int
	Inheritance string

	File *FileRef
	Lang Language
}

// Language resolves the tag language from whichever provenance is present.
func (t *Tag) Language() Language {
	if t.File != nil {
		return t.File.Language
	}
	return t.Lang
}

// Path returns the owning file path, or "" for global tags.
func (t *Tag) Path() string {
	if t.File != nil {
		return t.File.Path
	}
	return ""
}

// IsGlobal reports whether the tag was loaded from a global tag file.
func (t *Tag) IsGlobal() bool {
	return t.File == nil
}

// Bases splits the inheritance list into class names. A list that does not
// start with an ASCII letter is not a plain name list and yields nothing.
func (t *Tag) Bases() []string {
	inh := t.Inheritance
	if inh == "" || !isAlpha(inh[0]) {
		return nil
	}
	var out []string
	for _, name := range strings.Split(inh, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func isAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func (t *Tag) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString(t.Arglist)
	fmt.Fprintf(&b, " [%s", t.Type)
	if t.Scope != "" {
		fmt.Fprintf(&b, " in %s", t.Scope)
	}
	b.WriteString("]")
	if t.File != nil {
		fmt.Fprintf(&b, " %s:%d", t.File.Path, t.Line)
	}
	return b.String()
}
