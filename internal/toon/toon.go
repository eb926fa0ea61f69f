// Package toon renders query results in TOON (Token-Oriented Object
// Notation) tabular form.
package toon

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/tagindex/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// TagColumns are the columns EncodeTags writes, in order.
var TagColumns = []string{"name", "type", "scope", "arglist", "vartype", "file", "line", "lang"}

// EncodeTags renders ts as one TOON table named "tags". Workspace tag paths
// are shown relative to root when root is non-empty and contains them;
// global tags have an empty file.
func EncodeTags(ts []*model.Tag, root string) string {
	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, []string{
			t.Name,
			t.Type.String(),
			t.Scope,
			t.Arglist,
			t.VarType + strings.Repeat("*", t.Pointer),
			relPath(root, t.Path()),
			strconv.Itoa(t.Line),
			t.Language().String(),
		})
	}
	return EncodeTable("tags", TagColumns, rows)
}

// EncodeList renders values as a single-column table.
func EncodeList(name, column string, values []string) string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return EncodeTable(name, []string{column}, rows)
}

func relPath(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// EncodeTable renders a tabular array. Every row must have one cell per
// column.
func EncodeTable(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

// encodeValue quotes any value a TOON reader would not read back verbatim.
func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case looksNumeric.MatchString(value):
		return value
	case value != strings.TrimSpace(value),
		strings.ContainsAny(value, "\n\r\t"),
		strings.HasPrefix(value, "-"),
		needsQuoting.MatchString(value):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	return value
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func quote(value string) string {
	return `"` + escaper.Replace(value) + `"`
}
