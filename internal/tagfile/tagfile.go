// Package tagfile reads and writes global tag databases: one tag per line,
// tab-separated fields in the order name, type code, scope, arglist, vartype,
// pointer depth, inheritance.
package tagfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/phobologic/tagindex/internal/model"
)

// Header is written as the first line of every tag file.
const Header = "# format=tagindex"

const sep = "\t"

// Field selects optional attributes to write. Fields that are not selected are
// written empty so that every line keeps the same positional layout.
type Field uint8

const (
	FieldScope Field = 1 << iota
	FieldArglist
	FieldVarType
	FieldPointer
	FieldInheritance

	FieldAll = FieldScope | FieldArglist | FieldVarType | FieldPointer | FieldInheritance
)

// ErrMalformed is returned (wrapped) when Read stops at a bad record.
var ErrMalformed = errors.New("malformed tag record")

var escaper = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)

// Write serializes tags to w, one per line, after the header.
func Write(w io.Writer, tags []*model.Tag, fields Field) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, t := range tags {
		if _, err := fmt.Fprintln(bw, encodeLine(t, fields)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func encodeLine(t *model.Tag, fields Field) string {
	cols := make([]string, 7)
	cols[0] = escape(t.Name)
	cols[1] = string(t.Type.Code())
	if fields&FieldScope != 0 {
		cols[2] = escape(t.Scope)
	}
	if fields&FieldArglist != 0 {
		cols[3] = escape(t.Arglist)
	}
	if fields&FieldVarType != 0 {
		cols[4] = escape(t.VarType)
	}
	if fields&FieldPointer != 0 && t.Pointer > 0 {
		cols[5] = strconv.Itoa(t.Pointer)
	}
	if fields&FieldInheritance != 0 {
		cols[6] = escape(t.Inheritance)
	}
	// Trailing empty columns are dropped; the reader treats them as empty.
	n := len(cols)
	for n > 2 && cols[n-1] == "" {
		n--
	}
	return strings.Join(cols[:n], sep)
}

// Read parses tag lines from r until EOF. Every tag gets lang as its inline
// language. Reading stops at the first malformed record; the tags read before
// it are returned together with an error wrapping ErrMalformed.
func Read(r io.Reader, lang model.Language) ([]*model.Tag, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var tags []*model.Tag
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := decodeLine(line)
		if err != nil {
			return tags, fmt.Errorf("line %d: %w", lineNo, err)
		}
		t.Lang = lang
		tags = append(tags, t)
	}
	if err := sc.Err(); err != nil {
		return tags, err
	}
	return tags, nil
}

func decodeLine(line string) (*model.Tag, error) {
	cols := strings.Split(line, sep)
	if len(cols) < 2 {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	name, err := unescape(cols[0])
	if err != nil || name == "" {
		return nil, fmt.Errorf("%w: bad name %q", ErrMalformed, cols[0])
	}
	if len(cols[1]) != 1 {
		return nil, fmt.Errorf("%w: bad type code %q", ErrMalformed, cols[1])
	}
	typ, ok := model.TypeFromCode(cols[1][0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown type code %q", ErrMalformed, cols[1])
	}

	t := &model.Tag{Name: name, Type: typ}
	get := func(i int) (string, error) {
		if i >= len(cols) {
			return "", nil
		}
		return unescape(cols[i])
	}
	if t.Scope, err = get(2); err != nil {
		return nil, err
	}
	if t.Arglist, err = get(3); err != nil {
		return nil, err
	}
	if t.VarType, err = get(4); err != nil {
		return nil, err
	}
	if len(cols) > 5 && cols[5] != "" {
		p, err := strconv.Atoi(cols[5])
		if err != nil || p < 0 {
			return nil, fmt.Errorf("%w: bad pointer depth %q", ErrMalformed, cols[5])
		}
		t.Pointer = p
	}
	if t.Inheritance, err = get(6); err != nil {
		return nil, err
	}
	return t, nil
}

func escape(s string) string {
	if !strings.ContainsAny(s, "\\\t\n\r") {
		return s
	}
	return escaper.Replace(s)
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("%w: dangling escape", ErrMalformed)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", ErrMalformed, s[i])
		}
	}
	return b.String(), nil
}
