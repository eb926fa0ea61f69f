package tagfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/tags"
)

type tuple struct {
	name, scope, arglist string
	typ                  model.TagType
}

func tuples(ts []*model.Tag) []tuple {
	out := make([]tuple, len(ts))
	for i, t := range ts {
		out[i] = tuple{t.Name, t.Scope, t.Arglist, t.Type}
	}
	return out
}

func TestRoundTripIndependentOfOrder(t *testing.T) {
	t.Parallel()

	original := []*model.Tag{
		{Name: "zeta", Type: model.TypeMacro},
		{Name: "alpha", Type: model.TypeFunction, Arglist: "(int a, char *b)", VarType: "void", Pointer: 1},
		{Name: "Widget", Type: model.TypeClass, Scope: "gtk", Inheritance: "Object,Buildable"},
		{Name: "alpha", Type: model.TypePrototype, Arglist: "(void)"},
		{Name: "odd", Type: model.TypeVariable, Scope: "tab\there", VarType: `back\slash`},
	}

	reversed := make([]*model.Tag, len(original))
	for i, tg := range original {
		reversed[len(original)-1-i] = tg
	}

	var buf1, buf2 bytes.Buffer
	require.NoError(t, Write(&buf1, original, FieldAll))
	require.NoError(t, Write(&buf2, reversed, FieldAll))

	load := func(buf *bytes.Buffer) []*model.Tag {
		loaded, err := Read(buf, model.LangC)
		require.NoError(t, err)
		arr := tags.New(loaded...)
		arr.Sort(tags.GlobalSort...)
		return arr.Tags
	}
	got1 := load(&buf1)
	got2 := load(&buf2)

	want := tags.New(original...)
	want.Sort(tags.GlobalSort...)

	assert.Equal(t, tuples(want.Tags), tuples(got1))
	assert.Equal(t, tuples(got1), tuples(got2))

	for _, tg := range got1 {
		assert.Equal(t, model.LangC, tg.Language())
		assert.Nil(t, tg.File)
		if tg.Name == "Widget" {
			assert.Equal(t, "Object,Buildable", tg.Inheritance)
		}
		if tg.Name == "odd" {
			assert.Equal(t, "tab\there", tg.Scope)
			assert.Equal(t, `back\slash`, tg.VarType)
		}
		if tg.Name == "alpha" && tg.Type == model.TypeFunction {
			assert.Equal(t, 1, tg.Pointer)
			assert.Equal(t, "void", tg.VarType)
		}
	}
}

func TestWriteFieldSelection(t *testing.T) {
	t.Parallel()

	tg := &model.Tag{Name: "f", Type: model.TypeFunction, Scope: "S", Arglist: "()", VarType: "int", Pointer: 2}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []*model.Tag{tg}, FieldArglist))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "f\tf\t\t()", lines[1])
}

func TestReadStopsAtMalformedRecord(t *testing.T) {
	t.Parallel()

	input := Header + "\n" +
		"good\tf\n" +
		"# comment\n" +
		"\n" +
		"also\td\t\t\t\t\n" +
		"broken\t!\n" +
		"never\tf\n"

	got, err := Read(strings.NewReader(input), model.LangCPP)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), "line 6")

	require.Len(t, got, 2)
	assert.Equal(t, "good", got[0].Name)
	assert.Equal(t, model.TypeFunction, got[0].Type)
	assert.Equal(t, "also", got[1].Name)
	assert.Equal(t, model.TypeMacro, got[1].Type)
	assert.Equal(t, model.LangCPP, got[1].Lang)
}

func TestReadMalformedCases(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing type":    "name\n",
		"empty name":      "\tf\n",
		"long type code":  "name\tff\n",
		"bad pointer":     "name\tv\t\t\t\tx\n",
		"negative ptr":    "name\tv\t\t\t\t-1\n",
		"dangling escape": "name\\\tf\n",
		"unknown escape":  "na\\qme\tf\n",
	}
	for label, input := range tests {
		t.Run(label, func(t *testing.T) {
			t.Parallel()
			got, err := Read(strings.NewReader(input), model.LangC)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Empty(t, got)
		})
	}
}

func TestReadEmpty(t *testing.T) {
	t.Parallel()

	got, err := Read(strings.NewReader(""), model.LangC)
	require.NoError(t, err)
	assert.Empty(t, got)
}
