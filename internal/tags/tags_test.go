package tags

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tagindex/internal/model"
)

func tag(name string, typ model.TagType, scope string) *model.Tag {
	return &model.Tag{Name: name, Type: typ, Scope: scope}
}

func names(tags []*model.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

// sampleArray builds a shuffled collection with duplicate runs of various
// lengths, sorted by GlobalSort.
func sampleArray(t *testing.T) *Array {
	t.Helper()
	var all []*model.Tag
	for i, name := range []string{"a", "ab", "abc", "abd", "b", "ba", "foo", "foobar", "fop", "z"} {
		for j := 0; j <= i%4; j++ {
			all = append(all, tag(name, model.TypeFunction, fmt.Sprintf("s%d", j)))
		}
	}
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	a := New(all...)
	a.Sort(GlobalSort...)
	return a
}

func countMatching(a *Array, pred func(string) bool) int {
	n := 0
	for _, t := range a.Tags {
		if pred(t.Name) {
			n++
		}
	}
	return n
}

func TestFindExactReturnsWholeRun(t *testing.T) {
	t.Parallel()
	a := sampleArray(t)

	for _, name := range []string{"a", "ab", "abc", "abd", "b", "ba", "foo", "foobar", "fop", "z"} {
		got := a.Find(name, false)
		want := countMatching(a, func(n string) bool { return n == name })
		require.Lenf(t, got, want, "Find(%q)", name)
		for _, g := range got {
			assert.Equal(t, name, g.Name)
		}
	}
}

func TestFindAbsentName(t *testing.T) {
	t.Parallel()
	a := sampleArray(t)

	for _, name := range []string{"aa", "c", "fo0", "zz", "0"} {
		assert.Emptyf(t, a.Find(name, false), "Find(%q)", name)
	}
}

func TestFindPartialIsPrefixSuperset(t *testing.T) {
	t.Parallel()
	a := sampleArray(t)

	for _, prefix := range []string{"a", "ab", "f", "foo", "fo", "z", "b"} {
		partial := a.Find(prefix, true)
		exact := a.Find(prefix, false)

		want := countMatching(a, func(n string) bool { return strings.HasPrefix(n, prefix) })
		require.Lenf(t, partial, want, "partial Find(%q)", prefix)
		assert.GreaterOrEqual(t, len(partial), len(exact))

		got := make(map[*model.Tag]bool, len(partial))
		for _, p := range partial {
			assert.True(t, strings.HasPrefix(p.Name, prefix))
			got[p] = true
		}
		for _, e := range exact {
			assert.True(t, got[e], "exact match %q missing from partial result", e.Name)
		}
	}
}

func TestFindEmpty(t *testing.T) {
	t.Parallel()

	var nilArray *Array
	assert.Empty(t, nilArray.Find("x", false))
	assert.Empty(t, New().Find("x", true))

	a := sampleArray(t)
	assert.Empty(t, a.Find("", true))
	assert.Empty(t, a.Find("", false))
}

func TestFindSingleElement(t *testing.T) {
	t.Parallel()

	a := New(tag("only", model.TypeClass, ""))
	a.Sort(AttrName)
	assert.Equal(t, []string{"only"}, names(a.Find("only", false)))
	assert.Equal(t, []string{"only"}, names(a.Find("on", true)))
	assert.Empty(t, a.Find("onlyx", true))
}

func TestSortIsStable(t *testing.T) {
	t.Parallel()

	first := &model.Tag{Name: "x", Line: 1}
	second := &model.Tag{Name: "x", Line: 2}
	third := &model.Tag{Name: "a", Line: 3}
	a := New(first, second, third)
	a.Sort(AttrName)

	assert.Equal(t, []*model.Tag{third, first, second}, a.Tags)
	assert.Equal(t, []Attr{AttrName}, a.SortedBy())

	a.Add(tag("b", model.TypeClass, ""))
	assert.Nil(t, a.SortedBy(), "Add invalidates sort order")
}

func TestSortMultiKey(t *testing.T) {
	t.Parallel()

	a := New(
		tag("f", model.TypeFunction, "B"),
		tag("f", model.TypePrototype, "A"),
		tag("f", model.TypeFunction, "A"),
		tag("e", model.TypeMacro, "Z"),
	)
	a.Sort(GlobalSort...)

	require.Len(t, a.Tags, 4)
	assert.Equal(t, "e", a.Tags[0].Name)
	assert.Equal(t, "A", a.Tags[1].Scope)
	assert.Equal(t, model.TypeFunction, a.Tags[1].Type)
	assert.Equal(t, model.TypePrototype, a.Tags[2].Type)
	assert.Equal(t, "B", a.Tags[3].Scope)
}

func TestSortDedup(t *testing.T) {
	t.Parallel()

	keep := &model.Tag{Name: "dup", Type: model.TypeMacro, Line: 1}
	drop := &model.Tag{Name: "dup", Type: model.TypeMacro, Line: 9}
	other := &model.Tag{Name: "dup", Type: model.TypeFunction}
	a := New(keep, other, drop)
	a.SortDedup(GlobalSort...)

	require.Len(t, a.Tags, 2)
	assert.Same(t, other, a.Tags[0])
	assert.Same(t, keep, a.Tags[1])
}

func TestCompareFile(t *testing.T) {
	t.Parallel()

	fa := &model.FileRef{Path: "a.c"}
	fb := &model.FileRef{Path: "b.c"}
	x := &model.Tag{Name: "n", File: fb}
	y := &model.Tag{Name: "n", File: fa}
	g := &model.Tag{Name: "n"}

	assert.Positive(t, Compare(x, y, WorkspaceSort))
	assert.Negative(t, Compare(g, y, []Attr{AttrFile}), "global tags sort before file tags")
	assert.Zero(t, Compare(x, x, WorkspaceSort))
}

func TestExtract(t *testing.T) {
	t.Parallel()

	a := New(
		tag("a", model.TypeClass, ""),
		tag("b", model.TypeVariable, ""),
		tag("c", model.TypeFunction, ""),
		tag("d", model.TypeMacro, ""),
	)
	got := a.Extract(model.TypeClass | model.TypeFunction)
	assert.Equal(t, []string{"a", "c"}, names(got.Tags))
	assert.Equal(t, 4, a.Len(), "source array untouched")

	var nilArray *Array
	assert.Equal(t, 0, nilArray.Extract(model.TypeAny).Len())
}

func TestReset(t *testing.T) {
	t.Parallel()

	a := New(tag("a", model.TypeClass, ""))
	a.Sort(AttrName)
	a.Reset()
	assert.Equal(t, 0, a.Len())
	assert.Nil(t, a.SortedBy())
}
