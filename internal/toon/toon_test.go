package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/tagindex/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.py", "src/main.py"},
		{"dotted name", "Foo.__init__", "Foo.__init__"},
		{"signature no special", "run(self) -> None", "run(self) -> None"},
		{"arglist", "(int a, int b)", `"(int a, int b)"`},
		{"scoped name", "ns::Shape", `"ns::Shape"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeTags(t *testing.T) {
	t.Parallel()

	ts := []*model.Tag{
		{
			Name:    "add",
			Type:    model.TypeFunction,
			Arglist: "(int a, int b)",
			VarType: "int",
			File:    &model.FileRef{Path: "/proj/src/math.c", Language: model.LangC},
			Line:    4,
		},
		{
			Name:    "name",
			Type:    model.TypeMember,
			Scope:   "Point",
			VarType: "char",
			Pointer: 1,
			File:    &model.FileRef{Path: "/elsewhere/point.h", Language: model.LangCPP},
			Line:    12,
		},
		{
			Name:    "printf",
			Type:    model.TypePrototype,
			Arglist: "(const char *fmt, ...)",
			VarType: "int",
			Lang:    model.LangC,
		},
	}

	got := strings.Split(EncodeTags(ts, "/proj"), "\n")
	want := []string{
		"tags[3]{name,type,scope,arglist,vartype,file,line,lang}:",
		`  add,function,"","(int a, int b)",int,src/math.c,4,C`,
		`  name,member,Point,"",char*,/elsewhere/point.h,12,C++`,
		`  printf,prototype,"","(const char *fmt, ...)",int,"",0,C`,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEncodeTagsEmpty(t *testing.T) {
	t.Parallel()

	got := EncodeTags(nil, "")
	if got != "tags[0]{name,type,scope,arglist,vartype,file,line,lang}:" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeList(t *testing.T) {
	t.Parallel()

	got := EncodeList("completions", "name", []string{"alpha", "true", "a,b"})
	want := "completions[3]{name}:\n  alpha\n  \"true\"\n  \"a,b\""
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
