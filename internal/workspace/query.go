package workspace

import (
	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/tags"
)

// Every query returns a freshly allocated slice that the caller owns. The
// tags in it are shared with the workspace and must not be modified.

// matchLang reports whether t belongs to lang. Global C tags also match C++
// since C headers are valid in C++ translation units.
func matchLang(t *model.Tag, lang model.Language) bool {
	if lang == model.LangAny {
		return true
	}
	tl := t.Language()
	if tl == lang {
		return true
	}
	return t.IsGlobal() && tl == model.LangC && lang == model.LangCPP
}

// collect appends the tags of run that pass the filters. A nil scope accepts
// any scope. With first set it stops after one match.
func collect(dst, run []*model.Tag, mask model.TagType, lang model.Language, scope *string, first bool) []*model.Tag {
	for _, t := range run {
		if t.Type&mask == 0 || !matchLang(t, lang) {
			continue
		}
		if scope != nil && t.Scope != *scope {
			continue
		}
		dst = append(dst, t)
		if first {
			break
		}
	}
	return dst
}

func sortResult(out []*model.Tag, sortAttrs []tags.Attr) []*model.Tag {
	if len(sortAttrs) == 0 || len(out) < 2 {
		return out
	}
	a := tags.New(out...)
	a.SortDedup(sortAttrs...)
	return a.Tags
}

// Find returns the tags named name (or starting with name when partial is
// set) whose type intersects mask and whose language matches lang, from the
// merged array and then the global tags. When sortAttrs is non-empty the
// result is re-sorted by them and tags equal on every one of them collapse to
// the first, so a header symbol known both to the workspace and to the global
// tags comes back once. An empty name matches nothing.
func (w *Workspace) Find(name string, mask model.TagType, sortAttrs []tags.Attr, partial bool, lang model.Language) []*model.Tag {
	if !w.live() || name == "" {
		return nil
	}
	var out []*model.Tag
	out = collect(out, w.tags.Find(name, partial), mask, lang, nil, false)
	out = collect(out, w.global.Find(name, partial), mask, lang, nil, false)
	return sortResult(out, sortAttrs)
}

// FindFirst returns the first tag Find would return, or nil.
func (w *Workspace) FindFirst(name string, mask model.TagType, lang model.Language) *model.Tag {
	if !w.live() || name == "" {
		return nil
	}
	if out := collect(nil, w.tags.Find(name, false), mask, lang, nil, true); len(out) > 0 {
		return out[0]
	}
	if out := collect(nil, w.global.Find(name, false), mask, lang, nil, true); len(out) > 0 {
		return out[0]
	}
	return nil
}

// FindScoped is Find restricted to tags whose scope equals scope exactly; an
// empty scope selects tags declared at file level. The global tags are only
// searched when includeGlobal is set.
func (w *Workspace) FindScoped(name, scope string, mask model.TagType, sortAttrs []tags.Attr,
	partial bool, lang model.Language, includeGlobal bool) []*model.Tag {
	if !w.live() || name == "" {
		return nil
	}
	var out []*model.Tag
	out = collect(out, w.tags.Find(name, partial), mask, lang, &scope, false)
	if includeGlobal {
		out = collect(out, w.global.Find(name, partial), mask, lang, &scope, false)
	}
	return sortResult(out, sortAttrs)
}

// FindScopedFirst returns the first tag FindScoped would return, or nil.
func (w *Workspace) FindScopedFirst(name, scope string, mask model.TagType, lang model.Language, includeGlobal bool) *model.Tag {
	if !w.live() || name == "" {
		return nil
	}
	if out := collect(nil, w.tags.Find(name, false), mask, lang, &scope, true); len(out) > 0 {
		return out[0]
	}
	if includeGlobal {
		if out := collect(nil, w.global.Find(name, false), mask, lang, &scope, true); len(out) > 0 {
			return out[0]
		}
	}
	return nil
}

// CurrentFunction returns the function or method in fileTags that starts
// nearest before or at line, or nil when none does. When several start on
// the same line the one later in fileTags wins.
func CurrentFunction(fileTags *tags.Array, line int) *model.Tag {
	if fileTags.Len() == 0 {
		return nil
	}
	var best *model.Tag
	for _, t := range fileTags.Extract(model.FunctionTypes).Tags {
		if t.Line > line {
			continue
		}
		if best == nil || t.Line >= best.Line {
			best = t
		}
	}
	return best
}

// Parents returns the class named name followed by the transitive closure of
// its ancestors, breadth first, each class once. It returns nil when name
// does not start with a letter or no class of that name is known.
func (w *Workspace) Parents(name string) []*model.Tag {
	if name == "" || !isAlpha(name[0]) {
		return nil
	}
	seed := w.FindFirst(name, model.ClassTypes, model.LangAny)
	if seed == nil {
		return nil
	}

	parents := []*model.Tag{seed}
	seen := map[string]bool{seed.Name: true}
	for i := 0; i < len(parents); i++ {
		for _, klass := range parents[i].Bases() {
			if seen[klass] {
				continue
			}
			seen[klass] = true
			if t := w.FindFirst(klass, model.ClassTypes, model.LangAny); t != nil {
				parents = append(parents, t)
			}
		}
	}
	return parents
}

func isAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
