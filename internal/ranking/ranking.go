// Package ranking narrows and orders query results for display: result
// limits, file filters, completion lists and "did you mean" suggestions.
package ranking

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/phobologic/tagindex/internal/model"
)

// DefaultThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const DefaultThreshold = 0.8

// Limit returns the first n tags. If n is <= 0 or >= len(ts), ts is
// returned unchanged.
func Limit(ts []*model.Tag, n int) []*model.Tag {
	if n <= 0 || n >= len(ts) {
		return ts
	}
	return ts[:n]
}

// FilterByFile returns the tags whose file path contains substr
// (case-insensitive). Global tags have no file and never match a non-empty
// substr.
func FilterByFile(ts []*model.Tag, substr string) []*model.Tag {
	if substr == "" {
		return ts
	}
	lower := strings.ToLower(substr)

	var out []*model.Tag
	for _, t := range ts {
		if t.IsGlobal() {
			continue
		}
		if strings.Contains(strings.ToLower(t.Path()), lower) {
			out = append(out, t)
		}
	}
	return out
}

// Completions returns the distinct names of ts in order of first appearance,
// at most limit of them (all when limit <= 0). Fed a name-sorted query result it
// yields a sorted completion list.
func Completions(ts []*model.Tag, limit int) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, t := range ts {
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		names = append(names, t.Name)
		if limit > 0 && len(names) == limit {
			break
		}
	}
	return names
}

// Suggest returns up to limit candidates similar to name, best match first.
// Similarity is Jaro-Winkler on lower-cased names; candidates scoring below
// threshold are dropped. Exact matches are not suggestions.
func Suggest(name string, candidates []string, limit int, threshold float64) []string {
	if name == "" {
		return nil
	}
	lower := strings.ToLower(name)

	type scored struct {
		name  string
		score float64
	}
	seen := make(map[string]struct{})
	var hits []scored
	for _, c := range candidates {
		if c == name {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		score, err := edlib.StringsSimilarity(lower, strings.ToLower(c), edlib.JaroWinkler)
		if err != nil || float64(score) < threshold {
			continue
		}
		hits = append(hits, scored{c, float64(score)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}
