// Package graph builds class inheritance graphs and ranks classes with
// PageRank.
package graph

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/phobologic/tagindex/internal/model"
)

// Hierarchy is a directed graph with an edge from every class to each of its
// base classes. Bases that are not among the graph's classes are left out.
type Hierarchy struct {
	g     graph.Graph[string, *model.Tag]
	order []string
}

// New builds the hierarchy of classes. When two tags share a name the first
// one is used.
func New(classes []*model.Tag) (*Hierarchy, error) {
	h := &Hierarchy{g: graph.New(func(t *model.Tag) string { return t.Name }, graph.Directed())}

	for _, t := range classes {
		err := h.g.AddVertex(t)
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("adding class %s: %w", t.Name, err)
		}
		h.order = append(h.order, t.Name)
	}

	for _, name := range h.order {
		t, err := h.g.Vertex(name)
		if err != nil {
			return nil, err
		}
		for _, base := range t.Bases() {
			if base == name {
				continue // no self-edges
			}
			err := h.g.AddEdge(name, base)
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists), errors.Is(err, graph.ErrVertexNotFound):
			default:
				return nil, fmt.Errorf("linking %s to %s: %w", name, base, err)
			}
		}
	}
	return h, nil
}

// Classes returns the class names in the order they were added.
func (h *Hierarchy) Classes() []string {
	return append([]string(nil), h.order...)
}

// Bases returns the direct base classes of name, sorted.
func (h *Hierarchy) Bases(name string) []string {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	return sortedKeys(adj[name])
}

// Derived returns the classes deriving directly from name, sorted.
func (h *Hierarchy) Derived(name string) []string {
	pred, err := h.g.PredecessorMap()
	if err != nil {
		return nil
	}
	return sortedKeys(pred[name])
}

// WriteDOT renders the hierarchy in Graphviz DOT format.
func (h *Hierarchy) WriteDOT(w io.Writer) error {
	return draw.DOT(h.g, w)
}

// Score is the PageRank of one class.
type Score struct {
	Name  string
	Score float64
}

// Rank applies PageRank over the inheritance edges, so that classes many
// others derive from score highest. Scores are sorted descending, ties by
// name.
func (h *Hierarchy) Rank() []Score {
	if len(h.order) == 0 {
		return nil
	}
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil
	}

	nodes := make(map[string]struct{}, len(h.order))
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, name := range h.order {
		nodes[name] = struct{}{}
		for _, base := range sortedKeys(adj[name]) {
			outEdges[name] = append(outEdges[name], base)
			outDegree[name]++
		}
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)

	scores := make([]Score, 0, len(ranks))
	for _, name := range h.order {
		scores = append(scores, Score{Name: name, Score: ranks[name]})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Name < scores[j].Name
	})
	return scores
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	for node := range nodes {
		rank[node] = 1.0 / float64(n)
	}
	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		// Classes without bases spread their rank evenly.
		var dangling float64
		for node := range nodes {
			if outDegree[node] == 0 {
				dangling += rank[node]
			}
		}
		base := teleport + alpha*dangling/float64(n)

		next := make(map[string]float64, n)
		for node := range nodes {
			next[node] = base
		}
		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				next[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(next[node] - rank[node])
		}
		rank = next
		if diff < tol {
			break
		}
	}
	return rank
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
