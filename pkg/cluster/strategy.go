package cluster

import (
	"fmt"
	"slices"
	"strings"

	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/identity"
)

// Strategy partitions records, given their identity keys, into groups of
// indices. Each group is sorted ascending and groups are ordered by their
// smallest index.
type Strategy interface {
	Name() string
	Partition(keys []identity.Set) [][]int
}

var (
	// Scan places records left to right into the first cluster sharing a
	// key. Quadratic in the number of records.
	Scan Strategy = scanStrategy{}

	// UnionFind joins records through a disjoint-set forest keyed by
	// identity key. Near-linear.
	UnionFind Strategy = unionFindStrategy{}
)

// Strategies lists the available strategies by name.
func Strategies() []Strategy {
	return []Strategy{UnionFind, Scan}
}

// ParseStrategy resolves a strategy by name. Empty selects UnionFind.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return UnionFind, nil
	}
	for _, s := range Strategies() {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, &errors.ValidationError{
		Field:   "cluster_strategy",
		Value:   name,
		Message: fmt.Sprintf("unknown strategy (want one of %s, %s)", UnionFind.Name(), Scan.Name()),
	}
}

type scanStrategy struct{}

func (scanStrategy) Name() string { return "scan" }

type scanGroup struct {
	indices []int
	keys    identity.Set
}

func (scanStrategy) Partition(keys []identity.Set) [][]int {
	var groups []*scanGroup
	for i, k := range keys {
		target := -1
		kept := groups[:0]
		for _, g := range groups {
			if !g.keys.Intersects(k) {
				kept = append(kept, g)
				continue
			}
			if target == -1 {
				target = len(kept)
				g.indices = append(g.indices, i)
				g.keys.Union(k)
				kept = append(kept, g)
				continue
			}
			// i bridges two clusters
			into := kept[target]
			into.indices = append(into.indices, g.indices...)
			into.keys.Union(g.keys)
		}
		groups = kept
		if target == -1 {
			g := &scanGroup{indices: []int{i}}
			g.keys.Union(k)
			groups = append(groups, g)
		}
	}

	out := make([][]int, len(groups))
	for n, g := range groups {
		slices.Sort(g.indices)
		out[n] = g.indices
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

type unionFindStrategy struct{}

func (unionFindStrategy) Name() string { return "unionfind" }

func (unionFindStrategy) Partition(keys []identity.Set) [][]int {
	f := newForest(len(keys))
	owners := make(map[identity.Key]int)
	for i, k := range keys {
		for _, key := range k.Keys() {
			if owner, ok := owners[key]; ok {
				f.union(owner, i)
				continue
			}
			owners[key] = i
		}
	}

	var out [][]int
	slot := make(map[int]int)
	for i := range keys {
		root := f.find(i)
		n, ok := slot[root]
		if !ok {
			n = len(out)
			slot[root] = n
			out = append(out, nil)
		}
		out[n] = append(out[n], i)
	}
	return out
}

// forest is a disjoint-set forest with path compression and union by size.
type forest struct {
	parent []int
	size   []int
}

func newForest(n int) *forest {
	f := &forest{parent: make([]int, n), size: make([]int, n)}
	for i := range f.parent {
		f.parent[i] = i
		f.size[i] = 1
	}
	return f
}

func (f *forest) find(x int) int {
	root := x
	for f.parent[root] != root {
		root = f.parent[root]
	}
	for f.parent[x] != root {
		f.parent[x], x = root, f.parent[x]
	}
	return root
}

func (f *forest) union(a, b int) {
	ra, rb := f.find(a), f.find(b)
	if ra == rb {
		return
	}
	if f.size[ra] < f.size[rb] {
		ra, rb = rb, ra
	}
	f.parent[rb] = ra
	f.size[ra] += f.size[rb]
}
