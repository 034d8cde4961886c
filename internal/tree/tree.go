package tree

import (
	"maps"
	"slices"
)

// Tree is a compiled route tree. Root holds the routes of the zero-segment
// path; SegmentDepthNodes maps a path segment count to the root nodes of the
// routes with that many segments.
type Tree struct {
	Root              *Leaf
	SegmentDepthNodes map[int]*Collection
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{SegmentDepthNodes: make(map[int]*Collection)}
}

// SegmentCounts returns the segment counts present in the tree, ascending.
func (t *Tree) SegmentCounts() []int {
	return slices.Sorted(maps.Keys(t.SegmentDepthNodes))
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	total := 0
	for _, c := range t.SegmentDepthNodes {
		total += c.Count()
	}
	return total
}

// Routes returns every route in the tree, the root routes first, then by
// segment count and tree order.
func (t *Tree) Routes() []Route {
	var routes []Route
	if t.Root != nil {
		routes = append(routes, t.Root.Routes...)
	}
	for _, count := range t.SegmentCounts() {
		routes = appendRoutes(routes, t.SegmentDepthNodes[count])
	}
	return routes
}

func appendRoutes(routes []Route, c *Collection) []Route {
	for _, n := range c.Nodes() {
		if n.IsParent() {
			routes = appendRoutes(routes, n.Children())
			continue
		}
		routes = append(routes, n.Leaf().Routes...)
	}
	return routes
}

// Equal reports whether two trees are structurally equal.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == nil && other == nil
	}
	if !t.Root.Equal(other.Root) {
		return false
	}
	if len(t.SegmentDepthNodes) != len(other.SegmentDepthNodes) {
		return false
	}
	for count, c := range t.SegmentDepthNodes {
		o, ok := other.SegmentDepthNodes[count]
		if !ok || !c.Equal(o) {
			return false
		}
	}
	return true
}
