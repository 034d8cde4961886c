package tree

import (
	"strings"

	"github.com/vyrodovalexey/avaroute/internal/matcher"
)

// Match is a leaf reached by a request path.
type Match struct {
	Leaf     *Leaf
	Segments []string
	Captures matcher.Captures
}

// Params returns the parameters declared by route, each read from the depth
// it was declared at.
func (m *Match) Params(route Route) map[string]string {
	params := make(map[string]string, len(route.Parameters))
	for _, p := range route.Parameters {
		if v, ok := m.Captures[p.Depth][p.Name]; ok {
			params[p.Name] = v
		}
	}
	return params
}

// SplitPath splits a request path into segments. Leading and trailing
// slashes are ignored; "/" and "" have no segments.
func SplitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Dispatch returns the first leaf reached by path.
func Dispatch(t *Tree, path string) (*Match, bool) {
	var found *Match
	Walk(t, path, func(m *Match) bool {
		found = m
		return false
	})
	return found, found != nil
}

// Walk visits every leaf reached by path in tree order. The walk stops when
// visit returns false.
func Walk(t *Tree, path string, visit func(*Match) bool) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		if t.Root != nil {
			visit(&Match{Leaf: t.Root})
		}
		return
	}

	c, ok := t.SegmentDepthNodes[len(segments)]
	if !ok {
		return
	}
	walkCollection(c, segments, nil, visit)
}

// walkCollection walks the nodes of c depth-first. It returns false once
// visit asked to stop.
func walkCollection(c *Collection, segments []string, captures matcher.Captures, visit func(*Match) bool) bool {
	for _, n := range c.nodes {
		ok, captured := n.matchers.Match(segments)
		if !ok {
			continue
		}
		merged := mergeCaptures(captures, captured)

		if leaf := n.Leaf(); leaf != nil {
			if !visit(&Match{Leaf: leaf, Segments: segments, Captures: merged}) {
				return false
			}
			continue
		}
		if !walkCollection(n.Children(), segments, merged, visit) {
			return false
		}
	}
	return true
}

// mergeCaptures overlays child on parent without modifying either.
func mergeCaptures(parent, child matcher.Captures) matcher.Captures {
	if len(child) == 0 {
		return parent
	}
	if len(parent) == 0 {
		return child
	}

	merged := make(matcher.Captures, len(parent)+len(child))
	for depth, params := range parent {
		merged[depth] = params
	}
	for depth, params := range child {
		existing, ok := merged[depth]
		if !ok {
			merged[depth] = params
			continue
		}
		combined := make(map[string]string, len(existing)+len(params))
		for k, v := range existing {
			combined[k] = v
		}
		for k, v := range params {
			combined[k] = v
		}
		merged[depth] = combined
	}
	return merged
}
