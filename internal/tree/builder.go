package tree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vyrodovalexey/avaroute/internal/matcher"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/util"
)

// RouteDefinition is a route decomposed into one matcher per path segment.
type RouteDefinition struct {
	Name     string
	Methods  []string
	Handler  string
	Segments []matcher.SegmentMatcher
}

// Builder builds unoptimized route trees.
type Builder struct {
	logger observability.Logger
	routes []RouteDefinition
	names  map[string]struct{}
}

// BuilderOption is a functional option for the builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger.
func WithBuilderLogger(logger observability.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a new tree builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger: observability.NopLogger(),
		names:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add registers a route. Route names must be unique.
func (b *Builder) Add(def RouteDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: route name cannot be empty", util.ErrInvalidInput)
	}
	if _, exists := b.names[def.Name]; exists {
		return util.NewDuplicateRouteError(def.Name)
	}
	seen := make(map[string]int)
	for i, seg := range def.Segments {
		if seg == nil {
			return fmt.Errorf("%w: route %s has no matcher for segment %d", util.ErrInvalidInput, def.Name, i)
		}
		for _, key := range seg.ParameterKeys() {
			if prev, ok := seen[key]; ok && prev != i {
				return fmt.Errorf("%w: route %s captures parameter %s at segments %d and %d",
					util.ErrInvalidInput, def.Name, key, prev, i)
			}
			seen[key] = i
		}
	}

	def.Methods = slices.Clone(def.Methods)
	def.Segments = slices.Clone(def.Segments)
	b.routes = append(b.routes, def)
	b.names[def.Name] = struct{}{}
	return nil
}

// Len returns the number of registered routes.
func (b *Builder) Len() int {
	return len(b.routes)
}

// chain is a sequence of segment matchers and the routes sharing it.
type chain struct {
	segments []matcher.SegmentMatcher
	routes   []Route
}

// Build returns the unoptimized tree. Routes are grouped by segment count;
// each count gets one tree level per segment. Consecutive routes with
// structurally equal segments share a leaf, and adjacent routes with an
// equal matcher at a depth share the node for that depth.
func (b *Builder) Build() *Tree {
	t := NewTree()
	byCount := make(map[int][]*chain)

	for _, def := range b.routes {
		route := routeFromDefinition(def)
		if len(def.Segments) == 0 {
			if t.Root == nil {
				t.Root = &Leaf{}
			}
			t.Root.Routes = append(t.Root.Routes, route)
			continue
		}

		count := len(def.Segments)
		if existing := lastChain(byCount[count], def.Segments); existing != nil {
			existing.routes = append(existing.routes, route)
			continue
		}
		byCount[count] = append(byCount[count], &chain{segments: def.Segments, routes: []Route{route}})
	}

	for count, chains := range byCount {
		t.SegmentDepthNodes[count] = buildLevel(chains, 0)
	}

	b.logger.Debug("route tree built",
		observability.Int("routes", len(b.routes)),
		observability.Int("segment_counts", len(t.SegmentDepthNodes)),
		observability.Int("nodes", t.NodeCount()),
	)

	return t
}

func routeFromDefinition(def RouteDefinition) Route {
	route := Route{
		Name:    def.Name,
		Methods: slices.Clone(def.Methods),
		Handler: def.Handler,
	}
	for depth, seg := range def.Segments {
		for _, key := range seg.ParameterKeys() {
			route.Parameters = append(route.Parameters, Parameter{Name: key, Depth: depth})
		}
	}
	return route
}

// lastChain returns the most recent chain if its segments equal segments.
// Only the most recent chain is considered so that a route never ranks ahead
// of routes registered before it.
func lastChain(chains []*chain, segments []matcher.SegmentMatcher) *chain {
	if len(chains) == 0 {
		return nil
	}
	last := chains[len(chains)-1]
	if slices.EqualFunc(last.segments, segments, matcher.Equal) {
		return last
	}
	return nil
}

// buildLevel builds the nodes for depth from chains sharing all previous
// depths.
func buildLevel(chains []*chain, depth int) *Collection {
	var nodes []*Node

	for i := 0; i < len(chains); {
		j := i + 1
		for j < len(chains) && matcher.Equal(chains[j].segments[depth], chains[i].segments[depth]) {
			j++
		}

		group := chains[i:j]
		matchers := matcher.NewMap(matcher.Entry{Depth: depth, Matcher: chains[i].segments[depth]})

		if depth == len(chains[i].segments)-1 {
			var routes []Route
			for _, c := range group {
				routes = append(routes, c.routes...)
			}
			nodes = append(nodes, NewLeafNode(matchers, routes...))
		} else {
			nodes = append(nodes, NewNode(matchers, buildLevel(group, depth+1)))
		}

		i = j
	}

	return NewCollection(nodes...)
}
