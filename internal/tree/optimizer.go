package tree

import (
	"github.com/vyrodovalexey/avaroute/internal/matcher"
	"github.com/vyrodovalexey/avaroute/internal/observability"
)

// Optimizer rewrites a route tree into an equivalent tree with fewer nodes
// and cheaper matchers. It holds no state between calls and is safe for
// concurrent use.
type Optimizer struct {
	logger observability.Logger
}

// OptimizerOption is a functional option for the optimizer.
type OptimizerOption func(*Optimizer)

// WithOptimizerLogger sets the logger.
func WithOptimizerLogger(logger observability.Logger) OptimizerOption {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// NewOptimizer creates a new tree optimizer.
func NewOptimizer(opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize optimizes t with a default optimizer.
func Optimize(t *Tree) *Tree {
	return NewOptimizer().Optimize(t)
}

// OptimizeStats describes what an optimization run changed.
type OptimizeStats struct {
	NodesBefore int
	NodesAfter  int
	Collapses   int
	Merges      int
	Flattens    int
}

// Optimize returns the optimized tree. Each segment count is optimized
// independently; the root leaf is passed through unchanged.
func (o *Optimizer) Optimize(t *Tree) *Tree {
	optimized, _ := o.OptimizeWithStats(t)
	return optimized
}

// OptimizeWithStats optimizes t and reports what changed.
func (o *Optimizer) OptimizeWithStats(t *Tree) (*Tree, OptimizeStats) {
	run := &optimizeRun{}
	result := &Tree{
		Root:              t.Root,
		SegmentDepthNodes: make(map[int]*Collection, len(t.SegmentDepthNodes)),
	}

	for _, count := range t.SegmentCounts() {
		nodes := t.SegmentDepthNodes[count]
		optimized := run.optimizeNodes(nodes)
		result.SegmentDepthNodes[count] = optimized

		o.logger.Debug("segment count optimized",
			observability.Int("segments", count),
			observability.Int("nodes_before", nodes.Count()),
			observability.Int("nodes_after", optimized.Count()),
		)
	}

	run.stats.NodesBefore = t.NodeCount()
	run.stats.NodesAfter = result.NodeCount()

	o.logger.Debug("route tree optimized",
		observability.Int("nodes_before", run.stats.NodesBefore),
		observability.Int("nodes_after", run.stats.NodesAfter),
		observability.Int("collapses", run.stats.Collapses),
		observability.Int("merges", run.stats.Merges),
		observability.Int("flattens", run.stats.Flattens),
	)

	return result, run.stats
}

// optimizeRun carries the counters of a single Optimize call.
type optimizeRun struct {
	stats OptimizeStats
}

// optimizeNodes optimizes every node bottom-up, then lifts matchers shared
// by adjacent siblings.
func (r *optimizeRun) optimizeNodes(c *Collection) *Collection {
	nodes := make([]*Node, 0, c.Len())
	for _, n := range c.Nodes() {
		nodes = append(nodes, r.optimizeNode(n))
	}
	return r.moveCommonMatchersToParentNode(NewCollection(nodes...))
}

// optimizeNode optimizes the children of a parent node and collapses it into
// its only child when a single one remains.
func (r *optimizeRun) optimizeNode(n *Node) *Node {
	matchers := n.matchers
	contents := n.contents

	if n.IsParent() {
		children := r.optimizeNodes(n.Children())
		if children.Len() == 1 {
			child := children.At(0)
			matchers = matcher.MergeMatchers(matchers, child.matchers)
			contents = child.contents
			r.stats.Collapses++
		} else {
			contents = children
		}
	}

	return NewNode(matcher.OptimizeMatchers(matchers), contents)
}

// moveCommonMatchersToParentNode folds adjacent siblings sharing matchers
// into synthetic parent nodes. Only adjacent siblings are compared.
func (r *optimizeRun) moveCommonMatchersToParentNode(c *Collection) *Collection {
	if c.Len() <= 1 {
		return c
	}

	nodes := c.Nodes()
	out := make([]*Node, 0, len(nodes))
	previous := nodes[0]

	for _, n := range nodes[1:] {
		if parent := r.extractCommonParentNode(previous, n); parent != nil {
			previous = parent
			continue
		}
		out = append(out, previous)
		previous = n
	}
	out = append(out, previous)

	return NewCollection(out...)
}

// extractCommonParentNode returns a parent node holding the matchers a and b
// share and both nodes, stripped of those matchers, as children. It returns
// nil when a and b share nothing.
func (r *optimizeRun) extractCommonParentNode(a, b *Node) *Node {
	common := intersectByKey(a.matchers.Entries(), b.matchers.Entries(),
		func(e matcher.Entry) int { return e.Depth },
		func(x, y matcher.Entry) bool { return matcher.SameConstraint(x.Matcher, y.Matcher) },
	)
	if len(common) == 0 {
		return nil
	}

	commonMatchers := matcher.NewMap(common...)
	children := make([]*Node, 0, 2)

	for _, n := range []*Node{a, b} {
		specific := n.matchers
		for _, e := range common {
			duplicate, _ := n.matchers.Get(e.Depth)
			shared, _ := commonMatchers.Get(e.Depth)
			commonMatchers = commonMatchers.With(e.Depth, matcher.MergeParameterKeys(shared, duplicate))
			specific = specific.Without(e.Depth)
		}

		if specific.Len() == 0 && n.IsParent() {
			children = append(children, n.Children().Nodes()...)
			r.stats.Flattens++
			continue
		}
		children = append(children, n.WithMatchers(specific))
	}

	r.stats.Merges++
	return r.newParentNode(commonMatchers, children)
}

// newParentNode creates a synthetic parent. Its children go through the
// sibling pass again, since flattening may have made new siblings adjacent.
func (r *optimizeRun) newParentNode(matchers matcher.Map, children []*Node) *Node {
	collection := r.moveCommonMatchersToParentNode(NewCollection(children...))

	var contents Contents = collection
	if collection.Len() == 1 {
		child := collection.At(0)
		matchers = matcher.MergeMatchers(matchers, child.matchers)
		contents = child.contents
		r.stats.Collapses++
	}

	return NewNode(matcher.OptimizeMatchers(matchers), contents)
}
