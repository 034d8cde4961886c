// Package tree provides the route tree: its immutable node types, the
// builder producing an unoptimized tree from route definitions, the
// optimizer, the dispatcher walking a tree against a request path, and a
// serializable document form.
//
// A Tree groups routes by path segment count. Each Node holds a matcher.Map
// from segment depth to matcher and either a Leaf (the routes reached) or a
// Collection of child nodes.
//
// # Optimization
//
// Optimize walks the tree bottom-up. A parent with a single child is
// collapsed into it, matchers are rewritten and ordered by cost, and
// adjacent siblings sharing matchers at the same depth are regrouped under a
// synthetic parent holding the shared matchers:
//
//	b := tree.NewBuilder()
//	_ = b.Add(tree.RouteDefinition{Name: "users.edit", Segments: segs})
//	t := tree.Optimize(b.Build())
//	m, ok := tree.Dispatch(t, "/users/42/edit")
//
// Optimization never changes which routes a path reaches, in which order,
// or the parameters each route reads.
package tree
