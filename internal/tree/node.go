package tree

import (
	"slices"

	"github.com/vyrodovalexey/avaroute/internal/matcher"
)

// Parameter is a route parameter bound to the segment depth it is read from.
type Parameter struct {
	Name  string `json:"name" yaml:"name"`
	Depth int    `json:"depth" yaml:"depth"`
}

// Route is the payload of a leaf: one registered route.
type Route struct {
	Name       string      `json:"name" yaml:"name"`
	Methods    []string    `json:"methods,omitempty" yaml:"methods,omitempty"`
	Handler    string      `json:"handler,omitempty" yaml:"handler,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Equal reports whether two routes are identical.
func (r Route) Equal(other Route) bool {
	return r.Name == other.Name &&
		r.Handler == other.Handler &&
		slices.Equal(r.Methods, other.Methods) &&
		slices.Equal(r.Parameters, other.Parameters)
}

// Contents is the contents of a node: a *Leaf or a *Collection.
type Contents interface {
	isContents()
}

// Leaf holds the routes reached through a node, in registration order.
type Leaf struct {
	Routes []Route
}

func (*Leaf) isContents() {}

// Equal reports whether two leaves hold identical routes.
func (l *Leaf) Equal(other *Leaf) bool {
	if l == nil || other == nil {
		return l == nil && other == nil
	}
	return slices.EqualFunc(l.Routes, other.Routes, Route.Equal)
}

// Node is one level of the route tree: the matchers required to reach it
// and its contents. Nodes are immutable.
type Node struct {
	matchers matcher.Map
	contents Contents
}

// NewNode creates a node. It panics when contents is nil.
func NewNode(matchers matcher.Map, contents Contents) *Node {
	if contents == nil || contents == (*Leaf)(nil) || contents == (*Collection)(nil) {
		panic("tree: node contents must be a leaf or a collection")
	}
	return &Node{matchers: matchers, contents: contents}
}

// NewLeafNode creates a node reaching the given routes.
func NewLeafNode(matchers matcher.Map, routes ...Route) *Node {
	return NewNode(matchers, &Leaf{Routes: slices.Clone(routes)})
}

// NewParentNode creates a node holding child nodes.
func NewParentNode(matchers matcher.Map, children ...*Node) *Node {
	return NewNode(matchers, NewCollection(children...))
}

// Matchers returns the matchers of the node.
func (n *Node) Matchers() matcher.Map {
	return n.matchers
}

// Contents returns the contents of the node.
func (n *Node) Contents() Contents {
	return n.contents
}

// IsParent reports whether the node holds child nodes.
func (n *Node) IsParent() bool {
	_, ok := n.contents.(*Collection)
	return ok
}

// Children returns the child collection. It panics on a leaf node.
func (n *Node) Children() *Collection {
	c, ok := n.contents.(*Collection)
	if !ok {
		panic("tree: node is not a parent node")
	}
	return c
}

// Leaf returns the leaf payload, or nil for a parent node.
func (n *Node) Leaf() *Leaf {
	l, _ := n.contents.(*Leaf)
	return l
}

// WithMatchers returns a copy of the node with different matchers.
func (n *Node) WithMatchers(matchers matcher.Map) *Node {
	return &Node{matchers: matchers, contents: n.contents}
}

// WithContents returns a copy of the node with different contents.
func (n *Node) WithContents(contents Contents) *Node {
	return NewNode(n.matchers, contents)
}

// Equal reports whether two nodes are structurally equal.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == nil && other == nil
	}
	if !n.matchers.Equal(other.matchers) {
		return false
	}

	switch c := n.contents.(type) {
	case *Leaf:
		o, ok := other.contents.(*Leaf)
		return ok && c.Equal(o)
	case *Collection:
		o, ok := other.contents.(*Collection)
		return ok && c.Equal(o)
	default:
		return false
	}
}

// Collection is an ordered sequence of sibling nodes in registration order.
type Collection struct {
	nodes []*Node
}

func (*Collection) isContents() {}

// NewCollection creates a collection of nodes.
func NewCollection(nodes ...*Node) *Collection {
	return &Collection{nodes: slices.Clone(nodes)}
}

// Len returns the number of nodes.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.nodes)
}

// At returns the node at index i.
func (c *Collection) At(i int) *Node {
	return c.nodes[i]
}

// Nodes returns the nodes in order.
func (c *Collection) Nodes() []*Node {
	if c == nil {
		return nil
	}
	return slices.Clone(c.nodes)
}

// Equal reports whether two collections hold structurally equal nodes in
// the same order.
func (c *Collection) Equal(other *Collection) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i := range c.Len() {
		if !c.nodes[i].Equal(other.nodes[i]) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the collection and all descendants.
func (c *Collection) Count() int {
	total := 0
	for _, n := range c.Nodes() {
		total++
		if n.IsParent() {
			total += n.Children().Count()
		}
	}
	return total
}
