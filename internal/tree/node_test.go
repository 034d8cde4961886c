package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaroute/internal/matcher"
)

func mustRegex(t *testing.T, pattern string, keys ...string) *matcher.RegexMatcher {
	t.Helper()
	m, err := matcher.NewRegex(pattern, keys...)
	require.NoError(t, err)
	return m
}

func mustExpression(t *testing.T, template string, keys ...string) *matcher.ExpressionMatcher {
	t.Helper()
	m, err := matcher.NewExpression(template, keys...)
	require.NoError(t, err)
	return m
}

// at builds a matcher map from depth/matcher pairs.
func at(pairs ...interface{}) matcher.Map {
	var m matcher.Map
	for i := 0; i+1 < len(pairs); i += 2 {
		m = m.With(pairs[i].(int), pairs[i+1].(matcher.SegmentMatcher))
	}
	return m
}

func route(name string) Route {
	return Route{Name: name, Methods: []string{"GET"}}
}

func TestNode_LeafAndParent(t *testing.T) {
	t.Parallel()

	leaf := NewLeafNode(at(0, matcher.NewStatic("a")), route("r1"))
	assert.False(t, leaf.IsParent())
	require.NotNil(t, leaf.Leaf())
	assert.Equal(t, "r1", leaf.Leaf().Routes[0].Name)
	assert.Panics(t, func() { leaf.Children() })

	parent := NewParentNode(at(0, matcher.NewStatic("p")), leaf)
	assert.True(t, parent.IsParent())
	assert.Nil(t, parent.Leaf())
	assert.Equal(t, 1, parent.Children().Len())
	assert.Same(t, leaf, parent.Children().At(0))
}

func TestNewNode_PanicsWithoutContents(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewNode(matcher.Map{}, nil) })
	assert.Panics(t, func() { NewNode(matcher.Map{}, (*Leaf)(nil)) })
	assert.Panics(t, func() { NewNode(matcher.Map{}, (*Collection)(nil)) })
}

func TestNode_WithReturnsCopies(t *testing.T) {
	t.Parallel()

	original := NewLeafNode(at(0, matcher.NewStatic("a")), route("r1"))

	withMatchers := original.WithMatchers(at(0, matcher.NewStatic("b")))
	assert.NotSame(t, original, withMatchers)
	assert.True(t, original.Matchers().Equal(at(0, matcher.NewStatic("a"))))
	assert.Same(t, original.Leaf(), withMatchers.Leaf())

	withContents := original.WithContents(NewCollection(original))
	assert.True(t, withContents.IsParent())
	assert.False(t, original.IsParent())
}

func TestNode_Equal(t *testing.T) {
	t.Parallel()

	build := func(name string) *Node {
		return NewParentNode(at(0, matcher.NewStatic("users")),
			NewLeafNode(at(1, matcher.NewAny("id")), route(name)),
			NewLeafNode(at(1, matcher.NewStatic("new")), route("new")),
		)
	}

	assert.True(t, build("show").Equal(build("show")))
	assert.False(t, build("show").Equal(build("other")))

	leaf := NewLeafNode(at(0, matcher.NewStatic("users")), route("show"))
	parent := NewParentNode(at(0, matcher.NewStatic("users")))
	assert.False(t, leaf.Equal(parent))
	assert.False(t, leaf.Equal(nil))
	assert.True(t, (*Node)(nil).Equal(nil))
}

func TestCollection(t *testing.T) {
	t.Parallel()

	a := NewLeafNode(at(0, matcher.NewStatic("a")), route("a"))
	b := NewParentNode(at(0, matcher.NewStatic("b")),
		NewLeafNode(at(1, matcher.NewAny()), route("b1")),
		NewLeafNode(at(1, matcher.NewStatic("x")), route("b2")),
	)
	c := NewCollection(a, b)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 4, c.Count())

	nodes := c.Nodes()
	nodes[0] = b
	assert.Same(t, a, c.At(0))

	var empty *Collection
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Nodes())
	assert.True(t, empty.Equal(NewCollection()))
}

func TestRoute_Equal(t *testing.T) {
	t.Parallel()

	r := Route{Name: "a", Methods: []string{"GET"}, Handler: "h", Parameters: []Parameter{{Name: "id", Depth: 1}}}
	same := Route{Name: "a", Methods: []string{"GET"}, Handler: "h", Parameters: []Parameter{{Name: "id", Depth: 1}}}
	other := Route{Name: "a", Methods: []string{"GET"}, Handler: "h", Parameters: []Parameter{{Name: "id", Depth: 2}}}

	assert.True(t, r.Equal(same))
	assert.False(t, r.Equal(other))
}

func TestTree_RoutesAndCounts(t *testing.T) {
	t.Parallel()

	tr := NewTree()
	tr.Root = &Leaf{Routes: []Route{route("home")}}
	tr.SegmentDepthNodes[2] = NewCollection(
		NewParentNode(at(0, matcher.NewStatic("a")),
			NewLeafNode(at(1, matcher.NewAny()), route("a2")),
		),
	)
	tr.SegmentDepthNodes[1] = NewCollection(
		NewLeafNode(at(0, matcher.NewStatic("a")), route("a1")),
	)

	assert.Equal(t, []int{1, 2}, tr.SegmentCounts())
	assert.Equal(t, 3, tr.NodeCount())

	names := make([]string, 0)
	for _, r := range tr.Routes() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"home", "a1", "a2"}, names)
}

func TestIntersectByKey(t *testing.T) {
	t.Parallel()

	type kv struct {
		k int
		v string
	}
	key := func(e kv) int { return e.k }
	eq := func(x, y kv) bool { return x.v == y.v }

	a := []kv{{3, "c"}, {1, "a"}, {2, "b"}}
	b := []kv{{1, "a"}, {2, "x"}, {3, "c"}, {4, "d"}}

	assert.Equal(t, []kv{{3, "c"}, {1, "a"}}, intersectByKey(a, b, key, eq))
	assert.Nil(t, intersectByKey(a, nil, key, eq))
	assert.Nil(t, intersectByKey([]kv{{9, "z"}}, b, key, eq))
}
