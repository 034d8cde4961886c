package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaroute/internal/matcher"
	"github.com/vyrodovalexey/avaroute/internal/util"
)

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	require.NoError(t, b.Add(RouteDefinition{Name: "home", Methods: []string{"GET"}}))
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "users.edit",
		Methods:  []string{"GET"},
		Handler:  "users.edit",
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("users"), matcher.NewAny("id"), matcher.NewStatic("edit")},
	}))
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "users.delete",
		Methods:  []string{"POST"},
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("users"), matcher.NewAny("id"), matcher.NewStatic("delete")},
	}))
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "users.list",
		Methods:  []string{"GET"},
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("users")},
	}))
	assert.Equal(t, 4, b.Len())

	tr := b.Build()

	require.NotNil(t, tr.Root)
	assert.Equal(t, "home", tr.Root.Routes[0].Name)
	assert.Equal(t, []int{1, 3}, tr.SegmentCounts())

	expected := NewCollection(
		NewParentNode(at(0, matcher.NewStatic("users")),
			NewParentNode(at(1, matcher.NewAny("id")),
				NewLeafNode(at(2, matcher.NewStatic("edit")), Route{
					Name: "users.edit", Methods: []string{"GET"}, Handler: "users.edit",
					Parameters: []Parameter{{Name: "id", Depth: 1}},
				}),
				NewLeafNode(at(2, matcher.NewStatic("delete")), Route{
					Name: "users.delete", Methods: []string{"POST"},
					Parameters: []Parameter{{Name: "id", Depth: 1}},
				}),
			),
		),
	)
	assert.True(t, expected.Equal(tr.SegmentDepthNodes[3]), dumpCollection(tr.SegmentDepthNodes[3]))
}

func TestBuilder_IdenticalChainsShareLeaf(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	segments := func() []matcher.SegmentMatcher {
		return []matcher.SegmentMatcher{matcher.NewStatic("posts"), matcher.NewAny("id")}
	}
	require.NoError(t, b.Add(RouteDefinition{Name: "show", Methods: []string{"GET"}, Segments: segments()}))
	require.NoError(t, b.Add(RouteDefinition{Name: "update", Methods: []string{"PUT"}, Segments: segments()}))
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "other",
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("tags"), matcher.NewAny("id")},
	}))

	tr := b.Build()
	c := tr.SegmentDepthNodes[2]
	require.Equal(t, 2, c.Len())

	leaf := c.At(0).Children().At(0).Leaf()
	require.NotNil(t, leaf)
	require.Len(t, leaf.Routes, 2)
	assert.Equal(t, "show", leaf.Routes[0].Name)
	assert.Equal(t, "update", leaf.Routes[1].Name)
}

func TestBuilder_SeparatedIdenticalChainsKeepOrder(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	segments := func(param string) []matcher.SegmentMatcher {
		return []matcher.SegmentMatcher{matcher.NewStatic("p"), matcher.NewAny(param)}
	}
	require.NoError(t, b.Add(RouteDefinition{Name: "get", Methods: []string{"GET"}, Segments: segments("id")}))
	require.NoError(t, b.Add(RouteDefinition{Name: "any", Segments: segments("x")}))
	require.NoError(t, b.Add(RouteDefinition{Name: "post", Methods: []string{"POST"}, Segments: segments("id")}))

	c := b.Build().SegmentDepthNodes[2]
	require.Equal(t, 1, c.Len())

	children := c.At(0).Children()
	require.Equal(t, 3, children.Len())
	for i, name := range []string{"get", "any", "post"} {
		leaf := children.At(i).Leaf()
		require.NotNil(t, leaf)
		require.Len(t, leaf.Routes, 1)
		assert.Equal(t, name, leaf.Routes[0].Name)
	}
}

func TestBuilder_NonAdjacentPrefixesStayApart(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "a1",
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("a"), matcher.NewStatic("1")},
	}))
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "b1",
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("b"), matcher.NewStatic("1")},
	}))
	require.NoError(t, b.Add(RouteDefinition{
		Name:     "a2",
		Segments: []matcher.SegmentMatcher{matcher.NewStatic("a"), matcher.NewStatic("2")},
	}))

	c := b.Build().SegmentDepthNodes[2]
	assert.Equal(t, 3, c.Len())
}

func TestBuilder_AddErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    []RouteDefinition
		def      RouteDefinition
		expected error
	}{
		{
			name:     "empty name",
			def:      RouteDefinition{Name: " "},
			expected: util.ErrInvalidInput,
		},
		{
			name:     "duplicate name",
			setup:    []RouteDefinition{{Name: "a"}},
			def:      RouteDefinition{Name: "a"},
			expected: util.ErrDuplicateRoute,
		},
		{
			name:     "nil segment",
			def:      RouteDefinition{Name: "a", Segments: []matcher.SegmentMatcher{nil}},
			expected: util.ErrInvalidInput,
		},
		{
			name: "parameter captured twice",
			def: RouteDefinition{Name: "a", Segments: []matcher.SegmentMatcher{
				matcher.NewAny("id"), matcher.NewAny("id"),
			}},
			expected: util.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := NewBuilder()
			for _, def := range tt.setup {
				require.NoError(t, b.Add(def))
			}
			err := b.Add(tt.def)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), err.Error())
		})
	}
}

func TestBuilder_CopiesDefinitions(t *testing.T) {
	t.Parallel()

	segments := []matcher.SegmentMatcher{matcher.NewStatic("a")}
	methods := []string{"GET"}

	b := NewBuilder()
	require.NoError(t, b.Add(RouteDefinition{Name: "a", Methods: methods, Segments: segments}))
	segments[0] = matcher.NewStatic("changed")
	methods[0] = "DELETE"

	leaf := b.Build().SegmentDepthNodes[1].At(0)
	m, _ := leaf.Matchers().Get(0)
	assert.True(t, matcher.Equal(matcher.NewStatic("a"), m))
	assert.Equal(t, []string{"GET"}, leaf.Leaf().Routes[0].Methods)
}

func TestBuilder_CompoundCapturesOnce(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	require.NoError(t, b.Add(RouteDefinition{
		Name: "a",
		Segments: []matcher.SegmentMatcher{
			matcher.NewCompound(mustRegex(t, `^([0-9]+)$`, "id"), mustExpression(t, "int({segment}) > 0", "id")),
		},
	}))

	r := b.Build().Routes()[0]
	assert.Equal(t, []Parameter{{Name: "id", Depth: 0}}, r.Parameters)
}
