package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRegex(t *testing.T, pattern string, keys ...string) *RegexMatcher {
	t.Helper()
	m, err := NewRegex(pattern, keys...)
	require.NoError(t, err)
	return m
}

func mustExpression(t *testing.T, template string, keys ...string) *ExpressionMatcher {
	t.Helper()
	m, err := NewExpression(template, keys...)
	require.NoError(t, err)
	return m
}

// customMatcher is a matcher type unknown to the optimizer.
type customMatcher struct {
	id string
}

func (m customMatcher) Match(segment string) (bool, map[string]string) {
	return segment == m.id, nil
}
func (m customMatcher) Type() string            { return "custom" }
func (m customMatcher) Pattern() string         { return m.id }
func (m customMatcher) ParameterKeys() []string { return nil }
func (m customMatcher) Hash() string            { return "custom:" + m.id }

func TestAnyMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		keys           []string
		segment        string
		expected       bool
		expectedParams map[string]string
	}{
		{
			name:           "captures under key",
			keys:           []string{"id"},
			segment:        "42",
			expected:       true,
			expectedParams: map[string]string{"id": "42"},
		},
		{
			name:           "captures under every key",
			keys:           []string{"id", "slug"},
			segment:        "hello",
			expected:       true,
			expectedParams: map[string]string{"id": "hello", "slug": "hello"},
		},
		{
			name:           "no keys",
			segment:        "x",
			expected:       true,
			expectedParams: nil,
		},
		{
			name:     "empty segment",
			keys:     []string{"id"},
			segment:  "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewAny(tt.keys...)
			matched, params := m.Match(tt.segment)
			assert.Equal(t, tt.expected, matched)
			assert.Equal(t, tt.expectedParams, params)
			assert.Equal(t, TypeAny, m.Type())
		})
	}
}

func TestStaticMatcher(t *testing.T) {
	t.Parallel()

	m := NewStatic("posts")
	matched, params := m.Match("posts")
	assert.True(t, matched)
	assert.Nil(t, params)

	matched, _ = m.Match("Posts")
	assert.False(t, matched)

	assert.Equal(t, TypeStatic, m.Type())
	assert.Equal(t, "posts", m.Pattern())
	assert.Equal(t, "posts", m.Value())
	assert.Nil(t, m.ParameterKeys())
}

func TestRegexMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		pattern        string
		keys           []string
		segment        string
		expected       bool
		expectedParams map[string]string
	}{
		{
			name:           "single group",
			pattern:        `^([0-9]+)$`,
			keys:           []string{"id"},
			segment:        "123",
			expected:       true,
			expectedParams: map[string]string{"id": "123"},
		},
		{
			name:     "single group no match",
			pattern:  `^([0-9]+)$`,
			keys:     []string{"id"},
			segment:  "12a",
			expected: false,
		},
		{
			name:           "first group feeds keys",
			pattern:        `^([a-z]+)-([0-9]+)$`,
			keys:           []string{"slug"},
			segment:        "post-7",
			expected:       true,
			expectedParams: map[string]string{"slug": "post"},
		},
		{
			name:           "no group captures whole match",
			pattern:        `^v[0-9]$`,
			keys:           []string{"version"},
			segment:        "v2",
			expected:       true,
			expectedParams: map[string]string{"version": "v2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := mustRegex(t, tt.pattern, tt.keys...)
			matched, params := m.Match(tt.segment)
			assert.Equal(t, tt.expected, matched)
			assert.Equal(t, tt.expectedParams, params)
			assert.Equal(t, TypeRegex, m.Type())
			assert.Equal(t, tt.pattern, m.Regexp())
		})
	}
}

func TestNewRegex_Invalid(t *testing.T) {
	t.Parallel()

	m, err := NewRegex(`^([0-9+$`, "id")
	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestRegexMatcher_GroupCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, mustRegex(t, `^v1$`).GroupCount())
	assert.Equal(t, 1, mustRegex(t, `^([a-z]+)$`).GroupCount())
	assert.Equal(t, 2, mustRegex(t, `^([a-z]+)-([0-9]+)$`).GroupCount())
}

func TestCompoundMatcher(t *testing.T) {
	t.Parallel()

	c := NewCompound(NewStatic("42"), NewAny("id"))
	matched, params := c.Match("42")
	assert.True(t, matched)
	assert.Equal(t, map[string]string{"id": "42"}, params)

	matched, params = c.Match("43")
	assert.False(t, matched)
	assert.Nil(t, params)

	assert.Equal(t, TypeCompound, c.Type())
	assert.Equal(t, "42 && *", c.Pattern())
	assert.Equal(t, []string{"id"}, c.ParameterKeys())
	assert.Len(t, c.Matchers(), 2)
}

func TestCompoundMatcher_ShortCircuit(t *testing.T) {
	t.Parallel()

	calls := 0
	counting := countingMatcher{calls: &calls}
	c := NewCompound(NewStatic("a"), counting)

	matched, _ := c.Match("b")
	assert.False(t, matched)
	assert.Equal(t, 0, calls)

	matched, _ = c.Match("a")
	assert.True(t, matched)
	assert.Equal(t, 1, calls)
}

type countingMatcher struct {
	calls *int
}

func (m countingMatcher) Match(string) (bool, map[string]string) {
	*m.calls++
	return true, nil
}
func (m countingMatcher) Type() string            { return "counting" }
func (m countingMatcher) Pattern() string         { return "" }
func (m countingMatcher) ParameterKeys() []string { return nil }
func (m countingMatcher) Hash() string            { return "counting" }

func TestNewCompound_PanicsWithFewerThanTwo(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewCompound(NewAny()) })
	assert.Panics(t, func() { NewCompound() })
}

func TestEqualAndSameConstraint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		a            SegmentMatcher
		b            SegmentMatcher
		expectEqual  bool
		expectSameCo bool
	}{
		{
			name:         "any same keys",
			a:            NewAny("id"),
			b:            NewAny("id"),
			expectEqual:  true,
			expectSameCo: true,
		},
		{
			name:         "any different keys",
			a:            NewAny("id"),
			b:            NewAny("slug"),
			expectEqual:  false,
			expectSameCo: true,
		},
		{
			name:         "static equal",
			a:            NewStatic("a"),
			b:            NewStatic("a"),
			expectEqual:  true,
			expectSameCo: true,
		},
		{
			name:         "static different",
			a:            NewStatic("a"),
			b:            NewStatic("b"),
			expectEqual:  false,
			expectSameCo: false,
		},
		{
			name:         "different variants",
			a:            NewAny(),
			b:            NewStatic("a"),
			expectEqual:  false,
			expectSameCo: false,
		},
		{
			name:         "regex different keys",
			a:            mustRegex(t, `^([0-9]+)$`, "id"),
			b:            mustRegex(t, `^([0-9]+)$`, "post"),
			expectEqual:  false,
			expectSameCo: true,
		},
		{
			name:         "regex different pattern",
			a:            mustRegex(t, `^([0-9]+)$`, "id"),
			b:            mustRegex(t, `^(\d+)$`, "id"),
			expectEqual:  false,
			expectSameCo: false,
		},
		{
			name:         "expression",
			a:            mustExpression(t, ExprDigit, "id"),
			b:            mustExpression(t, ExprDigit, "id"),
			expectEqual:  true,
			expectSameCo: true,
		},
		{
			name:         "compound pairwise",
			a:            NewCompound(NewStatic("a"), NewAny("x")),
			b:            NewCompound(NewStatic("a"), NewAny("y")),
			expectEqual:  false,
			expectSameCo: true,
		},
		{
			name:         "compound order matters",
			a:            NewCompound(NewStatic("a"), NewAny()),
			b:            NewCompound(NewAny(), NewStatic("a")),
			expectEqual:  false,
			expectSameCo: false,
		},
		{
			name:         "custom by hash",
			a:            customMatcher{id: "x"},
			b:            customMatcher{id: "x"},
			expectEqual:  true,
			expectSameCo: true,
		},
		{
			name:         "nil",
			a:            nil,
			b:            NewAny(),
			expectEqual:  false,
			expectSameCo: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expectEqual, Equal(tt.a, tt.b))
			assert.Equal(t, tt.expectSameCo, SameConstraint(tt.a, tt.b))
		})
	}
}

func TestHash_DistinguishesVariants(t *testing.T) {
	t.Parallel()

	hashes := []string{
		NewAny().Hash(),
		NewAny("id").Hash(),
		NewStatic("id").Hash(),
		mustRegex(t, `^(id)$`, "id").Hash(),
		mustExpression(t, ExprDigit, "id").Hash(),
		NewCompound(NewStatic("id"), NewAny("id")).Hash(),
	}

	seen := make(map[string]bool)
	for _, h := range hashes {
		assert.False(t, seen[h], h)
		seen[h] = true
	}
}

func TestMergeParameterKeys(t *testing.T) {
	t.Parallel()

	merged := MergeParameterKeys(NewAny("id"), NewAny("post", "id"))
	assert.Equal(t, []string{"id", "post"}, merged.ParameterKeys())
	assert.True(t, SameConstraint(merged, NewAny()))

	regex := MergeParameterKeys(mustRegex(t, `^([0-9]+)$`, "a"), mustRegex(t, `^([0-9]+)$`, "b"))
	assert.Equal(t, []string{"a", "b"}, regex.ParameterKeys())
	matched, params := regex.Match("7")
	assert.True(t, matched)
	assert.Equal(t, map[string]string{"a": "7", "b": "7"}, params)

	expr := MergeParameterKeys(mustExpression(t, ExprLower, "a"), mustExpression(t, ExprLower))
	assert.Equal(t, []string{"a"}, expr.ParameterKeys())

	static := NewStatic("x")
	assert.Same(t, static, MergeParameterKeys(static, NewStatic("x")))

	compound := MergeParameterKeys(
		NewCompound(NewStatic("x"), NewAny("a")),
		NewCompound(NewStatic("x"), NewAny("b")),
	)
	assert.Equal(t, []string{"a", "b"}, compound.ParameterKeys())
}

func TestParameterKeys_AreCopies(t *testing.T) {
	t.Parallel()

	keys := []string{"id"}
	m := NewAny(keys...)
	keys[0] = "changed"
	assert.Equal(t, []string{"id"}, m.ParameterKeys())

	got := m.ParameterKeys()
	got[0] = "changed"
	assert.Equal(t, []string{"id"}, m.ParameterKeys())
}
