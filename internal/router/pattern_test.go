package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/matcher"
	"github.com/vyrodovalexey/avaroute/internal/util"
)

func TestParsePathPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		expected []segment
	}{
		{name: "root", pattern: "/", expected: []segment{}},
		{name: "static", pattern: "/api/v1", expected: []segment{{value: "api"}, {value: "v1"}}},
		{
			name:    "parameter",
			pattern: "/users/{id}",
			expected: []segment{
				{value: "users"},
				{value: "{id}", isParam: true, paramName: "id"},
			},
		},
		{
			name:    "inline regex with braces",
			pattern: "/codes/{code:[0-9]{3}}",
			expected: []segment{
				{value: "codes"},
				{value: "{code:[0-9]{3}}", isParam: true, paramName: "code", regex: "[0-9]{3}"},
			},
		},
		{
			name:    "slash inside braces",
			pattern: "/files/{path:a/b}",
			expected: []segment{
				{value: "files"},
				{value: "{path:a/b}", isParam: true, paramName: "path", regex: "a/b"},
			},
		},
		{
			name:    "literal around parameter",
			pattern: "/reports/r-{id}.json",
			expected: []segment{
				{value: "reports"},
				{value: "r-{id}.json", isParam: true, paramName: "id", prefix: "r-", suffix: ".json"},
			},
		},
		{name: "trailing slash", pattern: "/posts/", expected: []segment{{value: "posts"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			segments, err := parsePathPattern(tt.pattern)
			require.NoError(t, err)
			if len(tt.expected) == 0 {
				assert.Empty(t, segments)
				return
			}
			assert.Equal(t, tt.expected, segments)
		})
	}
}

func TestParsePathPattern_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
	}{
		{name: "unclosed brace", pattern: "/users/{id"},
		{name: "stray closing brace", pattern: "/users/id}"},
		{name: "empty segment", pattern: "/users//posts"},
		{name: "invalid parameter name", pattern: "/users/{1st}"},
		{name: "empty parameter name", pattern: "/users/{}"},
		{name: "two parameters in one segment", pattern: "/files/{name}.{ext}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parsePathPattern(tt.pattern)
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrInvalidPattern), err.Error())
		})
	}
}

func TestCompileSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		route    config.Route
		types    []string
		patterns []string
	}{
		{
			name:     "static",
			route:    config.Route{Path: "/api/health"},
			types:    []string{matcher.TypeStatic, matcher.TypeStatic},
			patterns: []string{"api", "health"},
		},
		{
			name:     "unconstrained parameter",
			route:    config.Route{Path: "/users/{id}"},
			types:    []string{matcher.TypeStatic, matcher.TypeAny},
			patterns: []string{"users", "*"},
		},
		{
			name:     "inline regex",
			route:    config.Route{Path: "/users/{id:[0-9]+}"},
			types:    []string{matcher.TypeStatic, matcher.TypeRegex},
			patterns: []string{"users", "^([0-9]+)$"},
		},
		{
			name: "configured constraint",
			route: config.Route{
				Path:        "/users/{id}",
				Constraints: map[string]string{"id": "[a-z]+"},
			},
			types:    []string{matcher.TypeStatic, matcher.TypeRegex},
			patterns: []string{"users", "^([a-z]+)$"},
		},
		{
			name:     "literal around parameter",
			route:    config.Route{Path: "/r-{id}.json"},
			types:    []string{matcher.TypeRegex},
			patterns: []string{`^r-([^/]+)\.json$`},
		},
		{
			name: "expression",
			route: config.Route{
				Path:        "/posts/{slug}",
				Expressions: map[string]string{"slug": "{segment} != 'admin'"},
			},
			types:    []string{matcher.TypeStatic, matcher.TypeExpression},
			patterns: []string{"posts", "{segment} != 'admin'"},
		},
		{
			name: "regex and expression",
			route: config.Route{
				Path:        "/posts/{slug:[a-z]+}",
				Expressions: map[string]string{"slug": "{segment} != 'admin'"},
			},
			types:    []string{matcher.TypeStatic, matcher.TypeCompound},
			patterns: []string{"posts", "^([a-z]+)$ && {segment} != 'admin'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			matchers, err := compileSegments(tt.route)
			require.NoError(t, err)
			require.Len(t, matchers, len(tt.types))

			for i, m := range matchers {
				assert.Equal(t, tt.types[i], m.Type(), "segment %d", i)
				if tt.patterns[i] != "*" {
					assert.Equal(t, tt.patterns[i], m.Pattern(), "segment %d", i)
				}
			}
		})
	}
}

func TestCompileSegments_ParameterKeys(t *testing.T) {
	t.Parallel()

	matchers, err := compileSegments(config.Route{
		Path:        "/users/{user}/posts/{post:[0-9]+}",
		Expressions: map[string]string{"user": "{segment} != 'root'"},
	})
	require.NoError(t, err)
	require.Len(t, matchers, 4)

	assert.Empty(t, matchers[0].ParameterKeys())
	assert.Equal(t, []string{"user"}, matchers[1].ParameterKeys())
	assert.Empty(t, matchers[2].ParameterKeys())
	assert.Equal(t, []string{"post"}, matchers[3].ParameterKeys())

	ok, params := matchers[3].Match("42")
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"post": "42"}, params)
}

func TestCompileSegments_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		route config.Route
	}{
		{name: "duplicate parameter", route: config.Route{Path: "/{id}/{id}"}},
		{
			name:  "constraint for unknown parameter",
			route: config.Route{Path: "/{id}", Constraints: map[string]string{"slug": "[a-z]+"}},
		},
		{
			name:  "expression for unknown parameter",
			route: config.Route{Path: "/{id}", Expressions: map[string]string{"slug": "{segment} != ''"}},
		},
		{
			name:  "conflicting constraints",
			route: config.Route{Path: "/{id:[0-9]+}", Constraints: map[string]string{"id": "[a-z]+"}},
		},
		{name: "invalid regex", route: config.Route{Path: "/{id:([}"}},
		{
			name:  "invalid expression",
			route: config.Route{Path: "/{id}", Expressions: map[string]string{"id": "{segment} +"}},
		},
		{
			name:  "expression on partial segment",
			route: config.Route{Path: "/v{id}", Expressions: map[string]string{"id": "{segment} != ''"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := compileSegments(tt.route)
			require.Error(t, err)
			assert.True(t, errors.Is(err, util.ErrInvalidPattern), err.Error())
		})
	}
}
