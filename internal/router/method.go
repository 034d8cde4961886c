package router

import (
	"net/http"
	"slices"
	"strings"
)

// MethodMatcher matches HTTP methods.
type MethodMatcher struct {
	methods map[string]bool
}

// NewMethodMatcher creates a new method matcher. It returns nil for an
// empty method list; a nil matcher accepts every method.
func NewMethodMatcher(methods []string) *MethodMatcher {
	if len(methods) == 0 {
		return nil
	}

	m := &MethodMatcher{
		methods: make(map[string]bool, len(methods)),
	}

	for _, method := range methods {
		m.methods[strings.ToUpper(method)] = true
	}

	return m
}

// Match checks if the method matches.
func (m *MethodMatcher) Match(method string) bool {
	if m == nil {
		return true
	}

	method = strings.ToUpper(method)

	// Wildcard matches all methods
	if m.methods["*"] {
		return true
	}

	// HEAD automatically matches GET
	if method == http.MethodHead && m.methods[http.MethodGet] {
		return true
	}

	return m.methods[method]
}

// Methods returns the accepted methods, sorted. HEAD is included when GET
// is accepted.
func (m *MethodMatcher) Methods() []string {
	if m == nil {
		return nil
	}

	methods := make([]string, 0, len(m.methods)+1)
	for method := range m.methods {
		methods = append(methods, method)
	}
	if m.methods[http.MethodGet] && !m.methods[http.MethodHead] {
		methods = append(methods, http.MethodHead)
	}
	slices.Sort(methods)
	return methods
}
