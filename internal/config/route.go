package config

import "strings"

// Route represents a routing rule configuration.
type Route struct {
	// Name uniquely identifies the route.
	Name string `yaml:"name" json:"name"`

	// Path is the route template, e.g. /users/{id} or /users/{id:[0-9]+}.
	Path string `yaml:"path" json:"path"`

	// Methods restricts the HTTP methods. Empty means any method.
	Methods []string `yaml:"methods,omitempty" json:"methods,omitempty"`

	// Constraints maps parameter names to regular expressions the whole
	// segment must match.
	Constraints map[string]string `yaml:"constraints,omitempty" json:"constraints,omitempty"`

	// Expressions maps parameter names to CEL expressions evaluated
	// against the segment. The segment is available as {segment}.
	Expressions map[string]string `yaml:"expressions,omitempty" json:"expressions,omitempty"`

	// Handler is an opaque handler reference returned on match.
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`
}

// ParameterNames returns the parameter names declared in Path, in order.
// Inline constraints may contain nested braces, e.g. {code:[0-9]{3}}.
func (r Route) ParameterNames() []string {
	var names []string
	depth, start := 0, -1
	for i := 0; i < len(r.Path); i++ {
		switch r.Path[i] {
		case '{':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				body := r.Path[start:i]
				if name, _, found := strings.Cut(body, ":"); found {
					body = name
				}
				names = append(names, body)
				start = -1
			}
		}
	}
	return names
}
