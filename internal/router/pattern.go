package router

import (
	"regexp"
	"strings"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/matcher"
	"github.com/vyrodovalexey/avaroute/internal/util"
)

// segment is one parsed path pattern segment. A segment holding a
// parameter is split into the literal text around the placeholder.
type segment struct {
	value     string
	isParam   bool
	paramName string
	regex     string
	prefix    string
	suffix    string
}

// splitPattern splits a path pattern on slashes outside of braces.
func splitPattern(pattern string) ([]string, error) {
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil, nil
	}

	var (
		parts []string
		start int
		depth int
	)
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, util.NewPatternError(pattern, "", "unbalanced '}'", nil)
			}
		case '/':
			if depth == 0 {
				parts = append(parts, trimmed[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, util.NewPatternError(pattern, "", "unbalanced '{'", nil)
	}
	return append(parts, trimmed[start:]), nil
}

// parsePathPattern parses a path pattern into segments.
func parsePathPattern(pattern string) ([]segment, error) {
	parts, err := splitPattern(pattern)
	if err != nil {
		return nil, err
	}

	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, util.NewPatternError(pattern, part, "empty segment", nil)
		}
		seg, err := parseSegment(pattern, part)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseSegment(pattern, part string) (segment, error) {
	open := strings.IndexByte(part, '{')
	if open < 0 {
		if strings.IndexByte(part, '}') >= 0 {
			return segment{}, util.NewPatternError(pattern, part, "unbalanced '}'", nil)
		}
		return segment{value: part}, nil
	}

	end := closingBrace(part, open)
	if end < 0 {
		return segment{}, util.NewPatternError(pattern, part, "unbalanced '{'", nil)
	}
	if strings.IndexByte(part[end+1:], '{') >= 0 {
		return segment{}, util.NewPatternError(pattern, part, "only one parameter per segment is supported", nil)
	}

	name, regex, _ := strings.Cut(part[open+1:end], ":")
	if err := util.ValidateParameterName(name); err != nil {
		return segment{}, util.NewPatternError(pattern, part, "invalid parameter name", err)
	}

	return segment{
		value:     part,
		isParam:   true,
		paramName: name,
		regex:     regex,
		prefix:    part[:open],
		suffix:    part[end+1:],
	}, nil
}

// closingBrace returns the index of the brace closing the one at open.
func closingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// compileSegments turns a route into one segment matcher per path segment.
// Unconstrained parameters become Any matchers, regex constraints become
// anchored Regex matchers, expressions become Expression matchers, and a
// parameter with both becomes a Compound of the two.
func compileSegments(route config.Route) ([]matcher.SegmentMatcher, error) {
	segments, err := parsePathPattern(route.Path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(segments))
	matchers := make([]matcher.SegmentMatcher, 0, len(segments))
	for _, seg := range segments {
		if !seg.isParam {
			matchers = append(matchers, matcher.NewStatic(seg.value))
			continue
		}
		if seen[seg.paramName] {
			return nil, util.NewPatternError(route.Path, seg.value, "duplicate parameter "+seg.paramName, nil)
		}
		seen[seg.paramName] = true

		m, err := compileParameter(route, seg)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	for name := range route.Constraints {
		if !seen[name] {
			return nil, util.NewPatternError(route.Path, "", "constraint for unknown parameter "+name, nil)
		}
	}
	for name := range route.Expressions {
		if !seen[name] {
			return nil, util.NewPatternError(route.Path, "", "expression for unknown parameter "+name, nil)
		}
	}

	return matchers, nil
}

func compileParameter(route config.Route, seg segment) (matcher.SegmentMatcher, error) {
	regex := seg.regex
	if constraint, ok := route.Constraints[seg.paramName]; ok {
		if regex != "" && regex != constraint {
			return nil, util.NewPatternError(route.Path, seg.value,
				"parameter "+seg.paramName+" has both an inline and a configured constraint", nil)
		}
		regex = constraint
	}
	expression := route.Expressions[seg.paramName]
	if expression != "" && (seg.prefix != "" || seg.suffix != "") {
		return nil, util.NewPatternError(route.Path, seg.value,
			"expressions apply to whole segments only", nil)
	}

	var matchers []matcher.SegmentMatcher

	switch {
	case regex != "" || seg.prefix != "" || seg.suffix != "":
		if regex == "" {
			regex = "[^/]+"
		}
		source := "^" + regexp.QuoteMeta(seg.prefix) + "(" + regex + ")" + regexp.QuoteMeta(seg.suffix) + "$"
		m, err := matcher.NewRegex(source, seg.paramName)
		if err != nil {
			return nil, util.NewPatternError(route.Path, seg.value, "invalid constraint", err)
		}
		matchers = append(matchers, m)
	case expression == "":
		return matcher.NewAny(seg.paramName), nil
	}

	if expression != "" {
		m, err := matcher.NewExpression(expression, seg.paramName)
		if err != nil {
			return nil, util.NewPatternError(route.Path, seg.value, "invalid expression", err)
		}
		matchers = append(matchers, m)
	}

	if len(matchers) == 1 {
		return matchers[0], nil
	}
	return matcher.NewCompound(matchers...), nil
}
