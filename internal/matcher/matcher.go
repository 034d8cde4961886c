package matcher

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Matcher types.
const (
	TypeAny        = "any"
	TypeStatic     = "static"
	TypeRegex      = "regex"
	TypeExpression = "expression"
	TypeCompound   = "compound"
)

// SegmentMatcher is the interface for matching a single path segment.
//
// The variants defined in this package are Any, Static, Regex, Expression
// and Compound. Other implementations are accepted everywhere but are never
// rewritten and sort after every known variant.
type SegmentMatcher interface {
	// Match tests the segment and returns the captured parameters.
	Match(segment string) (matched bool, params map[string]string)
	// Type returns the matcher type.
	Type() string
	// Pattern returns a human readable form of the constraint.
	Pattern() string
	// ParameterKeys returns the parameter names fed by the segment.
	ParameterKeys() []string
	// Hash returns a stable identity including parameter keys.
	Hash() string
}

// AnyMatcher matches any non-empty segment.
type AnyMatcher struct {
	parameterKeys []string
}

// NewAny creates a matcher accepting any non-empty segment.
func NewAny(parameterKeys ...string) *AnyMatcher {
	return &AnyMatcher{parameterKeys: cloneKeys(parameterKeys)}
}

// Match checks that the segment is not empty.
func (m *AnyMatcher) Match(segment string) (matched bool, params map[string]string) {
	if segment == "" {
		return false, nil
	}
	return true, capture(m.parameterKeys, segment)
}

// Type returns the matcher type.
func (m *AnyMatcher) Type() string {
	return TypeAny
}

// Pattern returns the pattern.
func (m *AnyMatcher) Pattern() string {
	return "*"
}

// ParameterKeys returns the parameter keys.
func (m *AnyMatcher) ParameterKeys() []string {
	return cloneKeys(m.parameterKeys)
}

// Hash returns the matcher identity.
func (m *AnyMatcher) Hash() string {
	return TypeAny + hashKeys(m.parameterKeys)
}

// StaticMatcher matches a segment exactly.
type StaticMatcher struct {
	value string
}

// NewStatic creates a case-sensitive exact segment matcher.
func NewStatic(value string) *StaticMatcher {
	return &StaticMatcher{value: value}
}

// Match checks if the segment equals the value.
func (m *StaticMatcher) Match(segment string) (matched bool, params map[string]string) {
	return segment == m.value, nil
}

// Type returns the matcher type.
func (m *StaticMatcher) Type() string {
	return TypeStatic
}

// Pattern returns the pattern.
func (m *StaticMatcher) Pattern() string {
	return m.value
}

// Value returns the static value.
func (m *StaticMatcher) Value() string {
	return m.value
}

// ParameterKeys returns nil, static segments capture nothing.
func (m *StaticMatcher) ParameterKeys() []string {
	return nil
}

// Hash returns the matcher identity.
func (m *StaticMatcher) Hash() string {
	return TypeStatic + ":" + strconv.Quote(m.value)
}

// RegexMatcher matches a segment against a regular expression. The first
// capture group feeds every parameter key; without groups the whole match
// is captured.
type RegexMatcher struct {
	pattern       string
	regex         *regexp.Regexp
	parameterKeys []string
}

// NewRegex compiles pattern and creates a regex segment matcher.
func NewRegex(pattern string, parameterKeys ...string) (*RegexMatcher, error) {
	regex, err := compileRegex(pattern)
	if err != nil {
		return nil, err
	}

	return &RegexMatcher{
		pattern:       pattern,
		regex:         regex,
		parameterKeys: cloneKeys(parameterKeys),
	}, nil
}

// Match checks if the segment matches the regex.
func (m *RegexMatcher) Match(segment string) (matched bool, params map[string]string) {
	matches := m.regex.FindStringSubmatch(segment)
	if matches == nil {
		return false, nil
	}

	value := matches[0]
	if len(matches) > 1 {
		value = matches[1]
	}
	return true, capture(m.parameterKeys, value)
}

// Type returns the matcher type.
func (m *RegexMatcher) Type() string {
	return TypeRegex
}

// Pattern returns the pattern.
func (m *RegexMatcher) Pattern() string {
	return m.pattern
}

// Regexp returns the regular expression source.
func (m *RegexMatcher) Regexp() string {
	return m.pattern
}

// GroupCount returns the number of capture groups.
func (m *RegexMatcher) GroupCount() int {
	return m.regex.NumSubexp()
}

// ParameterKeys returns the parameter keys.
func (m *RegexMatcher) ParameterKeys() []string {
	return cloneKeys(m.parameterKeys)
}

// Hash returns the matcher identity.
func (m *RegexMatcher) Hash() string {
	return TypeRegex + ":" + strconv.Quote(m.pattern) + hashKeys(m.parameterKeys)
}

// ExpressionMatcher matches a segment when a boolean expression holds.
// The template refers to the segment as {segment}.
type ExpressionMatcher struct {
	template      string
	parameterKeys []string
	eval          func(segment string) bool
}

// NewExpression creates an expression segment matcher. Templates produced by
// the optimizer are evaluated natively, anything else is compiled to a CEL
// program.
func NewExpression(template string, parameterKeys ...string) (*ExpressionMatcher, error) {
	eval, err := compileExpression(template)
	if err != nil {
		return nil, err
	}

	return &ExpressionMatcher{
		template:      template,
		parameterKeys: cloneKeys(parameterKeys),
		eval:          eval,
	}, nil
}

// Match evaluates the expression against the segment.
func (m *ExpressionMatcher) Match(segment string) (matched bool, params map[string]string) {
	if !m.eval(segment) {
		return false, nil
	}
	return true, capture(m.parameterKeys, segment)
}

// Type returns the matcher type.
func (m *ExpressionMatcher) Type() string {
	return TypeExpression
}

// Pattern returns the expression template.
func (m *ExpressionMatcher) Pattern() string {
	return m.template
}

// Template returns the expression template.
func (m *ExpressionMatcher) Template() string {
	return m.template
}

// ParameterKeys returns the parameter keys.
func (m *ExpressionMatcher) ParameterKeys() []string {
	return cloneKeys(m.parameterKeys)
}

// Hash returns the matcher identity.
func (m *ExpressionMatcher) Hash() string {
	return TypeExpression + ":" + strconv.Quote(m.template) + hashKeys(m.parameterKeys)
}

// CompoundMatcher matches when all sub-matchers match. Sub-matchers are
// evaluated in order and evaluation stops at the first failure.
type CompoundMatcher struct {
	matchers []SegmentMatcher
}

// NewCompound creates a compound matcher. It panics with fewer than two
// sub-matchers.
func NewCompound(matchers ...SegmentMatcher) *CompoundMatcher {
	if len(matchers) < 2 {
		panic("matcher: compound matcher requires at least two sub-matchers, got " +
			strconv.Itoa(len(matchers)))
	}

	subs := make([]SegmentMatcher, len(matchers))
	copy(subs, matchers)
	return &CompoundMatcher{matchers: subs}
}

// Match checks every sub-matcher in order.
func (m *CompoundMatcher) Match(segment string) (matched bool, params map[string]string) {
	for _, sub := range m.matchers {
		ok, captured := sub.Match(segment)
		if !ok {
			return false, nil
		}
		for k, v := range captured {
			if params == nil {
				params = make(map[string]string, len(captured))
			}
			params[k] = v
		}
	}
	return true, params
}

// Type returns the matcher type.
func (m *CompoundMatcher) Type() string {
	return TypeCompound
}

// Pattern returns the sub-matcher patterns joined with &&.
func (m *CompoundMatcher) Pattern() string {
	parts := make([]string, len(m.matchers))
	for i, sub := range m.matchers {
		parts[i] = sub.Pattern()
	}
	return strings.Join(parts, " && ")
}

// Matchers returns the sub-matchers.
func (m *CompoundMatcher) Matchers() []SegmentMatcher {
	subs := make([]SegmentMatcher, len(m.matchers))
	copy(subs, m.matchers)
	return subs
}

// ParameterKeys returns the union of the sub-matcher keys in order.
func (m *CompoundMatcher) ParameterKeys() []string {
	var keys []string
	for _, sub := range m.matchers {
		keys = unionKeys(keys, sub.ParameterKeys())
	}
	return keys
}

// Hash returns the matcher identity.
func (m *CompoundMatcher) Hash() string {
	parts := make([]string, len(m.matchers))
	for i, sub := range m.matchers {
		parts[i] = sub.Hash()
	}
	return TypeCompound + "(" + strings.Join(parts, "&") + ")"
}

// Equal reports whether two matchers are structurally identical, including
// parameter keys.
func Equal(a, b SegmentMatcher) bool {
	return compare(a, b, true)
}

// SameConstraint reports whether two matchers accept the same segments in
// the same way, ignoring the parameter names they capture under.
func SameConstraint(a, b SegmentMatcher) bool {
	return compare(a, b, false)
}

func compare(a, b SegmentMatcher, withKeys bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case *AnyMatcher:
		y, ok := b.(*AnyMatcher)
		return ok && (!withKeys || equalKeys(x.parameterKeys, y.parameterKeys))
	case *StaticMatcher:
		y, ok := b.(*StaticMatcher)
		return ok && x.value == y.value
	case *RegexMatcher:
		y, ok := b.(*RegexMatcher)
		return ok && x.pattern == y.pattern &&
			(!withKeys || equalKeys(x.parameterKeys, y.parameterKeys))
	case *ExpressionMatcher:
		y, ok := b.(*ExpressionMatcher)
		return ok && x.template == y.template &&
			(!withKeys || equalKeys(x.parameterKeys, y.parameterKeys))
	case *CompoundMatcher:
		y, ok := b.(*CompoundMatcher)
		if !ok || len(x.matchers) != len(y.matchers) {
			return false
		}
		for i := range x.matchers {
			if !compare(x.matchers[i], y.matchers[i], withKeys) {
				return false
			}
		}
		return true
	default:
		return a.Type() == b.Type() && a.Hash() == b.Hash()
	}
}

// MergeParameterKeys returns common with the parameter keys of other
// appended after its own. Both matchers must share the same constraint;
// matchers that capture nothing are returned unchanged.
func MergeParameterKeys(common, other SegmentMatcher) SegmentMatcher {
	switch x := common.(type) {
	case *AnyMatcher:
		keys := unionKeys(x.parameterKeys, other.ParameterKeys())
		if len(keys) == len(x.parameterKeys) {
			return x
		}
		return &AnyMatcher{parameterKeys: keys}
	case *RegexMatcher:
		keys := unionKeys(x.parameterKeys, other.ParameterKeys())
		if len(keys) == len(x.parameterKeys) {
			return x
		}
		return &RegexMatcher{pattern: x.pattern, regex: x.regex, parameterKeys: keys}
	case *ExpressionMatcher:
		keys := unionKeys(x.parameterKeys, other.ParameterKeys())
		if len(keys) == len(x.parameterKeys) {
			return x
		}
		return &ExpressionMatcher{template: x.template, parameterKeys: keys, eval: x.eval}
	case *CompoundMatcher:
		y, ok := other.(*CompoundMatcher)
		if !ok || len(x.matchers) != len(y.matchers) {
			return x
		}
		subs := make([]SegmentMatcher, len(x.matchers))
		for i := range x.matchers {
			subs[i] = MergeParameterKeys(x.matchers[i], y.matchers[i])
		}
		return &CompoundMatcher{matchers: subs}
	default:
		return common
	}
}

func capture(keys []string, value string) map[string]string {
	if len(keys) == 0 {
		return nil
	}
	params := make(map[string]string, len(keys))
	for _, k := range keys {
		params[k] = value
	}
	return params
}

func cloneKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// unionKeys appends the keys of b missing from a, preserving order.
func unionKeys(a, b []string) []string {
	out := cloneKeys(a)
	for _, k := range b {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func equalKeys(a, b []string) bool {
	return slices.Equal(a, b)
}

func hashKeys(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return "[" + strings.Join(keys, ",") + "]"
}
