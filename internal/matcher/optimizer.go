package matcher

// Cost tiers, cheapest first.
const (
	costAny = iota
	costStatic
	costExpression
	costRegex
	costOther
)

// costTiers lists the tiers in evaluation order.
var costTiers = []int{costAny, costStatic, costExpression, costRegex, costOther}

// rewriteRule describes a well-known single-group regex and its cheaper
// equivalent.
type rewriteRule struct {
	name       string
	expression string // empty rewrites to Any
}

// rewriteRules maps anchored single-group patterns to their rewrite.
// Segments never contain '/', so [^/]+ accepts exactly what Any accepts.
var rewriteRules = map[string]rewriteRule{
	`^([^/]+)$`:          {name: "any"},
	`^([0-9]+)$`:         {name: "digits", expression: ExprDigit},
	`^(\d+)$`:            {name: "digits", expression: ExprDigit},
	`^([a-zA-Z]+)$`:      {name: "alpha", expression: ExprAlpha},
	`^([A-Za-z]+)$`:      {name: "alpha", expression: ExprAlpha},
	`^([a-z]+)$`:         {name: "lower", expression: ExprLower},
	`^([A-Z]+)$`:         {name: "upper", expression: ExprUpper},
	`^([a-zA-Z0-9]+)$`:   {name: "alnum", expression: ExprAlnum},
	`^([A-Za-z0-9]+)$`:   {name: "alnum", expression: ExprAlnum},
	`^([a-zA-Z0-9\-]+)$`: {name: "alnum_dash", expression: ExprAlnumWithDash},
	`^([a-zA-Z0-9-]+)$`:  {name: "alnum_dash", expression: ExprAlnumWithDash},
}

// MergeMatchers merges child into parent depth by depth. Where both hold a
// matcher the result is Compound[parent, child]; child-only depths are
// appended. Neither input is modified.
func MergeMatchers(parent, child Map) Map {
	merged := parent
	for _, e := range child.entries {
		if existing, ok := merged.Get(e.Depth); ok {
			merged = merged.With(e.Depth, NewCompound(existing, e.Matcher))
			continue
		}
		merged = merged.With(e.Depth, e.Matcher)
	}
	return merged
}

// OptimizeMatchers rewrites every matcher to its cheapest equivalent and
// orders the map by evaluation cost.
func OptimizeMatchers(m Map) Map {
	entries := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		entries[i] = Entry{Depth: e.Depth, Matcher: OptimizeMatcher(e.Matcher)}
	}
	return OptimizeMatcherOrder(Map{entries: entries})
}

// OptimizeMatcher returns a cheaper matcher with the same acceptance set
// and captures, or m itself when there is none.
func OptimizeMatcher(m SegmentMatcher) SegmentMatcher {
	switch v := m.(type) {
	case *RegexMatcher:
		return optimizeRegex(v)
	case *CompoundMatcher:
		return optimizeCompound(v)
	default:
		return m
	}
}

func optimizeRegex(m *RegexMatcher) SegmentMatcher {
	if m.GroupCount() != 1 {
		return m
	}

	rule, ok := rewriteRules[m.pattern]
	if !ok {
		return m
	}

	getMatcherMetrics().rewrites.WithLabelValues(rule.name).Inc()

	if rule.expression == "" {
		return &AnyMatcher{parameterKeys: cloneKeys(m.parameterKeys)}
	}
	return &ExpressionMatcher{
		template:      rule.expression,
		parameterKeys: cloneKeys(m.parameterKeys),
		eval:          nativeExpressions[rule.expression],
	}
}

func optimizeCompound(m *CompoundMatcher) SegmentMatcher {
	subs := make([]SegmentMatcher, 0, len(m.matchers))
	add := func(sub SegmentMatcher) {
		for _, existing := range subs {
			if Equal(existing, sub) {
				return
			}
		}
		subs = append(subs, sub)
	}

	for _, sub := range m.matchers {
		optimized := OptimizeMatcher(sub)
		if nested, ok := optimized.(*CompoundMatcher); ok {
			for _, inner := range nested.matchers {
				add(inner)
			}
			continue
		}
		add(optimized)
	}

	if len(subs) == 1 {
		return subs[0]
	}
	return &CompoundMatcher{matchers: orderByCost(subs)}
}

// OptimizeMatcherOrder orders the map by ascending evaluation cost:
// Any, Static, Expression, Regex, then everything else. Entries of the same
// tier keep their relative order.
func OptimizeMatcherOrder(m Map) Map {
	entries := make([]Entry, 0, len(m.entries))
	for _, tier := range costTiers {
		for _, e := range m.entries {
			if costOf(e.Matcher) == tier {
				entries = append(entries, e)
			}
		}
	}
	return Map{entries: entries}
}

func orderByCost(matchers []SegmentMatcher) []SegmentMatcher {
	ordered := make([]SegmentMatcher, 0, len(matchers))
	for _, tier := range costTiers {
		for _, sub := range matchers {
			if costOf(sub) == tier {
				ordered = append(ordered, sub)
			}
		}
	}
	return ordered
}

func costOf(m SegmentMatcher) int {
	switch m.(type) {
	case *AnyMatcher:
		return costAny
	case *StaticMatcher:
		return costStatic
	case *ExpressionMatcher:
		return costExpression
	case *RegexMatcher:
		return costRegex
	default:
		return costOther
	}
}
