// Package matcher provides path segment matchers and the matcher-level
// optimizer used by the route tree compiler.
//
// A segment matcher validates one '/'-delimited path segment and captures it
// under zero or more parameter names:
//
//   - AnyMatcher: any non-empty segment
//   - StaticMatcher: exact, case-sensitive value
//   - RegexMatcher: regular expression, group 1 feeds the parameters
//   - ExpressionMatcher: boolean expression over {segment} (CEL)
//   - CompoundMatcher: logical AND of two or more matchers
//
// Matchers are immutable values compared structurally with Equal and
// SameConstraint. A Map binds matchers to segment depths and keeps their
// evaluation order.
//
// # Optimization
//
// OptimizeMatchers rewrites well-known single-group regexes to cheaper
// matchers with an identical acceptance set and orders a Map by cost:
//
//	m := matcher.NewMap(
//		matcher.Entry{Depth: 1, Matcher: idRegex},
//		matcher.Entry{Depth: 0, Matcher: matcher.NewStatic("posts")},
//	)
//	optimized := matcher.OptimizeMatchers(m)
//
// MergeMatchers combines the matchers of a parent and a child node into
// Compound matchers where both constrain the same depth.
package matcher
