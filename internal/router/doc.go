// Package router compiles route definitions into a route tree and matches
// requests against it.
//
// Path patterns are split into segments. Each segment becomes one segment
// matcher:
//
//   - a literal segment becomes a Static matcher
//   - {name} becomes an Any matcher capturing name
//   - {name:regex}, or a constraint configured for name, becomes an
//     anchored Regex matcher
//   - an expression configured for name becomes an Expression matcher
//   - a parameter with both a regex and an expression becomes a Compound
//     matcher of the two
//
// Literal text around a parameter, as in /reports/r-{id}.json, is folded
// into the regex. Compiled routes are built into a tree, optionally
// optimized, and swapped in atomically, so Match never blocks on a
// rebuild.
//
// # Usage
//
//	r := router.New(router.WithRouterLogger(logger))
//	if err := r.LoadRoutes(ctx, table.Spec.Routes); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := r.Match(request)
//	switch {
//	case errors.Is(err, util.ErrMethodNotAllowed):
//	    // 405
//	case err != nil:
//	    // 404
//	default:
//	    // use result.Route and result.PathParams
//	}
package router
