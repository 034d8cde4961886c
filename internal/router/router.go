package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/matcher"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/tree"
	"github.com/vyrodovalexey/avaroute/internal/util"
)

// Compile sources reported to metrics.
const (
	sourceBuild = "build"
	sourceCache = "cache"
)

// TreeCache stores compiled trees by route table fingerprint. Lookups that
// fail for any reason report a miss.
type TreeCache interface {
	Get(ctx context.Context, fingerprint string) (*tree.Tree, bool)
	Put(ctx context.Context, fingerprint string, t *tree.Tree)
}

// Router compiles routes into a route tree and matches requests against it.
// Writers are serialized; Match reads the active tree without locking.
type Router struct {
	routes   []*CompiledRoute
	routeMap map[string]*CompiledRoute
	mu       sync.Mutex

	active atomic.Pointer[snapshot]

	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	cache    TreeCache
	optimize bool
}

// snapshot is a compiled tree together with the routes it was built from.
type snapshot struct {
	tree   *tree.Tree
	routes map[string]*CompiledRoute
	stats  tree.OptimizeStats
}

// CompiledRoute is a route with its path pattern compiled to segment
// matchers.
type CompiledRoute struct {
	Name          string
	Config        config.Route
	Segments      []matcher.SegmentMatcher
	MethodMatcher *MethodMatcher
}

// MatchResult contains the result of a route match.
type MatchResult struct {
	Route      *CompiledRoute
	PathParams map[string]string
}

// Option is a functional option for the router.
type Option func(*Router)

// WithRouterLogger sets the logger.
func WithRouterLogger(logger observability.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// WithTracer sets the tracer used for compile spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(r *Router) {
		r.tracer = tracer
	}
}

// WithTreeCache sets the compiled tree cache.
func WithTreeCache(cache TreeCache) Option {
	return func(r *Router) {
		r.cache = cache
	}
}

// WithOptimize enables or disables tree optimization. It is enabled by
// default.
func WithOptimize(optimize bool) Option {
	return func(r *Router) {
		r.optimize = optimize
	}
}

// New creates a new router with an empty tree.
func New(opts ...Option) *Router {
	r := &Router{
		routes:   make([]*CompiledRoute, 0),
		routeMap: make(map[string]*CompiledRoute),
		logger:   observability.NopLogger(),
		tracer:   observability.NoopTracer(),
		optimize: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.active.Store(&snapshot{
		tree:   tree.NewTree(),
		routes: make(map[string]*CompiledRoute),
	})
	return r
}

// AddRoute compiles a route and rebuilds the tree.
func (r *Router) AddRoute(route config.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routeMap[route.Name]; exists {
		return util.NewDuplicateRouteError(route.Name)
	}

	compiled, err := compileRoute(route)
	if err != nil {
		return fmt.Errorf("failed to compile route %s: %w", route.Name, err)
	}

	return r.replace(context.Background(), append(slices.Clone(r.routes), compiled))
}

// RemoveRoute removes a route and rebuilds the tree.
func (r *Router) RemoveRoute(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routeMap[name]; !exists {
		return fmt.Errorf("%w: route %s", util.ErrNotFound, name)
	}

	routes := slices.DeleteFunc(slices.Clone(r.routes), func(cr *CompiledRoute) bool {
		return cr.Name == name
	})
	return r.replace(context.Background(), routes)
}

// LoadRoutes replaces every route. On error the previous routes stay
// active.
func (r *Router) LoadRoutes(ctx context.Context, routes []config.Route) error {
	compiled := make([]*CompiledRoute, 0, len(routes))
	names := make(map[string]struct{}, len(routes))

	for _, route := range routes {
		if _, exists := names[route.Name]; exists {
			return util.NewDuplicateRouteError(route.Name)
		}
		names[route.Name] = struct{}{}

		cr, err := compileRoute(route)
		if err != nil {
			return fmt.Errorf("failed to compile route %s: %w", route.Name, err)
		}
		compiled = append(compiled, cr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.replace(ctx, compiled)
}

// Clear removes all routes.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	// An empty route list always compiles.
	_ = r.replace(context.Background(), make([]*CompiledRoute, 0))
}

// GetRoute returns a route by name.
func (r *Router) GetRoute(name string) (*CompiledRoute, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, exists := r.routeMap[name]
	return route, exists
}

// GetRoutes returns all routes in registration order.
func (r *Router) GetRoutes() []*CompiledRoute {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.routes)
}

// RouteCount returns the number of routes in the active tree.
func (r *Router) RouteCount() int {
	return len(r.active.Load().routes)
}

// Tree returns the active route tree.
func (r *Router) Tree() *tree.Tree {
	return r.active.Load().tree
}

// Stats returns the optimization statistics of the active tree.
func (r *Router) Stats() tree.OptimizeStats {
	return r.active.Load().stats
}

// Match finds the route for a request.
func (r *Router) Match(req *http.Request) (*MatchResult, error) {
	return r.MatchPath(req.Method, req.URL.Path)
}

// MatchPath finds the first route reached by path that accepts method. When
// path reaches routes but none accepts method, the error is a
// MethodNotAllowedError listing the accepted methods.
func (r *Router) MatchPath(method, path string) (*MatchResult, error) {
	start := time.Now()
	snap := r.active.Load()

	var (
		result  *MatchResult
		allowed = make(map[string]struct{})
	)

	tree.Walk(snap.tree, path, func(m *tree.Match) bool {
		for _, route := range m.Leaf.Routes {
			compiled, ok := snap.routes[route.Name]
			if !ok {
				continue
			}
			if compiled.MethodMatcher.Match(method) {
				result = &MatchResult{Route: compiled, PathParams: m.Params(route)}
				return false
			}
			for _, accepted := range compiled.MethodMatcher.Methods() {
				allowed[accepted] = struct{}{}
			}
		}
		return true
	})

	switch {
	case result != nil:
		r.recordMatch(observability.MatchResultMatched, start)
		return result, nil
	case len(allowed) > 0:
		r.recordMatch(observability.MatchResultMethodNotAllowed, start)
		methods := make([]string, 0, len(allowed))
		for m := range allowed {
			methods = append(methods, m)
		}
		slices.Sort(methods)
		return nil, util.NewMethodNotAllowedError(method, path, methods)
	default:
		r.recordMatch(observability.MatchResultNotFound, start)
		return nil, util.NewRouteNotFoundError(method, path)
	}
}

func (r *Router) recordMatch(result string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordMatch(result, time.Since(start))
	}
}

// replace compiles routes into a tree and activates it. Must be called with
// mu held.
func (r *Router) replace(ctx context.Context, routes []*CompiledRoute) error {
	ctx, span := r.tracer.StartSpan(ctx, "router.Compile",
		trace.WithAttributes(
			attribute.Int("routes", len(routes)),
			attribute.Bool("optimize", r.optimize),
		),
	)
	defer span.End()

	start := time.Now()
	snap, source, err := r.compile(ctx, routes)
	duration := time.Since(start)

	if r.metrics != nil {
		r.metrics.RecordCompile(source, err, duration)
	}
	if err != nil {
		observability.RecordError(span, err)
		r.logger.Error("route compilation failed",
			observability.Int("routes", len(routes)),
			observability.Error(err),
		)
		return err
	}

	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("nodes", snap.stats.NodesAfter),
	)

	routeMap := make(map[string]*CompiledRoute, len(routes))
	for _, cr := range routes {
		routeMap[cr.Name] = cr
	}
	snap.routes = routeMap

	r.routes = routes
	r.routeMap = routeMap
	r.active.Store(snap)

	if r.metrics != nil {
		r.metrics.SetTreeStats(len(routes), snap.stats.NodesBefore, snap.stats.NodesAfter, snap.stats.Merges)
	}

	r.logger.Info("route tree compiled",
		observability.Int("routes", len(routes)),
		observability.String("source", source),
		observability.Int("nodes_before", snap.stats.NodesBefore),
		observability.Int("nodes_after", snap.stats.NodesAfter),
		observability.Duration("duration", duration),
	)
	return nil
}

func (r *Router) compile(ctx context.Context, routes []*CompiledRoute) (*snapshot, string, error) {
	var fingerprint string
	if r.cache != nil && len(routes) > 0 {
		fp, err := r.fingerprint(routes)
		if err != nil {
			return nil, sourceBuild, err
		}
		fingerprint = fp

		if cached, ok := r.cache.Get(ctx, fingerprint); ok {
			nodes := cached.NodeCount()
			return &snapshot{
				tree:  cached,
				stats: tree.OptimizeStats{NodesBefore: nodes, NodesAfter: nodes},
			}, sourceCache, nil
		}
	}

	b := tree.NewBuilder(tree.WithBuilderLogger(r.logger))
	for _, cr := range routes {
		if err := b.Add(tree.RouteDefinition{
			Name:     cr.Name,
			Methods:  cr.Config.Methods,
			Handler:  cr.Config.Handler,
			Segments: cr.Segments,
		}); err != nil {
			return nil, sourceBuild, err
		}
	}

	built := b.Build()
	nodes := built.NodeCount()
	snap := &snapshot{
		tree:  built,
		stats: tree.OptimizeStats{NodesBefore: nodes, NodesAfter: nodes},
	}
	if r.optimize {
		snap.tree, snap.stats = tree.NewOptimizer(tree.WithOptimizerLogger(r.logger)).OptimizeWithStats(built)
	}

	if fingerprint != "" {
		r.cache.Put(ctx, fingerprint, snap.tree)
	}
	return snap, sourceBuild, nil
}

// fingerprint identifies the route list and compiler settings.
func (r *Router) fingerprint(routes []*CompiledRoute) (string, error) {
	configs := make([]config.Route, 0, len(routes))
	for _, cr := range routes {
		configs = append(configs, cr.Config)
	}

	data, err := json.Marshal(struct {
		Optimize bool           `json:"optimize"`
		Routes   []config.Route `json:"routes"`
	}{Optimize: r.optimize, Routes: configs})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint routes: %w", err)
	}
	return string(data), nil
}

// compileRoute compiles a route configuration into a CompiledRoute.
func compileRoute(route config.Route) (*CompiledRoute, error) {
	if err := util.ValidateNonEmpty(route.Name, "route name"); err != nil {
		return nil, err
	}
	for _, method := range route.Methods {
		if err := util.ValidateHTTPMethod(method); err != nil {
			return nil, err
		}
	}

	segments, err := compileSegments(route)
	if err != nil {
		return nil, err
	}

	return &CompiledRoute{
		Name:          route.Name,
		Config:        route,
		Segments:      segments,
		MethodMatcher: NewMethodMatcher(route.Methods),
	}, nil
}
