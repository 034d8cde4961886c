package inspector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/health"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/router"
	"github.com/vyrodovalexey/avaroute/internal/tree"
)

const (
	healthPath    = "/healthz"
	readinessPath = "/readyz"
)

// ginModeOnce ensures gin.SetMode is called only once to avoid data races
// when multiple servers are created concurrently.
var ginModeOnce sync.Once

// Source is the route set the inspector reports on.
type Source interface {
	MatchPath(method, path string) (*router.MatchResult, error)
	Tree() *tree.Tree
	GetRoutes() []*router.CompiledRoute
	Stats() tree.OptimizeStats
}

// Server serves read-only views of a compiled route tree.
type Server struct {
	config      *config.InspectorConfig
	source      Source
	engine      *gin.Engine
	httpServer  *http.Server
	logger      observability.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	metricsPath string
	health      *health.Checker
	mu          sync.RWMutex
	running     bool
}

// Option is a functional option for configuring the server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder and exposes it on the metrics path.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithTracer sets the tracer for request spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// WithHealthChecker sets the checker behind the health and readiness
// endpoints.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) {
		s.health = checker
	}
}

// WithMetricsPath overrides the path metrics are served on.
func WithMetricsPath(path string) Option {
	return func(s *Server) {
		s.metricsPath = path
	}
}

// New creates a new inspector server.
func New(cfg *config.InspectorConfig, source Source, opts ...Option) *Server {
	if cfg == nil {
		cfg = &config.InspectorConfig{Enabled: true}
	}

	s := &Server{
		config:      cfg,
		source:      source,
		logger:      observability.NopLogger(),
		metricsPath: config.DefaultMetricsPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = observability.NoopTracer()
	}
	if s.health == nil {
		s.health = health.NewChecker("")
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s.engine = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.engine.Use(recovery(s.logger))
	s.engine.Use(requestID())
	s.engine.Use(accessLog(s.logger, s.metrics))
	if rl := s.config.RateLimit; rl != nil {
		s.engine.Use(rateLimit(rate.NewLimiter(rate.Limit(rl.RPS), rl.Burst), s.metrics, healthPath, readinessPath))
	}
	s.engine.Use(tracing(s.tracer))
}

func (s *Server) setupRoutes() {
	s.engine.GET(healthPath, s.handleHealth)
	s.engine.GET(readinessPath, s.handleReadiness)
	s.engine.GET("/routes", s.handleRoutes)
	s.engine.GET("/tree", s.handleTree)
	s.engine.GET("/match", s.handleMatch)
	if s.metrics != nil {
		s.engine.GET(s.metricsPath, gin.WrapH(s.metrics.Handler()))
	}
}

// Handler returns the HTTP handler serving the inspector endpoints.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the server and blocks until it stops. Cancelling ctx stops
// the server gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("inspector already running")
	}

	addr := s.config.Address
	if addr == "" {
		addr = config.DefaultInspectorAddress
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       durationOr(s.config.ReadTimeout, config.DefaultReadTimeout),
		ReadHeaderTimeout: durationOr(s.config.ReadTimeout, config.DefaultReadTimeout),
		WriteTimeout:      durationOr(s.config.WriteTimeout, config.DefaultWriteTimeout),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	s.running = true
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting inspector", observability.String("address", addr))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop(context.WithoutCancel(ctx))
		case <-done:
		}
	}()

	err := srv.ListenAndServe()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("inspector server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	running := s.running
	s.mu.RUnlock()

	if !running || srv == nil {
		return nil
	}

	s.logger.Info("stopping inspector")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, durationOr(s.config.ShutdownTimeout, config.DefaultShutdownTimeout))
		defer cancel()
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown inspector: %w", err)
	}

	s.logger.Info("inspector stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func durationOr(d, fallback config.Duration) time.Duration {
	if d > 0 {
		return d.Duration()
	}
	return fallback.Duration()
}
