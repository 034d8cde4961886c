package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/avaroute/internal/cache"
	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/health"
	"github.com/vyrodovalexey/avaroute/internal/inspector"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/router"
	"github.com/vyrodovalexey/avaroute/internal/tree"
)

// shutdownTimeout bounds the whole graceful shutdown.
const shutdownTimeout = 30 * time.Second

// application holds all application components.
type application struct {
	config    *config.RouteTable
	router    *router.Router
	cache     cache.Cache
	inspector *inspector.Server
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	logger    observability.Logger
	reloads   *prometheus.CounterVec

	// emptyTable is set while the active route table has no routes.
	emptyTable atomic.Bool
	reloadMu   sync.Mutex
}

// initApplication initializes all application components and compiles the
// initial route tree.
func initApplication(table *config.RouteTable, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics(observability.DefaultNamespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	metrics.InitVecMetrics()
	cache.GetCacheMetrics().Init()

	tracer, err := initTracer(table, logger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:  table,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
	app.emptyTable.Store(len(table.Spec.Routes) == 0)

	app.reloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: observability.DefaultNamespace,
		Subsystem: "config",
		Name:      "reloads_total",
		Help:      "Total number of route table reloads",
	}, []string{"result"})
	if err := metrics.RegisterCollector(app.reloads); err != nil {
		app.close(context.Background())
		return nil, fmt.Errorf("failed to register reload metrics: %w", err)
	}

	opts := []router.Option{
		router.WithRouterLogger(logger),
		router.WithMetrics(metrics),
		router.WithTracer(tracer),
		router.WithOptimize(table.Spec.Compiler.OptimizeEnabled()),
	}

	if cacheCfg := table.Spec.Cache; !cacheCfg.IsEmpty() {
		c, err := cache.New(cacheCfg, logger)
		if err != nil {
			app.close(context.Background())
			return nil, fmt.Errorf("failed to create tree cache: %w", err)
		}
		app.cache = c
		opts = append(opts, router.WithTreeCache(cache.NewTreeStore(c,
			cache.WithTreeStoreLogger(logger),
			cache.WithTreeTTL(cacheCfg.TTL.Duration()),
		)))
	}

	app.router = router.New(opts...)
	if err := app.router.LoadRoutes(context.Background(), table.Spec.Routes); err != nil {
		app.close(context.Background())
		return nil, fmt.Errorf("failed to compile routes: %w", err)
	}

	if in := table.Spec.Inspector; in != nil && in.Enabled {
		inspectorOpts := []inspector.Option{
			inspector.WithLogger(logger),
			inspector.WithTracer(tracer),
			inspector.WithHealthChecker(app.healthChecker()),
		}
		if obs := table.Spec.Observability; obs != nil && obs.Metrics != nil && obs.Metrics.Enabled {
			inspectorOpts = append(inspectorOpts,
				inspector.WithMetrics(metrics),
				inspector.WithMetricsPath(obs.Metrics.Path),
			)
		}
		app.inspector = inspector.New(in, app.router, inspectorOpts...)
	}

	return app, nil
}

// healthChecker builds the readiness checks for the compiled tree and the
// tree cache.
func (a *application) healthChecker() *health.Checker {
	health.GetHealthMetrics().Init()

	checker := health.NewChecker(version)
	checker.Register(health.TreeCheck(a.router, a.emptyTable.Load))
	if a.cache != nil {
		checker.Register(health.CacheCheck(a.cache))
	}
	return checker
}

// initTracer initializes the tracer.
func initTracer(table *config.RouteTable, logger observability.Logger) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:  config.DefaultServiceName,
		SamplingRate: 1.0,
	}

	if obs := table.Spec.Observability; obs != nil && obs.Tracing != nil {
		tracerCfg.Enabled = obs.Tracing.Enabled
		tracerCfg.SamplingRate = obs.Tracing.SamplingRate
		tracerCfg.OTLPEndpoint = obs.Tracing.OTLPEndpoint
		if obs.Tracing.ServiceName != "" {
			tracerCfg.ServiceName = obs.Tracing.ServiceName
		}
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	if tracerCfg.Enabled {
		logger.Info("tracing enabled",
			observability.String("endpoint", tracerCfg.OTLPEndpoint),
			observability.Float64("samplingRate", tracerCfg.SamplingRate),
		)
	}

	return tracer, nil
}

// dump writes the compiled route tree as YAML.
func (a *application) dump(_ context.Context, w io.Writer) error {
	data, err := tree.MarshalYAML(a.router.Tree())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// run serves the inspector and recompiles on configuration changes until
// ctx is done. An empty configPath disables watching.
func (a *application) run(ctx context.Context, configPath string) error {
	errCh := make(chan error, 1)
	if a.inspector != nil {
		go func() {
			errCh <- a.inspector.Start(ctx)
		}()
	}

	watcher := a.startConfigWatcher(ctx, configPath)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("received shutdown signal")
			break loop
		case runErr = <-errCh:
			if runErr != nil {
				a.logger.Error("inspector failed", observability.Error(runErr))
			}
			break loop
		case <-hup:
			a.forceReload(watcher)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if a.inspector != nil {
		if err := a.inspector.Stop(shutdownCtx); err != nil {
			a.logger.Error("failed to stop inspector gracefully", observability.Error(err))
			runErr = errors.Join(runErr, err)
		}
	}

	a.close(shutdownCtx)

	a.logger.Info("avaroute stopped")
	return runErr
}

// startConfigWatcher starts the configuration watcher.
func (a *application) startConfigWatcher(ctx context.Context, configPath string) *config.Watcher {
	if configPath == "" {
		return nil
	}

	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		a.logger.Warn("failed to resolve config path for watching", observability.Error(err))
		return nil
	}

	onChange := func(table *config.RouteTable) { a.reload(ctx, table) }
	onError := func(error) { a.reloads.WithLabelValues("error").Inc() }

	watcher, err := config.NewWatcher(path, onChange,
		config.WithLogger(a.logger),
		config.WithErrorCallback(onError),
	)
	if err != nil {
		a.logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		a.logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}

// forceReload rereads the watched file on SIGHUP.
func (a *application) forceReload(watcher *config.Watcher) {
	if watcher == nil {
		a.logger.Warn("reload requested but configuration watching is disabled")
		return
	}
	if err := watcher.ForceReload(); err != nil {
		a.reloads.WithLabelValues("error").Inc()
		a.logger.Error("forced reload failed", observability.Error(err))
	}
}

// reload recompiles the router from a changed route table. On failure the
// previous tree stays active.
func (a *application) reload(ctx context.Context, table *config.RouteTable) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	a.logger.Info("configuration changed, recompiling routes",
		observability.Int("routes", len(table.Spec.Routes)))

	if table.Spec.Compiler.OptimizeEnabled() != a.config.Spec.Compiler.OptimizeEnabled() {
		a.logger.Warn("compiler settings changed, restart to apply")
	}

	if err := a.router.LoadRoutes(ctx, table.Spec.Routes); err != nil {
		a.reloads.WithLabelValues("error").Inc()
		a.logger.Error("failed to recompile routes", observability.Error(err))
		return
	}
	a.config = table
	a.emptyTable.Store(len(table.Spec.Routes) == 0)
	a.reloads.WithLabelValues("success").Inc()
}

// close releases the cache and flushes the tracer.
func (a *application) close(ctx context.Context) {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", observability.Error(err))
		}
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
