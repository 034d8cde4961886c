package config

import "time"

// Route table document identifiers.
const (
	APIVersionPrefix = "avaroute.io/"
	APIVersion       = APIVersionPrefix + "v1"
	KindRouteTable   = "RouteTable"
)

// RouteTable is the root of a route table configuration file.
type RouteTable struct {
	APIVersion string         `yaml:"apiVersion" json:"apiVersion"`
	Kind       string         `yaml:"kind" json:"kind"`
	Metadata   Metadata       `yaml:"metadata" json:"metadata"`
	Spec       RouteTableSpec `yaml:"spec" json:"spec"`
}

// Metadata contains identifying information of a route table.
type Metadata struct {
	Name        string            `yaml:"name" json:"name"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// RouteTableSpec contains the routes and the runtime settings.
type RouteTableSpec struct {
	Compiler      CompilerConfig       `yaml:"compiler,omitempty" json:"compiler,omitempty"`
	Routes        []Route              `yaml:"routes" json:"routes"`
	Cache         *CacheConfig         `yaml:"cache,omitempty" json:"cache,omitempty"`
	Inspector     *InspectorConfig     `yaml:"inspector,omitempty" json:"inspector,omitempty"`
	Observability *ObservabilityConfig `yaml:"observability,omitempty" json:"observability,omitempty"`
}

// CompilerConfig controls how routes are compiled into a tree.
type CompilerConfig struct {
	// Optimize enables the tree optimizer. Defaults to true.
	Optimize *bool `yaml:"optimize,omitempty" json:"optimize,omitempty"`
}

// OptimizeEnabled reports whether the optimizer should run.
func (c CompilerConfig) OptimizeEnabled() bool {
	return c.Optimize == nil || *c.Optimize
}

// InspectorConfig configures the HTTP inspector server.
type InspectorConfig struct {
	Enabled         bool             `yaml:"enabled" json:"enabled"`
	Address         string           `yaml:"address,omitempty" json:"address,omitempty"`
	ReadTimeout     Duration         `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration         `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	ShutdownTimeout Duration         `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	RateLimit       *RateLimitConfig `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
}

// RateLimitConfig configures a token bucket limiter.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps"`
	Burst int     `yaml:"burst" json:"burst"`
}

// Inspector defaults.
const (
	DefaultInspectorAddress = ":8081"
	DefaultReadTimeout      = Duration(5 * time.Second)
	DefaultWriteTimeout     = Duration(10 * time.Second)
	DefaultShutdownTimeout  = Duration(15 * time.Second)
)

// DefaultRouteTable returns an empty route table with default settings.
func DefaultRouteTable() *RouteTable {
	return &RouteTable{
		APIVersion: APIVersion,
		Kind:       KindRouteTable,
		Metadata:   Metadata{Name: "default"},
		Spec: RouteTableSpec{
			Routes: []Route{},
		},
	}
}

// ApplyDefaults fills in unset optional settings.
func (t *RouteTable) ApplyDefaults() {
	if t.Spec.Inspector != nil {
		in := t.Spec.Inspector
		if in.Address == "" {
			in.Address = DefaultInspectorAddress
		}
		if in.ReadTimeout == 0 {
			in.ReadTimeout = DefaultReadTimeout
		}
		if in.WriteTimeout == 0 {
			in.WriteTimeout = DefaultWriteTimeout
		}
		if in.ShutdownTimeout == 0 {
			in.ShutdownTimeout = DefaultShutdownTimeout
		}
	}

	if t.Spec.Cache != nil {
		t.Spec.Cache.applyDefaults()
	}

	if t.Spec.Observability != nil {
		t.Spec.Observability.applyDefaults()
	}
}
