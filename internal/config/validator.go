package config

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/avaroute/internal/util"
)

// Validator validates route table configuration.
type Validator struct {
	errors *util.ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a route table. All problems are reported in a
// single *util.ValidationError.
func ValidateConfig(table *RouteTable) error {
	return NewValidator().Validate(table)
}

// Validate validates the route table and returns any errors.
func (v *Validator) Validate(table *RouteTable) error {
	v.errors = util.NewValidationError("route table is invalid")

	if table == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(table)
	v.validateRoutes(table.Spec.Routes)

	if table.Spec.Cache != nil {
		v.validateCache(table.Spec.Cache, "spec.cache")
	}

	if table.Spec.Inspector != nil {
		v.validateInspector(table.Spec.Inspector, "spec.inspector")
	}

	if table.Spec.Observability != nil {
		v.validateObservability(table.Spec.Observability, "spec.observability")
	}

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateRoot validates root-level fields.
func (v *Validator) validateRoot(table *RouteTable) {
	if table.APIVersion == "" {
		v.addError("apiVersion", "apiVersion is required")
	} else if !strings.HasPrefix(table.APIVersion, APIVersionPrefix) {
		v.addError("apiVersion", fmt.Sprintf("apiVersion must start with '%s'", APIVersionPrefix))
	}

	if table.Kind == "" {
		v.addError("kind", "kind is required")
	} else if table.Kind != KindRouteTable {
		v.addError("kind", fmt.Sprintf("kind must be '%s'", KindRouteTable))
	}

	if table.Metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}
}

// validateRoutes validates the route list.
func (v *Validator) validateRoutes(routes []Route) {
	names := make(map[string]int, len(routes))

	for i := range routes {
		route := &routes[i]
		path := fmt.Sprintf("spec.routes[%d]", i)

		if err := util.ValidateNonEmpty(route.Name, "name"); err != nil {
			v.addCause(path+".name", err)
		} else if first, exists := names[route.Name]; exists {
			v.addError(path+".name", fmt.Sprintf("duplicate route name, first defined at spec.routes[%d]", first))
		} else {
			names[route.Name] = i
		}

		v.validateRoute(route, path)
	}
}

// validateRoute validates a single route.
func (v *Validator) validateRoute(route *Route, path string) {
	if !strings.HasPrefix(route.Path, "/") {
		v.addError(path+".path", "path must start with '/'")
	}

	for j, method := range route.Methods {
		if err := util.ValidateHTTPMethod(method); err != nil {
			v.addCause(fmt.Sprintf("%s.methods[%d]", path, j), err)
		}
	}

	params := make(map[string]bool)
	for _, name := range route.ParameterNames() {
		if err := util.ValidateParameterName(name); err != nil {
			v.addCause(path+".path", err)
		}
		params[name] = true
	}

	for name, pattern := range route.Constraints {
		field := fmt.Sprintf("%s.constraints.%s", path, name)
		if !params[name] {
			v.addError(field, "constraint refers to an unknown parameter")
		}
		if pattern == "" {
			v.addError(field, "constraint cannot be empty")
		} else if err := util.ValidateRegex(pattern); err != nil {
			v.addCause(field, err)
		}
	}

	for name, expr := range route.Expressions {
		field := fmt.Sprintf("%s.expressions.%s", path, name)
		if !params[name] {
			v.addError(field, "expression refers to an unknown parameter")
		}
		if err := util.ValidateNonEmpty(expr, "expression"); err != nil {
			v.addCause(field, err)
		}
	}
}

// validateCache validates cache configuration.
func (v *Validator) validateCache(cache *CacheConfig, path string) {
	if !cache.Enabled {
		return
	}

	switch cache.Type {
	case CacheTypeMemory, "":
	case CacheTypeRedis:
		if cache.Redis == nil {
			v.addError(path+".redis", "redis configuration is required for redis cache")
			break
		}
		if err := util.ValidateRedisURL(cache.Redis.URL); err != nil {
			v.addCause(path+".redis.url", err)
		}
		if cache.Redis.TTLJitter < 0 || cache.Redis.TTLJitter > 1 {
			v.addError(path+".redis.ttlJitter", "ttlJitter must be between 0 and 1")
		}
		if cache.Redis.ConnectRetries < 0 {
			v.addError(path+".redis.connectRetries", "connectRetries must not be negative")
		}
		if b := cache.Redis.Breaker; b != nil {
			if b.Threshold <= 0 {
				v.addError(path+".redis.breaker.threshold", "threshold must be positive")
			}
			if err := util.ValidateDuration(b.Timeout.Duration()); err != nil {
				v.addCause(path+".redis.breaker.timeout", err)
			}
		}
	default:
		v.addError(path+".type", fmt.Sprintf("unknown cache type %q", cache.Type))
	}

	if err := util.ValidateDuration(cache.TTL.Duration()); err != nil {
		v.addCause(path+".ttl", err)
	}
}

// validateInspector validates inspector server configuration.
func (v *Validator) validateInspector(in *InspectorConfig, path string) {
	if !in.Enabled {
		return
	}

	if err := util.ValidateNonEmpty(in.Address, "address"); err != nil {
		v.addCause(path+".address", err)
	}

	if rl := in.RateLimit; rl != nil {
		if rl.RPS <= 0 {
			v.addError(path+".rateLimit.rps", "rps must be positive")
		}
		if rl.Burst <= 0 {
			v.addError(path+".rateLimit.burst", "burst must be positive")
		}
	}
}

// validateObservability validates observability configuration.
func (v *Validator) validateObservability(obs *ObservabilityConfig, path string) {
	if obs.Tracing != nil && obs.Tracing.Enabled {
		if err := util.ValidateSamplingRate(obs.Tracing.SamplingRate); err != nil {
			v.addCause(path+".tracing.samplingRate", err)
		}
	}

	if obs.Logging != nil {
		switch strings.ToLower(obs.Logging.Level) {
		case "", "debug", "info", "warn", "error":
		default:
			v.addError(path+".logging.level", fmt.Sprintf("unknown log level %q", obs.Logging.Level))
		}
		switch obs.Logging.Format {
		case "", "json", "console":
		default:
			v.addError(path+".logging.format", fmt.Sprintf("unknown log format %q", obs.Logging.Format))
		}
	}

	if obs.Metrics != nil && obs.Metrics.Enabled && !strings.HasPrefix(obs.Metrics.Path, "/") {
		v.addError(path+".metrics.path", "path must start with '/'")
	}
}

// addError records a field error. Later errors on the same field are
// appended to the earlier message.
func (v *Validator) addError(field, message string) {
	v.errors.Add(util.NewConfigError(fieldOrRoot(field), message))
}

// addCause records a field error caused by a failed field check.
func (v *Validator) addCause(field string, err error) {
	v.errors.Add(util.NewConfigErrorWithCause(fieldOrRoot(field), err.Error(), err))
}

func fieldOrRoot(field string) string {
	if field == "" {
		return "config"
	}
	return field
}
