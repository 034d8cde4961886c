package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avaroute/internal/util"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// escapedDollar stands in for "$$" while variables are substituted.
const escapedDollar = "\x00ESCAPED_DOLLAR\x00"

// Loader handles route table loading from files and readers.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a route table loader that substitutes variables from
// the process environment.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// LoadConfig loads a route table from a file path.
func LoadConfig(path string) (*RouteTable, error) {
	return NewLoader().Load(path)
}

// LoadConfigFromReader loads a route table from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*RouteTable, error) {
	return NewLoader().LoadFromReader(r)
}

// Load loads a route table from a file path.
func (l *Loader) Load(path string) (*RouteTable, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, util.WrapError(err, "failed to resolve path "+path)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path is validated via filepath.Abs
	if err != nil {
		return nil, util.WrapError(err, "failed to read config file "+path)
	}

	return l.parseConfig(data)
}

// LoadFromReader loads a route table from an io.Reader.
func (l *Loader) LoadFromReader(r io.Reader) (*RouteTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, util.WrapError(err, "failed to read config")
	}

	return l.parseConfig(data)
}

// parseConfig parses YAML data into a RouteTable and applies defaults.
func (l *Loader) parseConfig(data []byte) (*RouteTable, error) {
	content := l.substituteEnvVars(string(data))

	var table RouteTable
	if err := yaml.Unmarshal([]byte(content), &table); err != nil {
		return nil, util.WrapError(err, "failed to parse YAML")
	}

	table.ApplyDefaults()

	return &table, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. "$$" yields a literal "$".
func (l *Loader) substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", escapedDollar)

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		if value, exists := l.lookupEnv(submatches[1]); exists {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, escapedDollar, "$")
}

// ResolveConfigPath resolves a route table path, checking common locations.
func ResolveConfigPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("config file not found: %s", path)
	}

	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}

	etcPath := filepath.Join(string(filepath.Separator), "etc", "avaroute")
	commonPaths := []string{
		filepath.Join("configs", path),
		filepath.Join(etcPath, path),
	}
	if home, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(home, ".avaroute", path))
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("config file not found: %s", path)
}
