// Package main is the entry point for the route tree compiler.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// stdinConfigPath makes the route table be read from standard input.
const stdinConfigPath = "-"

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	dump        bool
	showVersion bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	initLogger(flags)
	logger := observability.L()
	defer func() { _ = logger.Sync() }()

	table, err := loadAndValidateConfig(flags.configPath, os.Stdin, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	app, err := initApplication(table, logger)
	if err != nil {
		logger.Fatal("failed to initialize", observability.Error(err))
	}

	if flags.dump {
		err = app.dump(context.Background(), os.Stdout)
		app.close(context.Background())
		if err != nil {
			logger.Fatal("failed to dump route tree", observability.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchPath := flags.configPath
	if watchPath == stdinConfigPath {
		watchPath = ""
	}

	if err := app.run(ctx, watchPath); err != nil {
		logger.Fatal("avaroute stopped with error", observability.Error(err))
	}
}

// parseFlags parses command line flags.
func parseFlags(fs *flag.FlagSet, args []string) cliFlags {
	configPath := fs.String("config", getEnvOrDefault("AVAROUTE_CONFIG_PATH", "configs/routes.yaml"),
		"Path to configuration file, or - to read it from standard input")
	logLevel := fs.String("log-level", getEnvOrDefault("AVAROUTE_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", getEnvOrDefault("AVAROUTE_LOG_FORMAT", "json"),
		"Log format (json, console)")
	dump := fs.Bool("dump", getEnvBool("AVAROUTE_DUMP", false),
		"Print the compiled route tree as YAML and exit")
	showVersion := fs.Bool("version", false, "Show version information")
	_ = fs.Parse(args)

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		dump:        *dump,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "avaroute version %s\n", version)
	_, _ = fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	_, _ = fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// initLogger initializes the global logger.
func initLogger(flags cliFlags) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
}

// loadAndValidateConfig loads and validates the route table from
// configPath, or from stdin when configPath is "-".
func loadAndValidateConfig(
	configPath string,
	stdin io.Reader,
	logger observability.Logger,
) (*config.RouteTable, error) {
	logger.Info("starting avaroute",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	table, err := readConfig(configPath, stdin)
	if err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(table); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		observability.String("name", table.Metadata.Name),
		observability.Int("routes", len(table.Spec.Routes)),
		observability.Bool("optimize", table.Spec.Compiler.OptimizeEnabled()),
	)

	return table, nil
}

func readConfig(configPath string, stdin io.Reader) (*config.RouteTable, error) {
	if configPath == stdinConfigPath {
		return config.LoadConfigFromReader(stdin)
	}

	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}
