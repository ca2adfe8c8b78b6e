// Command tamada serves the Georgian attractions question-answering
// API.
//
// Usage:
//
//	tamada serve --config tamada.yaml
//	tamada warmup --config tamada.yaml
//	tamada validate tamada.yaml
//	tamada schema > config-schema.json
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/tamadze/tamada"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Warmup   WarmupCmd   `cmd:"" help:"Prime caches and models, then exit."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate a JSON Schema for the configuration."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(tamada.GetVersion())
	return nil
}

const (
	logLevelEnvVar  = "LOG_LEVEL"
	logFileEnvVar   = "LOG_FILE"
	logFormatEnvVar = "LOG_FORMAT"
)

// initLogger configures the process logger. Precedence per setting:
// CLI flag > environment > config file > built-in default. cfg may be
// nil for commands that run before (or without) config loading.
func initLogger(cli *CLI, cfg *config.Config) (func(), error) {
	pick := func(flag, envKey, fromConfig, fallback string) string {
		if flag != "" {
			return flag
		}
		if v := os.Getenv(envKey); v != "" {
			return v
		}
		if fromConfig != "" {
			return fromConfig
		}
		return fallback
	}

	var fileCfg config.LoggingConfig
	if cfg != nil {
		fileCfg = cfg.Logging
	}

	levelStr := pick(cli.LogLevel, logLevelEnvVar, fileCfg.Level, "info")
	logFile := pick(cli.LogFile, logFileEnvVar, fileCfg.File, "")
	format := pick(cli.LogFormat, logFormatEnvVar, fileCfg.Format, "simple")

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" {
		f, closeFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		cleanup = closeFn
	}

	logger.Init(level, output, format)
	return cleanup, nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("tamada"),
		kong.Description("Multilingual question answering over Georgian attractions."),
		kong.UsageOnError(),
	)

	// Provisional logger so config loading itself is logged; serve and
	// warmup re-init once the config file's logging section is known.
	cleanup, err := initLogger(&cli, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
