// CrewKit command line entry point.
//
// Usage:
//
//	crewkit run                        # assign and execute the configured tasks
//	crewkit run --config crew.yaml     # with an explicit config file
//	crewkit ask "question" --notes f   # answer a question grounded on notes
//	crewkit index notes.md runbook.md  # chunk and embed note files
//	crewkit pull qwen2:0.5b            # download a model on the local server
//	crewkit models                     # list models the server offers
//	crewkit health                     # probe the completion endpoint
//	crewkit history                    # show recent runs
//	crewkit version                    # show version information
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crewkit/crewkit/config"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCrew(os.Args[2:])
	case "ask":
		runAsk(os.Args[2:])
	case "index":
		runIndex(os.Args[2:])
	case "pull":
		runPull(os.Args[2:])
	case "models":
		runModels(os.Args[2:])
	case "health":
		runHealth(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("CrewKit %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`CrewKit - local-first agent task assignment

Usage:
  crewkit <command> [options]

Commands:
  run       Assign the configured tasks to agents and execute them
  ask       Answer one question, optionally grounded on note files
  index     Chunk and embed note files, reporting chunk counts
  pull      Download a model on the local server
  models    List models the local server offers
  health    Probe the completion endpoint
  history   Show recent runs from the history store
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Examples:
  crewkit run --config crew.yaml
  crewkit ask "what broke the login flow?" --notes runbook.md
  crewkit index runbook.md postmortem.md
  crewkit pull qwen2:0.5b
  crewkit models
  crewkit health
  crewkit history --limit 5`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("Invalid config: %v", err)
	}
	return cfg
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
