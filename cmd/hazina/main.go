package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/app"
	"github.com/openkenya/hazina/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths // Multiple -config flags supported
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state shared by the subcommands
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Hazina - Kenya public finance ingestion

Usage:
  hazina [flags] <command> [command flags]

Commands:
  etl <source>          run one collection pass for a catalogue source
  backfill              sweep historical documents across sources
  serve                 run continuously on the publication calendar
  seed <kind>           load reference data (counties, ministries, minimums)
  post-ingestion-check  print table counts and the latest document
  schedule              print the per-source schedule report
  version               print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	command, commandArgs := args[0], args[1:]

	// version needs neither configuration nor a database.
	if command == "version" {
		printVersion()
		return
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load .env so environment overrides see it
	// 2. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 3. Initialize logger
	// 4. Print banner
	_ = godotenv.Load() // missing .env is fine

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("hazina.toml"); err == nil {
			configFiles = append(configFiles, "hazina.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	// Crash reports land beside the log file; the deferred recovery turns
	// an unhandled panic into a report and exit code 1.
	if logFile := common.GetLogFilePath(logger); logFile != "" {
		common.InstallCrashHandler(filepath.Dir(logFile))
	} else {
		common.InstallCrashHandler("")
	}
	defer common.RecoverWithCrashFile()

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("command", command).
		Msg("Configuration loaded")

	if err := run(command, commandArgs); err != nil {
		logger.Error().Str("command", command).Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// run dispatches to a subcommand. Failures surface as a non-zero exit;
// per-document failures inside a run do not, they are reported in the
// run summary and through the notifier instead.
func run(command string, args []string) error {
	switch command {
	case "etl":
		return runEtl(args)
	case "backfill":
		return runBackfill(args)
	case "serve":
		return runServe(args)
	case "seed":
		return runSeed(args)
	case "post-ingestion-check":
		return runCheck(args)
	case "schedule":
		return runSchedule(args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// newApp builds the full component graph for database-backed commands.
func newApp(ctx context.Context) (*app.App, error) {
	application, err := app.New(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// signalContext returns a context canceled on the first SIGINT or SIGTERM.
// A second signal kills the process the hard way via the default handler.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Interrupt signal received")
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()

	return ctx, cancel
}
