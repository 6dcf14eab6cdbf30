package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

const usage = `usage: logreport [-config path] [-version] [command]

commands:
  run       analyze the newest log and write its report (default)
  serve     serve the history API and reports, optionally running on an interval
  history   print recently generated reports
  config    print the effective configuration
`

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is "+defaultConfigPath+")")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("logreport - nginx access log analyzer\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	cleanupLogger, err := configureRuntimeLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if err := dispatch(command, flag.Args(), cfg); err != nil {
		log.Error().Err(err).Str("command", command).Msg("logreport failed")
		cleanupLogger()
		os.Exit(1)
	}
	cleanupLogger()
}

func dispatch(command string, args []string, cfg appConfig) error {
	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	switch command {
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runOnce(ctx, cfg, os.Stdout)
	case "serve":
		return runServer(cfg)
	case "history":
		return runHistory(cfg, rest, os.Stdout)
	case "config":
		return printConfig(cfg, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// printConfig writes the effective configuration as YAML.
func printConfig(cfg appConfig, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
