package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moot-ai/moot-backend/internal/app"
	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/logging"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		printUsage()
		return 1
	}

	switch os.Args[1] {
	case "start":
		return runStart()
	case "setup":
		return runSetup()
	case "doctor":
		return runDoctor()
	case "version":
		fmt.Printf("mootd %s\n", version)
		return 0
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println(`mootd - legal agent conversational backend

Usage:
  mootd <command>

Commands:
  start     Start the server
  setup     Interactive setup wizard
  doctor    Run preflight diagnostics
  version   Print version
  help      Show this help`)
}

func runStart() int {
	cfg, db, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		return 1
	}
	defer db.Close()

	// Redirect logs to hourly-rotated files when running unattended.
	if os.Getenv("MOOT_LOG_TO_FILE") != "" {
		logsDir := filepath.Join(cfg.DataDir, "logs")
		if err := logging.InitFileLogging(logsDir); err != nil {
			fmt.Fprintf(os.Stderr, "logging init error: %v\n", err)
			return 1
		}
	} else {
		logging.InitConsoleLogging()
	}

	if err := app.Run(cfg, db); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return 1
	}
	return 0
}

func runSetup() int {
	if err := app.RunSetup(); err != nil {
		fmt.Fprintf(os.Stderr, "setup error: %v\n", err)
		return 1
	}
	return 0
}

func runDoctor() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		fmt.Println("Run 'mootd setup' to create a config file.")
		return 1
	}

	checks := app.RunDoctor(cfg)
	fmt.Print(app.FormatChecks(checks))

	for _, c := range checks {
		if c.Status == "fail" {
			return 1
		}
	}
	return 0
}
