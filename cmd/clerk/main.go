package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/db"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true,
	"categories": true, "catalog": true, "sections": true, "summarize": true,
	"start": true, "next": true, "complete": true,
	"documents": true, "delete": true, "purge": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
   ___ _    ___ ___ _  __
  / __| |  | __| _ \ |/ /
 | (__| |__| _||   / ' <
  \___|____|___|_|_\_|\_\

  Legal template assistant

  Usage: clerk <command> [options]
         clerk serve          start the HTTP API
         clerk --help

  MCP server mode requires piped input.`)
}

// baseDir returns $CLERK_HOME, or ~/.clerk.
func baseDir() (string, error) {
	if dir := os.Getenv("CLERK_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".clerk"), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fatal("failed to build logger: %v", err)
	}
	defer log.Sync()

	database, err := db.Init(dir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	gw := gateway.NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model,
		time.Duration(cfg.HTTPTimeoutSeconds)*time.Second, log)
	rt, err := ops.NewRuntime(cfg, database, gw, log)
	if err != nil {
		fatal("failed to initialize runtime: %v", err)
	}

	if isCLIMode() {
		app := newCLIApp(rt, cfg, log)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'clerk --help' for usage.\n")
		os.Exit(1)
	}

	if err := runMCP(rt, cfg, log); err != nil {
		fatal("%v", err)
	}
}
