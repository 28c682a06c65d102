package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/mcp"
	"github.com/hpungsan/harp/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"get": true, "set": true, "del": true, "clear": true,
	"list": true, "sections": true, "pick": true,
	"export": true, "import": true, "mcp": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags come before the subcommand.
	if len(arg) > 1 && arg[0] == '-' {
		return true
	}
	return false
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

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _
  | |__   __ _ _ __ _ __
  | '_ \ / _' | '__| '_ \
  | | | | (_| | |  | |_) |
  |_| |_|\__,_|_|  | .__/
                   |_|

  Persistent registers for files, searches, commands and marks

  Usage: harp <command> [options]
         harp --help

  MCP server mode requires piped input.`)
}

func main() {
	// stdout carries JSON or the MCP protocol; logs always go to stderr.
	_ = flag.Set("logtostderr", "true")
	defer glog.Flush()

	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before the store is opened
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, "")
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".harp")

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	backend, closeBackend, err := store.NewBackend(cfg, baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open store: %v\n", err)
		os.Exit(1)
	}

	code := run(backend, cfg, cwd)
	if err := closeBackend(); err != nil {
		glog.Errorf("[harp]close store: %v\n", err)
	}
	glog.Flush()
	os.Exit(code)
}

// run dispatches to the CLI or the MCP server and returns the exit code.
func run(backend store.Backend, cfg *config.Config, cwd string) int {
	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(backend, cfg, cwd)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'harp --help' for usage.\n")
		return 1
	}

	// MCP server mode (default)
	if err := serveMCP(backend, cfg, cwd); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// serveMCP warns about unknown disabled tools, then serves MCP over stdio.
func serveMCP(backend store.Backend, cfg *config.Config, cwd string) error {
	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		glog.Warningf("[harp]disabled_tools: unknown tool %q\n", name)
	}
	return mcp.Run(backend, cfg, cwd, Version)
}
