// Command agent is a chat assistant that manages a to-do list.
//
// Usage:
//
//	agent [chat]   # interactive terminal chat (default)
//	agent web      # browser chat on web.addr
//	agent mcp      # serve the to-do tools over MCP (stdio)
//	agent version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/petasbytes/todo-agent/internal/config"
	"github.com/petasbytes/todo-agent/internal/mcpserver"
	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/internal/web"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func main() {
	cmd := "chat"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "chat", "web", "mcp":
		if err := run(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("todo-agent v%s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func run(cmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays free for the chat and the MCP transport.
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           cfg.Level(),
		Prefix:          "todo-agent",
		ReportTimestamp: true,
	})
	telemetry.SetLogger(logger)

	if os.Getenv("ANTHROPIC_API_KEY") == "" && cmd != "mcp" {
		return fmt.Errorf("missing ANTHROPIC_API_KEY; export it or add it to .env before running")
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	// Graceful shutdown on Ctrl-C (SIGINT) / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "web":
		srv := web.New(a.session(), a.store, web.Options{
			AllowedOrigins: cfg.Web.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
			Logger:         logger,
		})
		return srv.ListenAndServe(ctx, cfg.Web.Addr)
	case "mcp":
		s, err := mcpserver.New(a.defs, Version, logger)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		return mcpserver.ServeStdio(s)
	default:
		in, err := newLineInput(historyPath(cfg))
		if err != nil {
			logger.Debug("readline unavailable; using plain input", "err", err)
		}
		defer in.Close()
		return runChat(ctx, a.session(), in, newRenderer(os.Stdout))
	}
}

func printUsage() {
	fmt.Print(`todo-agent: a chat assistant for your to-do list

Usage:
  agent [command]

Commands:
  chat      Chat in the terminal (default)
  web       Serve the browser chat on web.addr
  mcp       Serve the to-do tools over MCP (stdio)
  version   Print the version
  help      Show this help

Configuration is read from .env, todo-agent.yaml (or $AGT_CONFIG) and AGT_* variables.
`)
}
