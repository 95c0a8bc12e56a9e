// Command setlog-mcp serves the setlog MCP tools over stdio, reading data from
// a running setlog server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	setlogmcp "github.com/claude/setlog/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", os.Getenv("SETLOG_SERVER"), "setlog server URL (defaults to $SETLOG_SERVER)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("setlog-mcp", Version)
		return
	}

	// stdout carries the protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: setlog-mcp -server <URL>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ds := setlogmcp.NewHTTPClient(strings.TrimRight(*serverURL, "/"))
	if err := mcpserver.ServeStdio(setlogmcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
