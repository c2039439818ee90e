// Package cli implements the gridroute command-line interface.
//
// # Commands
//
//   - route: route a design file and write the result JSON
//   - render: draw a result as DOT, SVG, a convergence PNG or JSON
//   - inspect: print a per-net summary of a result
//   - serve: run the HTTP API
//   - cache: manage the local result cache
//   - completion: generate shell completions
//
// All commands support --verbose (-v) for debug-level logging, which also
// turns on per-net router events.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridroute/pkg/buildinfo"
	"github.com/matzehuels/gridroute/pkg/cache"
	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "gridroute"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "gridroute is a negotiated-congestion global router",
		Long:         `gridroute routes the nets of a design over a 3-D gcell grid, negotiating congestion through history costs until the routing fits the grid capacity.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.routeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. spec selects the cache
// backend (see cache.Open).
func (c *CLI) newRunner(ctx context.Context, spec string) (*pipeline.Runner, error) {
	dir, err := cacheDir()
	if err != nil && (spec == "" || spec == "file") {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		spec = "none"
	}
	cc, err := cache.Open(ctx, spec, dir)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gridroute/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// basePath derives the output base path. An empty output strips the
// extension from input; a known format extension is stripped from output.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// parsePartitions parses "NxM" (or a single "N" for N×N) into partition
// counts.
func parsePartitions(s string) (int, int, error) {
	if s == "" {
		return 1, 1, nil
	}
	xs, ys, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		ys = xs
	}
	px, errX := strconv.Atoi(xs)
	py, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil || px < 1 || py < 1 {
		return 0, 0, errors.New(errors.ErrCodeInvalidOptions, "invalid partitions %q (want NxM, e.g. 2x2)", s)
	}
	return px, py, nil
}
