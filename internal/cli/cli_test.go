package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gridroute/pkg/errors"
	pkgio "github.com/matzehuels/gridroute/pkg/io"
)

const designTOML = `
name = "demo"

[grid]
pitch = 10
nx = 4
ny = 4

[[layers]]
name = "M1"
direction = "horizontal"
capacity = 2

[[layers]]
name = "M2"
direction = "vertical"
capacity = 2
cut = "VIA12"

[[nets]]
name = "n1"
pins = [{x = 5, y = 5, layer = "M1"}, {x = 35, y = 25, layer = "M1"}]

[[nets]]
name = "n2"
pins = [{x = 5, y = 35, layer = "M1"}, {x = 35, y = 35, layer = "M1"}]
`

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeDesign(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "demo.toml")
	require.NoError(t, os.WriteFile(path, []byte(designTOML), 0o644))
	return path
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", appName), dir)

	t.Setenv("XDG_CACHE_HOME", "")
	dir, err = cacheDir()
	require.NoError(t, err)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".cache", appName), dir)
}

func TestParsePartitions(t *testing.T) {
	tests := []struct {
		in     string
		px, py int
		ok     bool
	}{
		{"", 1, 1, true},
		{"2x2", 2, 2, true},
		{"4X1", 4, 1, true},
		{"3", 3, 3, true},
		{"0x2", 0, 0, false},
		{"ax2", 0, 0, false},
		{"2x", 0, 0, false},
	}
	for _, tt := range tests {
		px, py, err := parsePartitions(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			assert.True(t, errors.IsInputError(err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, [2]int{tt.px, tt.py}, [2]int{px, py}, tt.in)
	}
}

func TestBasePath(t *testing.T) {
	assert.Equal(t, "dir/demo", basePath("", "dir/demo.toml"))
	assert.Equal(t, "out/trees", basePath("out/trees.svg", "demo.toml"))
	assert.Equal(t, "out/trees.v2", basePath("out/trees.v2", "demo.toml"))
}

func TestParseFormats(t *testing.T) {
	assert.Equal(t, []string{"svg"}, parseFormats(""))
	assert.Equal(t, []string{"dot", "png"}, parseFormats("dot,png"))
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())
	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")

	c := New(&buf, LogInfo)
	c.SetLogLevel(LogDebug)
	assert.Equal(t, log.DebugLevel, c.Logger.GetLevel())
}

func TestRouteInspectRender(t *testing.T) {
	design := writeDesign(t)
	dir := filepath.Dir(design)

	out, err := execute(t, "route", design, "--svg", "--plot")
	require.NoError(t, err)
	assert.Contains(t, out, "Routed demo")
	assert.Contains(t, out, "fresh")

	resultPath := filepath.Join(dir, "demo.route.json")
	res, err := pkgio.ImportResult(resultPath)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.FileExists(t, filepath.Join(dir, "demo.svg"))
	assert.FileExists(t, filepath.Join(dir, "demo.png"))

	out, err = execute(t, "route", design)
	require.NoError(t, err)
	assert.Contains(t, out, "cached")

	out, err = execute(t, "inspect", resultPath)
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "n1")
	assert.Contains(t, out, "n2")

	out, err = execute(t, "inspect", resultPath, "--failed")
	require.NoError(t, err)
	assert.Contains(t, out, "no nets to show")

	dotPath := filepath.Join(dir, "trees.dot")
	_, err = execute(t, "render", resultPath, "-f", "dot", "-o", dotPath, "--nets", "n2")
	require.NoError(t, err)
	dot, err := os.ReadFile(dotPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dot), `digraph "demo"`))
	assert.NotContains(t, string(dot), `label="n1"`)
}

func TestRoute_Errors(t *testing.T) {
	design := writeDesign(t)

	_, err := execute(t, "route", filepath.Join(filepath.Dir(design), "missing.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	_, err = execute(t, "route", strings.TrimSuffix(design, ".toml")+".txt")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	_, err = execute(t, "route", design, "--partitions", "zz")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOptions))

	_, err = execute(t, "route", design, "--mode", "greedy", "--cache", "none")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOptions))

	_, err = execute(t, "render", design, "-f", "pdf")
	assert.True(t, errors.IsInputError(err))
}

func TestCacheCommands(t *testing.T) {
	design := writeDesign(t)
	_, err := execute(t, "route", design)
	require.NoError(t, err)

	out, err := execute(t, "cache", "path")
	require.NoError(t, err)
	dir := strings.TrimSpace(out)
	assert.Equal(t, appName, filepath.Base(dir))

	out, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 cached entries")
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "gridroute")
}
