package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gridroute/pkg/cache"
	"github.com/matzehuels/gridroute/pkg/design"
	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/observability"
	"github.com/matzehuels/gridroute/pkg/result"
	"github.com/matzehuels/gridroute/pkg/route"
	"github.com/matzehuels/gridroute/pkg/router"
)

// testDesign is an 8x8 grid at pitch 10 (centers 5..75) with a horizontal
// M1 and a vertical M2. Net a sits in the lower-left quadrant, b in the
// upper-right one, c spans the top row and t has a single pin.
func testDesign() *design.Design {
	pin := func(x, y int) design.Pin { return design.Pin{X: x, Y: y, Layer: "M1"} }
	return &design.Design{
		Name: "quad",
		Grid: design.GridSpec{Pitch: 10, NX: 8, NY: 8},
		Layers: []design.LayerSpec{
			{Name: "M1", Direction: design.Horizontal, Capacity: 2, Cut: "VIA12"},
			{Name: "M2", Direction: design.Vertical, Capacity: 2},
		},
		Nets: []design.Net{
			{Name: "a", Pins: []design.Pin{pin(5, 5), pin(25, 5)}},
			{Name: "b", Pins: []design.Pin{pin(55, 55), pin(75, 55)}},
			{Name: "c", Pins: []design.Pin{pin(5, 75), pin(75, 75)}},
			{Name: "t", Pins: []design.Pin{pin(35, 35)}},
		},
	}
}

func workerNames(res *result.Result) []string {
	var names []string
	for _, w := range res.Workers {
		names = append(names, w.Worker)
	}
	return names
}

func TestOptions_ValidateAndSetDefaults(t *testing.T) {
	var o Options
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, DefaultThreshold, o.Threshold)
	assert.Equal(t, 1, o.PartitionsX)
	assert.Equal(t, 1, o.PartitionsY)
	assert.Equal(t, DefaultConcurrency, o.Concurrency)
	assert.Equal(t, cache.DefaultTTL, o.CacheTTL)
	assert.Equal(t, router.ModeCongestion, o.Mode)
	assert.False(t, o.Partitioned())

	tests := []struct {
		name string
		opts Options
	}{
		{"negative threshold", Options{Threshold: -1}},
		{"too many partitions", Options{PartitionsX: MaxPartitions + 1}},
		{"negative partitions", Options{PartitionsY: -2}},
		{"negative concurrency", Options{Concurrency: -1}},
		{"bad router mode", Options{Options: router.Options{Mode: "greedy"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidOptions))
		})
	}
}

func TestOptions_JSONInlinesRouterOptions(t *testing.T) {
	var o Options
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"decay","max_iterations":3,"partitions_x":2}`), &o))
	assert.Equal(t, router.ModeDecay, o.Mode)
	assert.Equal(t, 3, o.MaxIterations)
	assert.Equal(t, 2, o.PartitionsX)
}

func TestOptions_ResultKeyOpts(t *testing.T) {
	a := Options{PartitionsX: 2, PartitionsY: 2}
	b := Options{}
	require.NoError(t, a.ValidateAndSetDefaults())
	require.NoError(t, b.ValidateAndSetDefaults())

	k := cache.NewDefaultKeyer()
	assert.NotEqual(t, k.ResultKey("h", a.ResultKeyOpts()), k.ResultKey("h", b.ResultKeyOpts()))

	b.Concurrency = 1
	c := Options{}
	require.NoError(t, c.ValidateAndSetDefaults())
	assert.Equal(t, k.ResultKey("h", b.ResultKeyOpts()), k.ResultKey("h", c.ResultKeyOpts()))
}

func TestValidateFormats(t *testing.T) {
	require.NoError(t, ValidateFormats([]string{"dot", "svg", "png", "json"}))
	require.NoError(t, ValidateFormats(nil))
	err := ValidateFormats([]string{"svg", "pdf"})
	require.Error(t, err)
	assert.True(t, errors.IsInputError(err))
}

func TestPartition(t *testing.T) {
	d := testDesign()
	g, err := d.BuildGrid(1)
	require.NoError(t, err)
	ts := make([][]route.Terminal, len(d.Nets))
	for i, n := range d.Nets {
		ts[i] = d.Terminals(g, n)
	}

	regions, global := partition(g, d, ts, 2, 2)
	var got []string
	for _, r := range regions {
		got = append(got, r.name)
	}
	assert.Equal(t, []string{"p0.0", "p1.1"}, got)
	assert.Equal(t, []int{0}, regions[0].nets)
	assert.Equal(t, []int{1}, regions[1].nets)
	assert.Equal(t, []int{2}, global)
	assert.Equal(t, [4]int{4, 4, 7, 7}, [4]int{regions[1].x0, regions[1].y0, regions[1].x1, regions[1].y1})

	regions, global = partition(g, d, ts, 1, 1)
	assert.Empty(t, regions)
	assert.Equal(t, []int{0, 1, 2}, global)
}

func TestRoute_Unpartitioned(t *testing.T) {
	res, err := Route(context.Background(), testDesign(), Options{})
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, []string{GlobalWorker}, workerNames(res))
	assert.Equal(t, []string{"M1", "M2"}, res.Layers)
	assert.Equal(t, 1, res.Partitions)
	require.Len(t, res.Nets, 4)
	for i, name := range []string{"a", "b", "c", "t"} {
		assert.Equal(t, name, res.Nets[i].Name)
		assert.True(t, res.Nets[i].Complete, name)
	}
	assert.Equal(t, 2+2+7, res.Wirelength())
	assert.Equal(t, 0, res.Vias())
	assert.Len(t, res.Nets[3].Nodes, 1)
	assert.Equal(t, 0, res.Utilization.TotalOverflow)
	assert.Positive(t, res.Duration)
}

func TestRoute_PartitionedMatchesGlobal(t *testing.T) {
	whole, err := Route(context.Background(), testDesign(), Options{})
	require.NoError(t, err)
	split, err := Route(context.Background(), testDesign(), Options{PartitionsX: 2, PartitionsY: 2, Concurrency: 2})
	require.NoError(t, err)

	assert.True(t, split.OK())
	assert.Equal(t, []string{"p0.0", "p1.1", GlobalWorker}, workerNames(split))
	assert.Equal(t, 2, split.Partitions)

	// Window-local indices come back in global coordinates.
	b, ok := split.Net("b")
	require.True(t, ok)
	root := b.Nodes[b.Root]
	assert.Equal(t, [4]int{5, 5, 55, 55}, [4]int{root.GX, root.GY, root.X, root.Y})

	for i := range whole.Nets {
		want, got := whole.Nets[i], split.Nets[i]
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("net %s differs (-whole +split):\n%s", want.Name, diff)
		}
	}
	// Merged partition demand shows up in the final utilization.
	assert.Equal(t, whole.Utilization, split.Utilization)
}

func TestRoute_PartitionFailureRetriedGlobally(t *testing.T) {
	d := testDesign()
	d.Nets = []design.Net{{Name: "d", Pins: []design.Pin{
		{X: 5, Y: 5, Layer: "M1"}, {X: 25, Y: 5, Layer: "M1"},
	}}}
	// Wall off column 1 on M1 inside the lower-left quadrant; the only way
	// across is row 4, outside the window.
	d.Blockages = []design.Blockage{{Layer: "M1", X1: 15, Y1: 5, X2: 15, Y2: 35}}

	res, err := Route(context.Background(), d, Options{
		Options:     router.Options{MaxIterations: 2},
		PartitionsX: 2,
		PartitionsY: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p0.0", GlobalWorker}, workerNames(res))
	assert.Equal(t, []string{"d"}, res.Workers[0].Failed)
	assert.True(t, res.OK())
	n := res.Nets[0]
	assert.True(t, n.Complete)
	assert.Equal(t, 10, n.Wirelength)
	assert.Equal(t, 4, n.Vias)
}

func TestRoute_InvalidDesign(t *testing.T) {
	d := testDesign()
	d.Nets[0].Pins[0].Layer = "M9"
	_, err := Route(context.Background(), d, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsInputError(err))
}

func TestRoute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Route(ctx, testDesign(), Options{PartitionsX: 2, PartitionsY: 2})
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Runner
// =============================================================================

type cacheRecorder struct {
	mu                sync.Mutex
	hits, misses, set int
}

func (r *cacheRecorder) OnCacheHit(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *cacheRecorder) OnCacheMiss(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *cacheRecorder) OnCacheSet(context.Context, string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set++
}

func TestRunner_RouteCaches(t *testing.T) {
	rec := &cacheRecorder{}
	observability.SetCacheHooks(rec)
	t.Cleanup(observability.Reset)

	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()
	ctx := context.Background()

	first, hit, err := runner.RouteWithCacheInfo(ctx, testDesign(), Options{})
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := runner.RouteWithCacheInfo(ctx, testDesign(), Options{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Wirelength(), second.Wirelength())

	// Different options miss.
	third, hit, err := runner.RouteWithCacheInfo(ctx, testDesign(), Options{Options: router.Options{Mode: router.ModeDecay}})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEqual(t, first.ID, third.ID)

	refreshed, hit, err := runner.RouteWithCacheInfo(ctx, testDesign(), Options{Refresh: true})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEqual(t, first.ID, refreshed.ID)

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 2, rec.misses)
	assert.Equal(t, 3, rec.set)
}

func TestRunner_NullCacheNeverHits(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	for range 2 {
		_, hit, err := runner.RouteWithCacheInfo(context.Background(), testDesign(), Options{})
		require.NoError(t, err)
		assert.False(t, hit)
	}
}

func TestRunner_Render(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	runner := NewRunner(fc, nil, nil)
	ctx := context.Background()

	res, err := runner.Route(ctx, testDesign(), Options{})
	require.NoError(t, err)

	opts := Options{Formats: []string{FormatDOT, FormatJSON, FormatPNG}, Nets: []string{"a"}}
	artifacts, hit, err := runner.RenderWithCacheInfo(ctx, res, opts)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, artifacts, 3)

	dot := string(artifacts[FormatDOT])
	assert.True(t, strings.HasPrefix(dot, `digraph "quad"`))
	assert.Contains(t, dot, `label="a"`)
	assert.NotContains(t, dot, `label="c"`)
	assert.Equal(t, "\x89PNG", string(artifacts[FormatPNG][:4]))

	var back result.Result
	require.NoError(t, json.Unmarshal(artifacts[FormatJSON], &back))
	assert.Equal(t, res.ID, back.ID)

	again, hit, err := runner.RenderWithCacheInfo(ctx, res, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, artifacts, again)
}

func TestRender_InvalidFormat(t *testing.T) {
	_, err := Render(context.Background(), &result.Result{}, Options{Formats: []string{"pdf"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidOptions))
}
