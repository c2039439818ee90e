// Package design describes the routing problem handed to the router: the
// gcell grid, the routing layers and their capacities, blockages, and the
// nets with their pins in physical coordinates.
//
// A Design is plain data. Decoding from TOML, YAML or JSON lives in pkg/io;
// this package validates a decoded design and turns it into a grid.Graph and
// per-net terminal lists.
package design

import (
	"fmt"

	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/grid"
	"github.com/matzehuels/gridroute/pkg/route"
)

// Layer directions.
const (
	Horizontal = "horizontal"
	Vertical   = "vertical"
	Both       = "both"
)

// MaxGCells bounds the total number of gcells (x × y × layers) a design may
// allocate.
const MaxGCells = 1 << 24

// Design is a complete routing problem.
type Design struct {
	Name      string      `json:"name" toml:"name" yaml:"name" bson:"name"`
	Grid      GridSpec    `json:"grid" toml:"grid" yaml:"grid" bson:"grid"`
	Layers    []LayerSpec `json:"layers" toml:"layers" yaml:"layers" bson:"layers"`
	Blockages []Blockage  `json:"blockages,omitempty" toml:"blockages" yaml:"blockages,omitempty" bson:"blockages,omitempty"`
	Nets      []Net       `json:"nets" toml:"nets" yaml:"nets" bson:"nets"`
}

// GridSpec gives the gcell centers, either explicitly or as a uniform grid.
// Explicit coordinates win when both are present.
type GridSpec struct {
	XCoords []int `json:"x_coords,omitempty" toml:"x_coords" yaml:"x_coords,omitempty" bson:"x_coords,omitempty"`
	YCoords []int `json:"y_coords,omitempty" toml:"y_coords" yaml:"y_coords,omitempty" bson:"y_coords,omitempty"`

	OriginX int `json:"origin_x,omitempty" toml:"origin_x" yaml:"origin_x,omitempty" bson:"origin_x,omitempty"`
	OriginY int `json:"origin_y,omitempty" toml:"origin_y" yaml:"origin_y,omitempty" bson:"origin_y,omitempty"`
	Pitch   int `json:"pitch,omitempty" toml:"pitch" yaml:"pitch,omitempty" bson:"pitch,omitempty"`
	NX      int `json:"nx,omitempty" toml:"nx" yaml:"nx,omitempty" bson:"nx,omitempty"`
	NY      int `json:"ny,omitempty" toml:"ny" yaml:"ny,omitempty" bson:"ny,omitempty"`
}

// LayerSpec is one routing layer, bottom first.
type LayerSpec struct {
	Name      string `json:"name" toml:"name" yaml:"name" bson:"name"`
	Direction string `json:"direction,omitempty" toml:"direction" yaml:"direction,omitempty" bson:"direction,omitempty"`
	Capacity  int    `json:"capacity" toml:"capacity" yaml:"capacity" bson:"capacity"`
	// Cut names the via cut layer above this layer.
	Cut string `json:"cut,omitempty" toml:"cut" yaml:"cut,omitempty" bson:"cut,omitempty"`
}

// Blockage removes every routing resource of the gcells whose centers fall
// inside the rectangle on one layer.
type Blockage struct {
	Layer string `json:"layer" toml:"layer" yaml:"layer" bson:"layer"`
	X1    int    `json:"x1" toml:"x1" yaml:"x1" bson:"x1"`
	Y1    int    `json:"y1" toml:"y1" yaml:"y1" bson:"y1"`
	X2    int    `json:"x2" toml:"x2" yaml:"x2" bson:"x2"`
	Y2    int    `json:"y2" toml:"y2" yaml:"y2" bson:"y2"`
}

// Net is a design net. The first pin becomes the root of its routing tree.
type Net struct {
	Name string `json:"name" toml:"name" yaml:"name" bson:"name"`
	Pins []Pin  `json:"pins" toml:"pins" yaml:"pins" bson:"pins"`
}

// Pin is a pin access point. Boundary pins stand in for a connection that
// leaves the routed region.
type Pin struct {
	Name     string `json:"name,omitempty" toml:"name" yaml:"name,omitempty" bson:"name,omitempty"`
	X        int    `json:"x" toml:"x" yaml:"x" bson:"x"`
	Y        int    `json:"y" toml:"y" yaml:"y" bson:"y"`
	Layer    string `json:"layer" toml:"layer" yaml:"layer" bson:"layer"`
	Boundary bool   `json:"boundary,omitempty" toml:"boundary" yaml:"boundary,omitempty" bson:"boundary,omitempty"`
}

// IsTrivial reports whether the net needs no routing.
func (n Net) IsTrivial() bool { return len(n.Pins) < 2 }

// =============================================================================
// Grid
// =============================================================================

// Coords returns the gcell center coordinates along x and y.
func (g GridSpec) Coords() (xs, ys []int) {
	if len(g.XCoords) > 0 || len(g.YCoords) > 0 {
		return g.XCoords, g.YCoords
	}
	if g.Pitch <= 0 || g.NX <= 0 || g.NY <= 0 {
		return nil, nil
	}
	return grid.Uniform(g.OriginX, g.Pitch, g.NX), grid.Uniform(g.OriginY, g.Pitch, g.NY)
}

// LayerIndex returns the z index of the named routing layer.
func (d *Design) LayerIndex(name string) (int, bool) {
	for i, l := range d.Layers {
		if l.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ViaCuts returns the cut layer name above each routing layer. Layers
// without a Cut get an empty entry, which the router fills with a default.
func (d *Design) ViaCuts() []string {
	cuts := make([]string, len(d.Layers))
	for i, l := range d.Layers {
		cuts[i] = l.Cut
	}
	return cuts
}

// BuildGrid constructs the routing grid. Each layer gets its capacity in
// the directions it routes in; the other direction is blocked. Blockages
// block every direction of the covered gcells.
func (d *Design) BuildGrid(threshold float64) (*grid.Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	xs, ys := d.Grid.Coords()
	g, err := grid.New(grid.Config{
		XCoords:   xs,
		YCoords:   ys,
		Layers:    len(d.Layers),
		Threshold: threshold,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDesign, err, "design %q: build grid", d.Name)
	}
	for z, l := range d.Layers {
		switch l.Direction {
		case Horizontal:
			g.SetLayerSupply(z, grid.East, l.Capacity)
			g.BlockLayerDir(z, grid.North)
		case Vertical:
			g.SetLayerSupply(z, grid.North, l.Capacity)
			g.BlockLayerDir(z, grid.East)
		default:
			g.SetLayerSupply(z, grid.East, l.Capacity)
			g.SetLayerSupply(z, grid.North, l.Capacity)
		}
	}
	for _, b := range d.Blockages {
		z, _ := d.LayerIndex(b.Layer)
		blockRect(g, b, z)
	}
	return g, nil
}

func blockRect(g *grid.Graph, b Blockage, z int) {
	nx, ny, _ := g.Dims()
	x1, x2 := min(b.X1, b.X2), max(b.X1, b.X2)
	y1, y2 := min(b.Y1, b.Y2), max(b.Y1, b.Y2)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			p := g.Point(x, y)
			if p.X < x1 || p.X > x2 || p.Y < y1 || p.Y > y2 {
				continue
			}
			for _, dir := range []grid.Dir{grid.East, grid.North, grid.Up} {
				g.SetBlocked(x, y, z, dir, true)
			}
		}
	}
}

// Terminals maps the pins of n onto g.
func (d *Design) Terminals(g *grid.Graph, n Net) []route.Terminal {
	terms := make([]route.Terminal, len(n.Pins))
	for i, p := range n.Pins {
		z, _ := d.LayerIndex(p.Layer)
		kind := route.PinTerminal
		if p.Boundary {
			kind = route.BoundaryPin
		}
		terms[i] = route.Terminal{Loc: g.MazeIdx(grid.Point{X: p.X, Y: p.Y}, z), Kind: kind}
	}
	return terms
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks names, layer references and pin extents.
func (d *Design) Validate() error {
	if err := errors.ValidateName("design", d.Name); err != nil {
		return err
	}
	if err := d.validateExtents(); err != nil {
		return err
	}
	xs, ys := d.Grid.Coords()

	layers := make(map[string]bool, len(d.Layers))
	for _, l := range d.Layers {
		if err := errors.ValidateLayerName(l.Name); err != nil {
			return err
		}
		if layers[l.Name] {
			return errors.New(errors.ErrCodeInvalidDesign, "duplicate layer %q", l.Name)
		}
		layers[l.Name] = true
		switch l.Direction {
		case "", Horizontal, Vertical, Both:
		default:
			return errors.New(errors.ErrCodeInvalidDesign, "layer %q: invalid direction %q (must be one of: horizontal, vertical, both)", l.Name, l.Direction)
		}
		if l.Capacity < 0 {
			return errors.New(errors.ErrCodeInvalidDesign, "layer %q: negative capacity", l.Name)
		}
		if l.Cut != "" {
			if err := errors.ValidateLayerName(l.Cut); err != nil {
				return err
			}
		}
	}

	for _, b := range d.Blockages {
		if !layers[b.Layer] {
			return errors.New(errors.ErrCodeInvalidDesign, "blockage on unknown layer %q", b.Layer)
		}
	}

	probe, err := grid.New(grid.Config{XCoords: xs, YCoords: ys, Layers: 1})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDesign, err, "design %q", d.Name)
	}
	nets := make(map[string]bool, len(d.Nets))
	for _, n := range d.Nets {
		if err := errors.ValidateName("net", n.Name); err != nil {
			return err
		}
		if nets[n.Name] {
			return errors.New(errors.ErrCodeInvalidDesign, "duplicate net %q", n.Name)
		}
		nets[n.Name] = true
		for i, p := range n.Pins {
			if !layers[p.Layer] {
				return errors.New(errors.ErrCodeInvalidDesign, "net %q: %s on unknown layer %q", n.Name, pinLabel(p, i), p.Layer)
			}
			if !probe.ContainsPoint(grid.Point{X: p.X, Y: p.Y}) {
				return errors.New(errors.ErrCodeInvalidDesign, "net %q: %s at (%d,%d) is outside the grid", n.Name, pinLabel(p, i), p.X, p.Y)
			}
		}
	}
	return nil
}

// validateExtents rejects grids that are empty or too large to allocate
// before any gcell storage is created.
func (d *Design) validateExtents() error {
	nx, ny := len(d.Grid.XCoords), len(d.Grid.YCoords)
	if nx == 0 && ny == 0 && d.Grid.Pitch > 0 {
		nx, ny = d.Grid.NX, d.Grid.NY
		if nx <= 0 || ny <= 0 {
			return errors.New(errors.ErrCodeInvalidDesign, "design %q: grid needs positive nx and ny, got %dx%d", d.Name, nx, ny)
		}
	}
	if nx == 0 || ny == 0 {
		return errors.New(errors.ErrCodeInvalidDesign, "design %q: grid has no gcells", d.Name)
	}
	if len(d.Layers) == 0 {
		return errors.New(errors.ErrCodeInvalidDesign, "design %q: no routing layers", d.Name)
	}
	if nx > MaxGCells || ny > MaxGCells || nx*ny > MaxGCells/len(d.Layers) {
		return errors.New(errors.ErrCodeInvalidDesign, "design %q: %dx%dx%d gcells exceeds the limit of %d", d.Name, nx, ny, len(d.Layers), MaxGCells)
	}
	return nil
}

func pinLabel(p Pin, i int) string {
	if p.Name != "" {
		return fmt.Sprintf("pin %q", p.Name)
	}
	return fmt.Sprintf("pin %d", i)
}
