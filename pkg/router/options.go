package router

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/maze"
	"github.com/matzehuels/gridroute/pkg/observability"
)

// Mode selects how nets are chosen for rip-up each iteration.
type Mode string

const (
	// ModeCongestion adds history on over-threshold cells and re-routes only
	// the nets occupying them.
	ModeCongestion Mode = "congestion"

	// ModeDecay re-routes every net each iteration, adds history where a net
	// still overflows, then decays all history.
	ModeDecay Mode = "decay"
)

// ValidModes is the set of supported rip-up modes.
var ValidModes = map[Mode]bool{
	ModeCongestion: true,
	ModeDecay:      true,
}

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultMode             = ModeCongestion
	DefaultMaxIterations    = 8
	DefaultWireCost         = 1.0
	DefaultViaCost          = 2.0
	DefaultCongestionCost   = 8.0
	DefaultHistoryIncrement = 1.0
	DefaultDecayFactor      = 0.8
	DefaultSearchMargin     = 3
)

// Options configures a Worker. The zero value is valid after SetDefaults.
type Options struct {
	Mode          Mode `json:"mode,omitempty" bson:"mode,omitempty"`
	MaxIterations int  `json:"max_iterations,omitempty" bson:"max_iterations,omitempty"`

	// Search costs
	WireCost       float64 `json:"wire_cost,omitempty" bson:"wire_cost,omitempty"`
	ViaCost        float64 `json:"via_cost,omitempty" bson:"via_cost,omitempty"`
	CongestionCost float64 `json:"congestion_cost,omitempty" bson:"congestion_cost,omitempty"`

	// History negotiation
	HistoryIncrement float64 `json:"history_increment,omitempty" bson:"history_increment,omitempty"`
	DecayFactor      float64 `json:"decay_factor,omitempty" bson:"decay_factor,omitempty"`

	// SearchMargin grows the search window beyond the component box.
	SearchMargin int `json:"search_margin,omitempty" bson:"search_margin,omitempty"`

	// StopOnClean ends the loop early once a round leaves no overflow and
	// no failed nets.
	StopOnClean bool `json:"stop_on_clean,omitempty" bson:"stop_on_clean,omitempty"`

	// ViaCuts names the cut layer above each routing layer. Missing entries
	// default to "V<z><z+1>".
	ViaCuts []string `json:"via_cuts,omitempty" bson:"via_cuts,omitempty"`

	// Runtime options (not serialized)
	Name   string                    `json:"-" bson:"-"`
	Tracer observability.RouterHooks `json:"-" bson:"-"`
	Logger *log.Logger               `json:"-" bson:"-"`
}

// SetDefaults fills zero fields with their defaults. A nil Tracer resolves to
// the globally registered router hooks.
func (o *Options) SetDefaults() {
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.WireCost == 0 {
		o.WireCost = DefaultWireCost
	}
	if o.ViaCost == 0 {
		o.ViaCost = DefaultViaCost
	}
	if o.CongestionCost == 0 {
		o.CongestionCost = DefaultCongestionCost
	}
	if o.HistoryIncrement == 0 {
		o.HistoryIncrement = DefaultHistoryIncrement
	}
	if o.DecayFactor == 0 {
		o.DecayFactor = DefaultDecayFactor
	}
	if o.SearchMargin == 0 {
		o.SearchMargin = DefaultSearchMargin
	}
	if o.Name == "" {
		o.Name = "main"
	}
	if o.Tracer == nil {
		o.Tracer = observability.Router()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option ranges. Call after SetDefaults.
func (o *Options) Validate() error {
	switch {
	case !ValidModes[o.Mode]:
		return errors.New(errors.ErrCodeInvalidOptions, "invalid mode: %q (must be one of: congestion, decay)", o.Mode)
	case o.MaxIterations < 1:
		return errors.New(errors.ErrCodeInvalidOptions, "max_iterations must be at least 1")
	case o.WireCost <= 0 || o.ViaCost <= 0:
		return errors.New(errors.ErrCodeInvalidOptions, "wire and via costs must be positive")
	case o.CongestionCost < 0 || o.HistoryIncrement < 0:
		return errors.New(errors.ErrCodeInvalidOptions, "congestion cost and history increment must not be negative")
	case o.DecayFactor <= 0 || o.DecayFactor >= 1:
		return errors.New(errors.ErrCodeInvalidOptions, "decay_factor must be in (0, 1)")
	case o.SearchMargin < 0:
		return errors.New(errors.ErrCodeInvalidOptions, "search_margin must not be negative")
	}
	return nil
}

// Costs returns the maze search weights.
func (o *Options) Costs() maze.Costs {
	return maze.Costs{Wire: o.WireCost, Via: o.ViaCost, Congestion: o.CongestionCost, History: 1}
}

// cut returns the via cut name above layer z.
func (o *Options) cut(z int) string {
	if z < len(o.ViaCuts) && o.ViaCuts[z] != "" {
		return o.ViaCuts[z]
	}
	return fmt.Sprintf("V%d%d", z, z+1)
}
