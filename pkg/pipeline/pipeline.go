// Package pipeline runs a design through routing and rendering for the CLI
// and the HTTP server.
//
// Both entry points go through a [Runner] so that caching, partitioning and
// hook dispatch behave the same everywhere.
//
// # Stages
//
//  1. Route: build the grid, route region-local nets on private windows in
//     parallel, merge their demand, then route the remaining nets on the
//     full grid
//  2. Render: draw the result as DOT, SVG, a convergence PNG or JSON
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Route(ctx, d, pipeline.Options{PartitionsX: 2, PartitionsY: 2})
//	if err != nil {
//	    return err
//	}
//	artifacts, err := runner.Render(ctx, res, pipeline.Options{Formats: []string{"svg"}})
package pipeline

import (
	"time"

	"github.com/matzehuels/gridroute/pkg/cache"
	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/router"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultThreshold is the demand/supply ratio above which an edge counts
	// as congested.
	DefaultThreshold = 1.0

	// DefaultPartitions is the default partition count along each axis.
	DefaultPartitions = 1

	// DefaultConcurrency bounds the number of partition workers running at
	// once.
	DefaultConcurrency = 4

	// MaxPartitions caps PartitionsX and PartitionsY.
	MaxPartitions = 16
)

// Format constants for rendered artifacts.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png" // convergence plot
	FormatJSON = "json"
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatJSON: true,
}

// Options configures routing and rendering. Router settings are embedded so
// one struct travels from flags or request bodies down to the workers.
type Options struct {
	router.Options `bson:",inline"`

	// Threshold is applied when the grid is built.
	Threshold float64 `json:"threshold,omitempty" bson:"threshold,omitempty"`

	// Partitioning
	PartitionsX int `json:"partitions_x,omitempty" bson:"partitions_x,omitempty"`
	PartitionsY int `json:"partitions_y,omitempty" bson:"partitions_y,omitempty"`
	Concurrency int `json:"concurrency,omitempty" bson:"concurrency,omitempty"`

	// Rendering
	Formats  []string `json:"formats,omitempty" bson:"formats,omitempty"`
	Nets     []string `json:"nets,omitempty" bson:"nets,omitempty"`
	Detailed bool     `json:"detailed,omitempty" bson:"detailed,omitempty"`

	// Caching (not serialized)
	CacheTTL time.Duration `json:"-" bson:"-"`
	Refresh  bool          `json:"-" bson:"-"`

	validated bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid format: %q (must be one of: dot, svg, png, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults applies defaults and checks every option. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.Options.SetDefaults()
	if err := o.Options.Validate(); err != nil {
		return err
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.PartitionsX == 0 {
		o.PartitionsX = DefaultPartitions
	}
	if o.PartitionsY == 0 {
		o.PartitionsY = DefaultPartitions
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = cache.DefaultTTL
	}
	switch {
	case o.Threshold < 0:
		return errors.New(errors.ErrCodeInvalidOptions, "threshold must be positive")
	case o.PartitionsX < 1 || o.PartitionsY < 1 || o.PartitionsX > MaxPartitions || o.PartitionsY > MaxPartitions:
		return errors.New(errors.ErrCodeInvalidOptions, "partitions must be between 1 and %d per axis", MaxPartitions)
	case o.Concurrency < 1:
		return errors.New(errors.ErrCodeInvalidOptions, "concurrency must be at least 1")
	}
	o.validated = true
	return nil
}

// ValidateForRender applies render defaults and checks the formats.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = cache.DefaultTTL
	}
	return ValidateFormats(o.Formats)
}

// Partitioned reports whether routing splits the grid.
func (o *Options) Partitioned() bool {
	return o.PartitionsX*o.PartitionsY > 1
}

// ResultKeyOpts returns cache key options for a routing result.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		Mode:             string(o.Mode),
		MaxIterations:    o.MaxIterations,
		WireCost:         o.WireCost,
		ViaCost:          o.ViaCost,
		CongestionCost:   o.CongestionCost,
		HistoryIncrement: o.HistoryIncrement,
		DecayFactor:      o.DecayFactor,
		SearchMargin:     o.SearchMargin,
		StopOnClean:      o.StopOnClean,
		Threshold:        o.Threshold,
		PartitionsX:      o.PartitionsX,
		PartitionsY:      o.PartitionsY,
		ViaCuts:          o.ViaCuts,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Nets:     o.Nets,
		Detailed: o.Detailed,
	}
}
