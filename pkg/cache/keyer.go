package cache

// Keyer derives cache keys.
type Keyer interface {
	// ResultKey is the key of a routing result for a design hash and the
	// options that affect routing.
	ResultKey(designHash string, opts ResultKeyOpts) string

	// ArtifactKey is the key of a rendered artifact of a cached result.
	ArtifactKey(resultKey string, opts ArtifactKeyOpts) string
}

// ResultKeyOpts lists every option that changes a routing result. Loggers,
// tracers and concurrency limits are not part of the key.
type ResultKeyOpts struct {
	Mode             string   `json:"mode"`
	MaxIterations    int      `json:"max_iterations"`
	WireCost         float64  `json:"wire_cost"`
	ViaCost          float64  `json:"via_cost"`
	CongestionCost   float64  `json:"congestion_cost"`
	HistoryIncrement float64  `json:"history_increment"`
	DecayFactor      float64  `json:"decay_factor"`
	SearchMargin     int      `json:"search_margin"`
	StopOnClean      bool     `json:"stop_on_clean"`
	ViaCuts          []string `json:"via_cuts,omitempty"`
	Threshold        float64  `json:"threshold"`
	PartitionsX      int      `json:"partitions_x"`
	PartitionsY      int      `json:"partitions_y"`
}

// ArtifactKeyOpts identifies one rendering of a result.
type ArtifactKeyOpts struct {
	Format   string   `json:"format"`
	Nets     []string `json:"nets,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResultKey implements Keyer.
func (DefaultKeyer) ResultKey(designHash string, opts ResultKeyOpts) string {
	return hashKey("result", designHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(resultKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultKey, opts)
}
