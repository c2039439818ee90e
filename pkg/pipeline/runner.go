package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridroute/pkg/cache"
	"github.com/matzehuels/gridroute/pkg/design"
	"github.com/matzehuels/gridroute/pkg/observability"
	"github.com/matzehuels/gridroute/pkg/result"
)

// Runner executes the pipeline with caching. Both the CLI and the server
// use it so cache keys and hooks stay consistent.
//
// The Runner holds no per-run state. Several goroutines may share one
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// RouteWithCacheInfo routes d, serving the result from cache when the same
// design was routed with the same options before. The bool reports a hit.
func (r *Runner) RouteWithCacheInfo(ctx context.Context, d *design.Design, opts Options) (*result.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	designData, err := json.Marshal(d)
	if err != nil {
		return nil, false, fmt.Errorf("serialize design for cache key: %w", err)
	}
	cacheKey := r.Keyer.ResultKey(cache.Hash(designData), opts.ResultKeyOpts())
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached result.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				hooks.OnCacheHit(ctx, cacheKey)
				r.Logger.Debug("result cache hit", "design", d.Name, "key", cacheKey)
				return &cached, true, nil
			}
			// Undecodable entries are recomputed and overwritten.
		} else if err != nil {
			r.Logger.Warn("cache read failed", "error", err)
		}
		hooks.OnCacheMiss(ctx, cacheKey)
	}

	res, err := Route(ctx, d, opts)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, opts.CacheTTL); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, cacheKey, len(data))
		}
	}
	return res, false, nil
}

// Route is a convenience wrapper that calls RouteWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Route(ctx context.Context, d *design.Design, opts Options) (*result.Result, error) {
	res, _, err := r.RouteWithCacheInfo(ctx, d, opts)
	return res, err
}

// RenderWithCacheInfo renders res in opts.Formats with caching. The bool
// reports whether every artifact came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, res *result.Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	resultData, err := json.Marshal(res)
	if err != nil {
		return nil, false, fmt.Errorf("serialize result for cache key: %w", err)
	}
	resultHash := cache.Hash(resultData)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(resultHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)
	rendered, err := Render(ctx, res, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(resultHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, key, data, opts.CacheTTL)
	}
	r.Logger.Debug("rendered artifacts", "formats", opts.Formats, "duration", time.Since(start))
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, res *result.Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, res, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
