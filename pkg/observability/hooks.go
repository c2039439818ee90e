// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about routing iterations, pipeline runs, cache operations
// and served HTTP requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the router packages stay
// free of any particular metrics or tracing backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRouterHooks(&myRouterHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// A router worker can also be handed hooks explicitly through its options, in
// which case the registry is bypassed for that worker:
//
//	w, _ := router.NewWorker(g, nets, router.Options{Tracer: myHooks})
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Router Hooks
// =============================================================================

// IterationSummary describes one finished negotiation round.
type IterationSummary struct {
	Iteration     int
	Rerouted      int
	Failed        int
	OverflowEdges int
	TotalOverflow int
	Duration      time.Duration
}

// RouterHooks receives events at the decision points of the negotiation loop.
type RouterHooks interface {
	// Iteration boundaries
	OnIterationStart(ctx context.Context, worker string, iteration, marked int)
	OnIterationComplete(ctx context.Context, worker string, summary IterationSummary)

	// Per-net events
	OnPathFound(ctx context.Context, net string, terminal, wire, vias int)
	OnNetRippedUp(ctx context.Context, net string, edges int)
	OnSearchFailure(ctx context.Context, net string, terminal int)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the routing pipeline.
type PipelineHooks interface {
	// Route events
	OnRouteStart(ctx context.Context, design string, nets, partitions int)
	OnRouteComplete(ctx context.Context, design string, failed int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response written for a request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRouterHooks is a no-op implementation of RouterHooks.
type NoopRouterHooks struct{}

func (NoopRouterHooks) OnIterationStart(context.Context, string, int, int)            {}
func (NoopRouterHooks) OnIterationComplete(context.Context, string, IterationSummary) {}
func (NoopRouterHooks) OnPathFound(context.Context, string, int, int, int)            {}
func (NoopRouterHooks) OnNetRippedUp(context.Context, string, int)                    {}
func (NoopRouterHooks) OnSearchFailure(context.Context, string, int)                  {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRouteStart(context.Context, string, int, int) {}
func (NoopPipelineHooks) OnRouteComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	routerHooks   RouterHooks   = NoopRouterHooks{}
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetRouterHooks registers custom router hooks.
// Workers created with an explicit tracer ignore the registry.
func SetRouterHooks(h RouterHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		routerHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Router returns the registered router hooks.
func Router() RouterHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return routerHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	routerHooks = NoopRouterHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
