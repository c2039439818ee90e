package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Router hooks
	r := NoopRouterHooks{}
	r.OnIterationStart(ctx, "w0", 1, 12)
	r.OnIterationComplete(ctx, "w0", IterationSummary{Iteration: 1, Rerouted: 12})
	r.OnPathFound(ctx, "clk", 1, 14, 2)
	r.OnNetRippedUp(ctx, "clk", 6)
	r.OnSearchFailure(ctx, "clk", 3)

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnRouteStart(ctx, "alu", 40, 4)
	p.OnRouteComplete(ctx, "alu", 0, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "result", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/route")
	h.OnResponse(ctx, "POST", "/v1/route", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Router().(NoopRouterHooks); !ok {
		t.Error("Router() should return NoopRouterHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customRouter := &testRouterHooks{}
	SetRouterHooks(customRouter)
	if Router() != customRouter {
		t.Error("SetRouterHooks should set custom hooks")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Router().(NoopRouterHooks); !ok {
		t.Error("Reset() should restore NoopRouterHooks")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testRouterHooks{}
	SetRouterHooks(custom)

	// Setting nil should be ignored
	SetRouterHooks(nil)

	if Router() != custom {
		t.Error("SetRouterHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testRouterHooks struct{ NoopRouterHooks }
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
