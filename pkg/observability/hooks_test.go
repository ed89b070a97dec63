package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnAggregateStart(ctx, "run", "2024-01-02", "Daily")
	p.OnAggregateComplete(ctx, "run", 100, 2, time.Millisecond, nil)
	p.OnLayoutStart(ctx, "run", 100)
	p.OnLayoutComplete(ctx, "run", time.Millisecond, nil)
	p.OnEncodeComplete(ctx, "run", 100, 0, time.Millisecond)
	p.OnStale(ctx, "run")
	p.OnRenderComplete(ctx, "svg", 2048, time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/api/heatmap")
	h.OnResponse(ctx, "GET", "/api/heatmap", 200, time.Millisecond)
}

type testPipelineHooks struct {
	NoopPipelineHooks
	mu    sync.Mutex
	stale []string
}

func (h *testPipelineHooks) OnStale(_ context.Context, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stale = append(h.stale, runID)
}

type testCacheHooks struct{ NoopCacheHooks }

type testHTTPHooks struct{ NoopHTTPHooks }

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() default is not a no-op")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() default is not a no-op")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() default is not a no-op")
	}

	p := &testPipelineHooks{}
	SetPipelineHooks(p)
	if Pipeline() != p {
		t.Error("SetPipelineHooks did not register")
	}
	Pipeline().OnStale(context.Background(), "r1")
	if len(p.stale) != 1 || p.stale[0] != "r1" {
		t.Errorf("stale = %v", p.stale)
	}

	c := &testCacheHooks{}
	SetCacheHooks(c)
	if Cache() != c {
		t.Error("SetCacheHooks did not register")
	}

	h := &testHTTPHooks{}
	SetHTTPHooks(h)
	if HTTP() != h {
		t.Error("SetHTTPHooks did not register")
	}

	SetPipelineHooks(nil)
	if Pipeline() != p {
		t.Error("nil hooks replaced the registered ones")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset did not restore defaults")
	}
}
