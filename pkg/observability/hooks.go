// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about graph mutations, merge
// operations, and orchestrator API calls.
//
// The package uses a simple hooks pattern: interfaces per event category,
// no-op defaults, and a registry populated by main. Libraries stay free of
// observability-framework imports, and backends (OpenTelemetry,
// Prometheus, DataDog, etc.) plug in without touching the core.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetGraphHooks(&myGraphHooks{})
//	    observability.SetMergeHooks(&myMergeHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Merge().OnDiffComplete(ctx, graphID, ops, conflicts, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events from topology import and serialization.
type GraphHooks interface {
	// OnImport records a completed graph import.
	OnImport(ctx context.Context, graphID string, nodes, edges int, duration time.Duration, err error)

	// OnSerialize records a completed graph serialization.
	OnSerialize(ctx context.Context, graphID string, bytes int, duration time.Duration, err error)
}

// =============================================================================
// Merge Hooks
// =============================================================================

// MergeHooks receives events from the diff/merge engine.
type MergeHooks interface {
	// OnDiffComplete records a computed edit script.
	OnDiffComplete(ctx context.Context, graphID string, ops, conflicts int, duration time.Duration)

	// OnApplyComplete records an applied (or rejected) edit script.
	OnApplyComplete(ctx context.Context, graphID string, ops int, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from orchestrator client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnImport(context.Context, string, int, int, time.Duration, error) {}
func (NoopGraphHooks) OnSerialize(context.Context, string, int, time.Duration, error)   {}

// NoopMergeHooks is a no-op implementation of MergeHooks.
type NoopMergeHooks struct{}

func (NoopMergeHooks) OnDiffComplete(context.Context, string, int, int, time.Duration)   {}
func (NoopMergeHooks) OnApplyComplete(context.Context, string, int, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	graphHooks GraphHooks = NoopGraphHooks{}
	mergeHooks MergeHooks = NoopMergeHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetGraphHooks registers custom graph hooks.
// This should be called once at application startup.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetMergeHooks registers custom merge hooks.
// This should be called once at application startup.
func SetMergeHooks(h MergeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mergeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Merge returns the registered merge hooks.
func Merge() MergeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mergeHooks
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
	graphHooks = NoopGraphHooks{}
	mergeHooks = NoopMergeHooks{}
	httpHooks = NoopHTTPHooks{}
}
