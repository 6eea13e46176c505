// Package interaction implements the per-tab content-script engine:
// handle/selector resolution, the read-only query actions, and the
// human-behaviour pipelines (click/type/scroll/clearInput) described
// in spec §4.3. One Engine owns one tab's domhost.Document and
// handle.Registry for as long as that content-script instance lives;
// a navigation discards both and a fresh Engine starts empty.
package interaction

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/handle"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// ViewportSize models the tab's viewport for the scroll-into-view and
// off-screen checks in the click pipeline. The fake host fixes a
// viewport rather than tracking real scroll state.
type ViewportSize struct {
	Width, Height float64
}

// DefaultViewport matches a common laptop viewport; fixtures may
// override it via Engine.SetViewport.
var DefaultViewport = ViewportSize{Width: 1280, Height: 800}

// Engine is the single-threaded-per-tab interaction runtime (spec
// §5: "the engine does not interleave two mouse paths on the same
// tab"). The mutex enforces that guarantee for callers reached
// concurrently from the page-bridge's message loop.
type Engine struct {
	mu sync.Mutex

	doc      domhost.Document
	handles  *handle.Registry
	viewport ViewportSize
	cursor   domhost.Point

	// lastKnownBox is recorded by the click pipeline right before
	// think-time so the post-wait re-validation (spec §4.3 step 7)
	// can detect a shift.
	lastKnownBox domhost.Rect

	rng *rand.Rand
}

// New creates an Engine bound to doc, with a fresh handle registry
// seeded at the given TTL/sweep interval (spec §4.3 defaults usually
// come from tuning.Default()).
func New(doc domhost.Document, ttl, cleanupInterval time.Duration) *Engine {
	return &Engine{
		doc:      doc,
		handles:  handle.New(ttl, cleanupInterval),
		viewport: DefaultViewport,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetViewport overrides the viewport used by scroll-into-view checks.
func (e *Engine) SetViewport(v ViewportSize) {
	e.mu.Lock()
	e.viewport = v
	e.mu.Unlock()
}

// Cursor returns the last reported cursor position, used by
// cursor.getPosition.
func (e *Engine) Cursor() domhost.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// SeedCursor sets the starting cursor position, used by
// cursor.reportPosition when the page-bridge hands a previous
// instance's last-known position to a fresh one after navigation.
func (e *Engine) SeedCursor(p domhost.Point) {
	e.mu.Lock()
	e.cursor = p
	e.mu.Unlock()
}

// Registry exposes the handle registry, used by the bridge's
// dom.findScrollable to register the container it finds, and by tests.
func (e *Engine) Registry() *handle.Registry { return e.handles }

// Close stops the handle registry's sweeper. Called when the tab's
// content-script instance is torn down.
func (e *Engine) Close() { e.handles.Close() }

// Target names either a handle or a selector. Per spec §4.3, if both
// are present handleId wins.
type Target struct {
	HandleID string
	Selector string
}

// Resolve implements the handle/selector resolution rule (spec §4.3).
// A handle miss surfaces its specific error (handle-not-found,
// handle-gc'd); a selector miss is always element-not-found.
func (e *Engine) Resolve(t Target) (*domhost.Element, error) {
	if t.HandleID != "" {
		return e.handles.Get(t.HandleID)
	}
	if t.Selector == "" {
		return nil, protocol.ErrElementNotFound
	}
	matches := e.doc.QuerySelectorAll(t.Selector)
	if len(matches) == 0 {
		return nil, protocol.ErrElementNotFound
	}
	return matches[0], nil
}

// sleep respects ctx cancellation so navigation/deadline can abort a
// pipeline mid-suspension (spec §5 cancellation model).
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (e *Engine) randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(e.rng.Int63n(int64(max-min)))
}

func (e *Engine) randFloat(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + e.rng.Float64()*(max-min)
}

// effectiveAvoid merges global tuning avoid with any per-request
// override, per spec §4.1 (union, never replacement).
func effectiveAvoid(global, perRequest tuning.Ruleset) tuning.Ruleset {
	return global.Union(perRequest)
}
