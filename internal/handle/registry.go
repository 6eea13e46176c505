// Package handle implements the element-handle registry described in
// spec §4.3 and §9: opaque ids mapping weakly to DOM element
// references, with TTL-based mark-sweep eviction. Each content-script
// instance (one per tab, reset on navigation) owns exactly one
// Registry.
//
// The source models this with a JS WeakRef/FinalizationRegistry pair;
// Go's weak.Pointer[T] (stdlib, 1.24+) is the idiomatic analog — a
// weak reference that does not keep its target alive, checked with
// Value() rather than observed through a callback.
package handle

import (
	"fmt"
	"sync"
	"time"
	"weak"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
)

type entry struct {
	ref          weak.Pointer[domhost.Element]
	lastAccessed time.Time
}

// Registry is the handle table for a single tab's content-script
// instance. Per spec §3 invariant (ii), a Registry is never shared
// across tabs and is discarded wholesale on navigation.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	next    int64

	ttl             time.Duration
	cleanupInterval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates an empty Registry and starts its background sweeper.
func New(ttl, cleanupInterval time.Duration) *Registry {
	r := &Registry{
		entries:         make(map[string]*entry),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}
	r.startSweeper()
	return r
}

// Store mints a new handle id for el and returns it. Ids are
// monotonically increasing within this Registry, matching the
// `el_<n>` form named in spec §3.
func (r *Registry) Store(el *domhost.Element) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := fmt.Sprintf("el_%d", r.next)
	r.entries[id] = &entry{
		ref:          weak.Make(el),
		lastAccessed: time.Now(),
	}
	return id
}

// Get resolves id to its element. Per spec §3 invariant (iii), a
// miss is always a typed error, never a silent nil: handle-not-found
// if the id was never minted (or was swept for inactivity),
// handle-gc'd if the weak reference's target has been collected
// (the element left the DOM and nothing else in the registry's tab
// retains it).
func (r *Registry) Get(id string) (*domhost.Element, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, protocol.ErrHandleNotFound
	}
	e.lastAccessed = time.Now()
	r.mu.Unlock()

	el := e.ref.Value()
	if el == nil {
		return nil, protocol.ErrHandleGCd
	}
	return el, nil
}

// Reconfigure changes the TTL/cleanup interval and restarts the
// sweeper, per spec §4.3 ("config changes... take effect by
// restarting the sweeper").
func (r *Registry) Reconfigure(ttl, cleanupInterval time.Duration) {
	r.stopSweeper()
	r.mu.Lock()
	r.ttl = ttl
	r.cleanupInterval = cleanupInterval
	r.mu.Unlock()
	r.stop = make(chan struct{})
	r.startSweeper()
}

// Close stops the sweeper permanently. Called when the tab's
// content-script instance is torn down (navigation or tab close).
func (r *Registry) Close() {
	r.stopSweeper()
}

func (r *Registry) startSweeper() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *Registry) stopSweeper() {
	close(r.stop)
	r.wg.Wait()
}

// sweep removes any handle not accessed within ttl or whose weak
// reference is already empty, per spec §4.3.
func (r *Registry) sweep() {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.ref.Value() == nil || now.Sub(e.lastAccessed) > r.ttl {
			delete(r.entries, id)
		}
	}
}

// Len reports the number of live handles, for tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
