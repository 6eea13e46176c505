package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/interaction"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// tabInstance is one content-script instance: an interaction.Engine
// bound to the tab's current document, plus the keyboard-modifier
// state the engine itself does not own. Torn down and rebuilt on every
// navigation, per spec §4.2 — "each navigation... tears down the old
// content-script instance and spins up a new one."
type tabInstance struct {
	mu     sync.Mutex
	tabID  int64
	engine *interaction.Engine
	mods   interaction.ModifierState
}

// attachTab builds a fresh tabInstance for tabID against doc, seeding
// its cursor from any previous instance for this tab (spec §4.2
// cursor persistence: "the page-bridge stashes the last reported
// cursor position... so the next instance can resume from the same
// point").
func (br *Bridge) attachTab(tabID int64, doc domhost.Document) *tabInstance {
	br.mu.Lock()
	defer br.mu.Unlock()

	tuned := br.store.Get()
	ttl := time.Duration(tuned.Handles.TTLMs) * time.Millisecond
	cleanup := time.Duration(tuned.Handles.CleanupIntervalMs) * time.Millisecond

	engine := interaction.New(doc, ttl, cleanup)
	if prev, ok := br.tabs[tabID]; ok {
		engine.SeedCursor(prev.engine.Cursor())
		prev.engine.Close()
	} else if cursor, ok := br.lastCursor[tabID]; ok {
		engine.SeedCursor(cursor)
	}

	inst := &tabInstance{tabID: tabID, engine: engine}
	br.tabs[tabID] = inst
	return inst
}

// detachTab tears down tabID's live instance, stashing its cursor so
// the next attachTab for the same tab resumes from it even if the tab
// briefly has no live instance at all (e.g. mid-navigation).
func (br *Bridge) detachTab(tabID int64) {
	br.mu.Lock()
	defer br.mu.Unlock()
	if inst, ok := br.tabs[tabID]; ok {
		br.lastCursor[tabID] = inst.engine.Cursor()
		inst.engine.Close()
		delete(br.tabs, tabID)
	}
}

// tabFor returns tabID's live instance, attaching one from the host's
// current document if none exists yet.
func (br *Bridge) tabFor(ctx context.Context, tabID int64) (*tabInstance, error) {
	br.mu.Lock()
	inst, ok := br.tabs[tabID]
	br.mu.Unlock()
	if ok {
		return inst, nil
	}

	if err := br.host.InjectContentScript(ctx, tabID, 0); err != nil {
		return nil, err
	}
	doc, err := br.host.Document(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return br.attachTab(tabID, doc), nil
}

func defaultClickOptions(snapshot tuning.Tuning, local tuning.Ruleset, overlay *configOverlay) interaction.ClickOptions {
	cfg := snapshot.Click
	if overlay != nil && overlay.Click != nil {
		cfg = *overlay.Click
	}
	return interaction.ClickOptions{Click: cfg, Avoid: local, GlobalAvoid: snapshot.Avoid}
}

func defaultTypeOptions(snapshot tuning.Tuning, local tuning.Ruleset, overlay *configOverlay) interaction.TypeOptions {
	cfg := snapshot.Type
	if overlay != nil && overlay.Type != nil {
		cfg = *overlay.Type
	}
	click := snapshot.Click
	if overlay != nil && overlay.Click != nil {
		click = *overlay.Click
	}
	return interaction.TypeOptions{Type: cfg, Click: click, Avoid: local, GlobalAvoid: snapshot.Avoid}
}

func defaultScrollOptions(snapshot tuning.Tuning, overlay *configOverlay, targetY float64, within *interaction.Target) interaction.ScrollOptions {
	cfg := snapshot.Scroll
	if overlay != nil && overlay.Scroll != nil {
		cfg = *overlay.Scroll
	}
	return interaction.ScrollOptions{Scroll: cfg, TargetY: targetY, Within: within}
}
