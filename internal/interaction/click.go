package interaction

import (
	"context"
	"math"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// ClickResult is the structured, non-error outcome of the human-click
// pipeline (spec §7: refusals are a normal result, not an error).
type ClickResult struct {
	Clicked bool
	Reason  protocol.RefusalReason
	Detail  string
}

// ClickOptions carries the per-request tuning and avoid overlay for
// one human.click / dom.click call.
type ClickOptions struct {
	Click      tuning.Click
	Avoid      tuning.Ruleset
	GlobalAvoid tuning.Ruleset
	ClickCount int // 1 (default), 2 (dblclick), or 3 (select-all in text fields)
}

// Click runs the ordered human-click pipeline from spec §4.3 step 1-8.
// dom.click and human.click are the same call (spec §4.3: "mandatory
// coupling") — callers never get a separate synthetic-click path.
func (e *Engine) Click(ctx context.Context, target Target, opts ClickOptions) (ClickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, err := e.Resolve(target)
	if err != nil {
		return ClickResult{}, err
	}

	avoid := effectiveAvoid(opts.GlobalAvoid, opts.Avoid)
	if reason, hit := checkAvoid(e.doc, el, avoid); hit {
		return ClickResult{Reason: reason}, nil
	}
	if reason, hit := checkTraps(el); hit {
		return ClickResult{Reason: reason}, nil
	}

	if err := e.scrollIntoComfortableView(ctx, el); err != nil {
		return ClickResult{}, err
	}
	if !e.inComfortableBand(el.Box) {
		return ClickResult{Reason: protocol.ReasonOffScreen}, nil
	}

	clickCfg := opts.Click
	if err := e.approach(ctx, el, clickCfg); err != nil {
		return ClickResult{}, err
	}

	thinkDelay := e.randDuration(ms(clickCfg.ThinkDelayMinMs), ms(clickCfg.ThinkDelayMaxMs))
	if err := sleep(ctx, thinkDelay); err != nil {
		return ClickResult{}, err
	}

	if el.Box.Empty() {
		return ClickResult{Reason: protocol.ReasonElementDisappeared}, nil
	}
	shiftX := math.Abs(el.Box.X - e.lastKnownBox.X)
	shiftY := math.Abs(el.Box.Y - e.lastKnownBox.Y)
	maxShift := clickCfg.MaxShiftPx
	if maxShift == 0 {
		maxShift = 50
	}
	if shiftX > maxShift || shiftY > maxShift {
		return ClickResult{Reason: protocol.ReasonElementShifted}, nil
	}

	hitTarget := e.doc.ElementFromPoint(e.cursor.X, e.cursor.Y)
	if hitTarget == nil {
		// Physically impossible click: nothing under the cursor.
		return ClickResult{Clicked: false}, nil
	}

	e.doc.Dispatch(domhost.DispatchedEvent{Type: "mousedown", Target: hitTarget, X: e.cursor.X, Y: e.cursor.Y, At: time.Now()})
	hitTarget.Focused = true
	e.doc.Dispatch(domhost.DispatchedEvent{Type: "mouseup", Target: hitTarget, X: e.cursor.X, Y: e.cursor.Y, At: time.Now()})
	e.doc.Dispatch(domhost.DispatchedEvent{Type: "click", Target: hitTarget, X: e.cursor.X, Y: e.cursor.Y, At: time.Now()})

	if opts.ClickCount >= 2 {
		e.doc.Dispatch(domhost.DispatchedEvent{Type: "dblclick", Target: hitTarget, X: e.cursor.X, Y: e.cursor.Y, At: time.Now()})
	}
	if opts.ClickCount >= 3 && (hitTarget.Tag == "input" || hitTarget.Tag == "textarea") {
		e.doc.Dispatch(domhost.DispatchedEvent{
			Type: "setSelectionRange", Target: hitTarget, At: time.Now(),
			Detail: map[string]any{"start": 0, "end": len(hitTarget.Value)},
		})
	}

	return ClickResult{Clicked: true}, nil
}

func ms(n int64) time.Duration { return time.Duration(n) * time.Millisecond }

func (e *Engine) inComfortableBand(box domhost.Rect) bool {
	if box.Empty() {
		return false
	}
	top := box.Y
	if top+box.Height < 0 || top > e.viewport.Height {
		return false
	}
	frac := top / e.viewport.Height
	return frac >= 0.15 && frac <= 0.85
}

// scrollIntoComfortableView implements spec §4.3 step 4. The fake
// host has no real scroll mechanics, so "scrolling" here is modelled
// as waiting out the same delays a real smooth-scroll would take; a
// fixture whose box never satisfies inComfortableBand exhausts the
// 20-step budget and the caller reports off-screen.
func (e *Engine) scrollIntoComfortableView(ctx context.Context, el *domhost.Element) error {
	if e.inComfortableBand(el.Box) {
		return nil
	}
	if err := sleep(ctx, e.randDuration(400*time.Millisecond, 700*time.Millisecond)); err != nil {
		return err
	}
	for i := 0; i < 20 && !e.inComfortableBand(el.Box); i++ {
		if err := sleep(ctx, 50*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// approach implements spec §4.3 step 5: drift-if-close, Bézier
// movement with per-step mousemove dispatch, doubled frames on ~8% of
// steps.
func (e *Engine) approach(ctx context.Context, el *domhost.Element, cfg tuning.Click) error {
	target := e.centerPointWithin(el.Box)
	dist := math.Hypot(target.X-e.cursor.X, target.Y-e.cursor.Y)

	if dist < 80 {
		angle := e.rng.Float64() * 2 * math.Pi
		driftDist := e.randFloat(80, 200)
		drift := domhost.Point{
			X: e.cursor.X + driftDist*math.Cos(angle),
			Y: e.cursor.Y + driftDist*math.Sin(angle),
		}
		if err := e.movePath(ctx, e.bezierPath(e.cursor, drift)); err != nil {
			return err
		}
	}

	e.lastKnownBox = el.Box
	return e.movePath(ctx, e.bezierPath(e.cursor, target))
}

func (e *Engine) movePath(ctx context.Context, path []domhost.Point) error {
	for _, p := range path {
		e.cursor = p
		hit := e.doc.ElementFromPoint(p.X, p.Y)
		e.doc.Dispatch(domhost.DispatchedEvent{Type: "mousemove", Target: hit, X: p.X, Y: p.Y, At: time.Now()})
		if err := sleep(ctx, time.Millisecond); err != nil {
			return err
		}
		if e.rng.Float64() < 0.08 {
			if err := sleep(ctx, time.Millisecond); err != nil {
				return err
			}
		}
	}
	return nil
}
