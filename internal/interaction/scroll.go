package interaction

import (
	"context"
	"math"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// ScrollResult is the structured outcome of the human-scroll pipeline.
type ScrollResult struct {
	Scrolled   bool
	Reason     protocol.RefusalReason
	DeltaX     float64
	DeltaY     float64
	FinalX     float64
	FinalY     float64
}

// ScrollOptions carries per-request scroll tuning and the target
// position, per spec §4.3 "Human-scroll pipeline".
type ScrollOptions struct {
	Scroll tuning.Scroll
	// TargetY is the absolute scrollTop the caller wants to end near;
	// the pipeline approaches it in flicks rather than jumping.
	TargetY float64
	// Within optionally scopes the scroll to a scrollable container
	// instead of the document; Scroll resolves it through e.Resolve.
	Within *Target
}

// Scroll runs the human-scroll pipeline (spec §4.3): a sequence of
// "flicks" approaching TargetY, each with a randomised distance, a
// flick delay and a chance of a small back-scroll correction, followed
// by a settle delay.
func (e *Engine) Scroll(ctx context.Context, opts ScrollOptions) (ScrollResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var container *domhost.Element
	if opts.Within != nil {
		el, err := e.Resolve(*opts.Within)
		if err != nil {
			return ScrollResult{}, err
		}
		container = el
	}

	startY := e.scrollTopOf(container)
	remaining := opts.TargetY - startY
	if math.Abs(remaining) < 1 {
		return ScrollResult{Scrolled: true, FinalX: e.scrollLeftOf(container), FinalY: startY}, nil
	}

	cfg := opts.Scroll
	minFlick, maxFlick := float64(cfg.AmountMin), float64(cfg.AmountMax)
	if minFlick == 0 && maxFlick == 0 {
		minFlick, maxFlick = 100, 300
	}

	current := startY
	direction := 1.0
	if remaining < 0 {
		direction = -1.0
	}
	remainingAbs := math.Abs(remaining)

	for remainingAbs > 1 {
		flick := e.randFloat(minFlick, maxFlick)
		if flick > remainingAbs {
			flick = remainingAbs
		}
		current += direction * flick
		e.setScrollPos(container, current)
		e.doc.Dispatch(domhost.DispatchedEvent{Type: "scroll", Target: container, At: time.Now(), Detail: map[string]any{"scrollTop": current}})

		if err := sleep(ctx, e.randDuration(ms(cfg.FlickDelayMinMs), ms(cfg.FlickDelayMaxMs))); err != nil {
			return ScrollResult{}, err
		}

		remainingAbs -= flick

		if e.rng.Float64() < cfg.BackScrollChance && remainingAbs > float64(cfg.BackScrollMax) {
			back := e.randFloat(float64(cfg.BackScrollMin), float64(cfg.BackScrollMax))
			current -= direction * back
			remainingAbs += back
			e.setScrollPos(container, current)
			e.doc.Dispatch(domhost.DispatchedEvent{Type: "scroll", Target: container, At: time.Now(), Detail: map[string]any{"scrollTop": current}})
			if err := sleep(ctx, e.randDuration(ms(cfg.FlickDelayMinMs), ms(cfg.FlickDelayMaxMs))); err != nil {
				return ScrollResult{}, err
			}
		}
	}

	settle := e.randDuration(ms(cfg.SettleDelayMinMs), ms(cfg.SettleDelayMaxMs))
	if err := sleep(ctx, settle); err != nil {
		return ScrollResult{}, err
	}

	return ScrollResult{
		Scrolled: true,
		DeltaX:   0,
		DeltaY:   current - startY,
		FinalX:   e.scrollLeftOf(container),
		FinalY:   current,
	}, nil
}

func (e *Engine) scrollTopOf(container *domhost.Element) float64 {
	if container == nil {
		return e.doc.ScrollPosition().Y
	}
	return container.ScrollTop
}

func (e *Engine) scrollLeftOf(container *domhost.Element) float64 {
	if container == nil {
		return e.doc.ScrollPosition().X
	}
	return container.ScrollLeft
}

func (e *Engine) setScrollPos(container *domhost.Element, y float64) {
	if container == nil {
		e.doc.SetScrollPosition(domhost.Point{X: e.doc.ScrollPosition().X, Y: y})
		return
	}
	container.ScrollTop = y
}

// FindScrollable implements dom.findScrollable (spec §4.3 query
// actions): the nearest ancestor of el (or el itself) whose content
// overflows its box, used by callers that want to scroll a specific
// container rather than the document.
func (e *Engine) FindScrollable(target Target) (*domhost.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, err := e.Resolve(target)
	if err != nil {
		return nil, err
	}
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.ScrollHeight > cur.Box.Height || cur.ScrollWidth > cur.Box.Width {
			return cur, nil
		}
	}
	return nil, protocol.ErrElementNotFound
}
