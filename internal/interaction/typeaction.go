package interaction

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// TypeResult mirrors ClickResult for the human-type pipeline.
type TypeResult struct {
	Typed  bool
	Reason protocol.RefusalReason
}

// ModifierState tracks Meta/Control/Shift/Alt across calls within one
// content-script instance, per spec §4.3 ("Human-type pipeline" /
// "Keyboard actions").
type ModifierState struct {
	Meta, Control, Shift, Alt bool
}

var specialKeyPattern = regexp.MustCompile(`\{([A-Za-z]+)\}`)

// tokenizeTypeText splits text into plain characters and {KeyName}
// special-key tokens, per spec §4.3.
func tokenizeTypeText(text string) []string {
	var tokens []string
	last := 0
	for _, loc := range specialKeyPattern.FindAllStringIndex(text, -1) {
		for _, r := range text[last:loc[0]] {
			tokens = append(tokens, string(r))
		}
		tokens = append(tokens, text[loc[0]:loc[1]])
		last = loc[1]
	}
	for _, r := range text[last:] {
		tokens = append(tokens, string(r))
	}
	return tokens
}

func isSpecialToken(tok string) bool {
	return len(tok) > 1 && strings.HasPrefix(tok, "{") && strings.HasSuffix(tok, "}")
}

func specialKeyName(tok string) string {
	return strings.TrimSuffix(strings.TrimPrefix(tok, "{"), "}")
}

// TypeOptions carries the per-request tuning for one human.type call.
type TypeOptions struct {
	Type        tuning.Type
	Click       tuning.Click
	Avoid       tuning.Ruleset
	GlobalAvoid tuning.Ruleset
}

// Type runs the human-type pipeline (spec §4.3 "Human-type pipeline").
// If the target is not already focused it first runs the full
// human-click pipeline on it, so any click refusal also surfaces here.
func (e *Engine) Type(ctx context.Context, target Target, text string, mods *ModifierState, opts TypeOptions) (TypeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, err := e.Resolve(target)
	if err != nil {
		return TypeResult{}, err
	}

	avoid := effectiveAvoid(opts.GlobalAvoid, opts.Avoid)
	if reason, hit := checkAvoid(e.doc, el, avoid); hit {
		return TypeResult{Reason: reason}, nil
	}

	if !el.Focused {
		e.mu.Unlock()
		res, err := e.Click(ctx, target, ClickOptions{Click: opts.Click, Avoid: opts.Avoid, GlobalAvoid: opts.GlobalAvoid})
		e.mu.Lock()
		if err != nil {
			return TypeResult{}, err
		}
		if !res.Clicked {
			return TypeResult{Reason: res.Reason}, nil
		}
	}

	for _, tok := range tokenizeTypeText(text) {
		if err := e.typeToken(ctx, el, tok, mods, opts.Type); err != nil {
			return TypeResult{}, err
		}
		delay := e.typeDelay(opts.Type)
		if err := sleep(ctx, delay); err != nil {
			return TypeResult{}, err
		}
		if e.rng.Float64() < opts.Type.PauseChance {
			pause := e.randDuration(ms(opts.Type.PauseMinMs), ms(opts.Type.PauseMaxMs))
			if err := sleep(ctx, pause); err != nil {
				return TypeResult{}, err
			}
		}
	}

	return TypeResult{Typed: true}, nil
}

func (e *Engine) typeDelay(cfg tuning.Type) time.Duration {
	base := e.randDuration(ms(cfg.BaseDelayMinMs), ms(cfg.BaseDelayMaxMs))
	variance := 1 + (e.rng.Float64()*2-1)*cfg.Variance
	d := time.Duration(float64(base) * variance)
	if d < 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return d
}

func (e *Engine) typeToken(ctx context.Context, el *domhost.Element, tok string, mods *ModifierState, cfg tuning.Type) error {
	now := time.Now()
	if isSpecialToken(tok) {
		key := specialKeyName(tok)
		switch key {
		case "Meta", "Control", "Shift", "Alt":
			setModifier(mods, key, true)
			return nil
		case "Backspace":
			el.Value = trimLastRune(el.Value)
		case "Delete":
			// No selection model in the fake host beyond caret-at-end;
			// Delete at end of value is a no-op, matching a real input.
		case "Enter":
			e.doc.Dispatch(domhost.DispatchedEvent{Type: "change", Target: el, At: now})
		case "ArrowUp", "ArrowDown":
			// No select-element navigation is modelled: the selected
			// option does not change; only keydown/keyup are emitted.
		default:
		}
		e.doc.Dispatch(domhost.DispatchedEvent{Type: "keydown", Target: el, At: now, Detail: map[string]any{"key": key}})
		e.doc.Dispatch(domhost.DispatchedEvent{Type: "keyup", Target: el, At: now, Detail: map[string]any{"key": key}})
		return nil
	}

	e.doc.Dispatch(domhost.DispatchedEvent{Type: "keydown", Target: el, At: now, Detail: map[string]any{"key": tok}})
	e.doc.Dispatch(domhost.DispatchedEvent{Type: "keypress", Target: el, At: now, Detail: map[string]any{"key": tok}})
	el.Value += tok
	e.doc.Dispatch(domhost.DispatchedEvent{Type: "input", Target: el, At: now, Detail: map[string]any{"value": el.Value}})
	e.doc.Dispatch(domhost.DispatchedEvent{Type: "keyup", Target: el, At: now, Detail: map[string]any{"key": tok}})
	return nil
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}

func setModifier(mods *ModifierState, key string, v bool) {
	if mods == nil {
		return
	}
	switch key {
	case "Meta":
		mods.Meta = v
	case "Control":
		mods.Control = v
	case "Shift":
		mods.Shift = v
	case "Alt":
		mods.Alt = v
	}
}

// ClearInputResult mirrors ClickResult for human.clearInput.
type ClearInputResult struct {
	Cleared bool
	Reason  protocol.RefusalReason
}

// ClearInput implements spec §4.3 "Human-clearInput": one human click
// with ClickCount 3, a 100-250ms pause, then the value is set to "" and
// a single input event is dispatched. No Backspace keydown/keyup is
// dispatched.
func (e *Engine) ClearInput(ctx context.Context, target Target, opts ClickOptions) (ClearInputResult, error) {
	opts.ClickCount = 3
	res, err := e.Click(ctx, target, opts)
	if err != nil {
		return ClearInputResult{}, err
	}
	if !res.Clicked {
		return ClearInputResult{Reason: res.Reason}, nil
	}

	if err := sleep(ctx, e.randDuration(100*time.Millisecond, 250*time.Millisecond)); err != nil {
		return ClearInputResult{}, err
	}

	e.mu.Lock()
	el, err := e.Resolve(target)
	if err != nil {
		e.mu.Unlock()
		return ClearInputResult{}, err
	}
	el.Value = ""
	e.doc.Dispatch(domhost.DispatchedEvent{Type: "input", Target: el, At: time.Now(), Detail: map[string]any{"value": ""}})
	e.mu.Unlock()

	return ClearInputResult{Cleared: true}, nil
}
