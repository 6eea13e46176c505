package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/interaction"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// configOverlay is the already-merged behaviour overlay the broker
// attaches under params.config for human.* actions (spec §4.1). It is
// absent for dom.* actions, which fall back to the raw tuning
// snapshot.
type configOverlay struct {
	Click  *tuning.Click  `json:"click,omitempty"`
	Type   *tuning.Type   `json:"type,omitempty"`
	Scroll *tuning.Scroll `json:"scroll,omitempty"`
}

type targetParam struct {
	HandleID string `json:"handleId,omitempty"`
	Selector string `json:"selector,omitempty"`
}

func (t targetParam) toTarget() interaction.Target {
	return interaction.Target{HandleID: t.HandleID, Selector: t.Selector}
}

// params is the union of every field any action namespace might send.
// Unmarshalled once per request; each route case reads only the
// fields its own action uses.
type params struct {
	Selector   string          `json:"selector,omitempty"`
	HandleID   string          `json:"handleId,omitempty"`
	Within     *targetParam    `json:"within,omitempty"`
	Selectors  []string        `json:"selectors,omitempty"`
	Text       string          `json:"text,omitempty"`
	Name       string          `json:"name,omitempty"`
	Key        string          `json:"key,omitempty"`
	URL        string          `json:"url,omitempty"`
	URLFilter  string          `json:"urlFilter,omitempty"`
	Width      int             `json:"width,omitempty"`
	Height     int             `json:"height,omitempty"`
	TargetY    float64         `json:"targetY,omitempty"`
	ClickCount int             `json:"clickCount,omitempty"`
	PollMs     int64           `json:"pollMs,omitempty"`
	Mod        string          `json:"mod,omitempty"`
	On         bool            `json:"on,omitempty"`
	Fn         string          `json:"fn,omitempty"`
	Args       []any           `json:"args,omitempty"`
	X          float64         `json:"x,omitempty"`
	Y          float64         `json:"y,omitempty"`
	Cookie     *cookieParam    `json:"cookie,omitempty"`
	Avoid      tuning.Ruleset  `json:"avoid,omitempty"`
	Config     *configOverlay  `json:"config,omitempty"`
	Framework  *tuning.Tuning  `json:"__frameworkConfig,omitempty"`
	Patch      *tuning.Tuning  `json:"patch,omitempty"`
}

type cookieParam struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
	SameSite string `json:"sameSite"`
	Expires  int64  `json:"expires"`
}

func decodeParams(raw json.RawMessage) (params, error) {
	var p params
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return params{}, err
	}
	return p, nil
}

// route implements spec §4.2's three execution paths: browser-native
// (tabs.*/cookies.*/frames.list/tabs.screenshot) against BrowserHost
// directly, tab-scoped dom.*/human.*/framework.* against the tab's
// interaction.Engine, and page-world dom.evaluate/elementEvaluate/
// evaluateHandle through the CSP ladder (csp.go).
func (br *Bridge) route(ctx context.Context, tabID int64, action protocol.Action, raw json.RawMessage) (any, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return nil, protocol.ErrInvalidParams
	}

	switch action {
	case protocol.ActionTabsList:
		return br.host.ListTabs(ctx)
	case protocol.ActionTabsNavigate:
		tab, err := br.host.Navigate(ctx, tabID, p.URL)
		if err != nil {
			return nil, err
		}
		br.detachTab(tabID)
		br.emitEvent(protocol.EventURLChanged, protocol.URLChangedPayload{TabID: tabID, URL: tab.URL})
		return tab, nil
	case protocol.ActionTabsCreate:
		return br.host.CreateTab(ctx, p.URL)
	case protocol.ActionTabsClose:
		br.detachTab(tabID)
		return struct{}{}, br.host.CloseTab(ctx, tabID)
	case protocol.ActionTabsActivate:
		return br.host.ActivateTab(ctx, tabID)
	case protocol.ActionTabsReload:
		br.detachTab(tabID)
		return br.host.ReloadTab(ctx, tabID)
	case protocol.ActionTabsWaitForNav:
		return br.waitForNavigation(ctx, tabID)
	case protocol.ActionTabsSetViewport:
		if err := br.host.SetViewport(ctx, tabID, p.Width, p.Height); err != nil {
			return nil, err
		}
		if inst, ok := br.liveTab(tabID); ok {
			inst.engine.SetViewport(interaction.ViewportSize{Width: float64(p.Width), Height: float64(p.Height)})
		}
		return struct{}{}, nil
	case protocol.ActionTabsScreenshot:
		return br.screenshot(ctx, tabID)

	case protocol.ActionCookiesGetAll:
		return br.host.GetAllCookies(ctx, p.URLFilter)
	case protocol.ActionCookiesSet:
		if p.Cookie == nil {
			return nil, protocol.ErrInvalidParams
		}
		c := *p.Cookie
		if err := br.host.SetCookie(ctx, Cookie{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Secure: c.Secure, HTTPOnly: c.HTTPOnly, SameSite: c.SameSite, Expires: c.Expires,
		}); err != nil {
			return nil, err
		}
		br.emitEvent(protocol.EventCookiesChanged, protocol.CookiesChangedPayload{Count: 1})
		return struct{}{}, nil

	case protocol.ActionFramesList:
		return br.host.ListFrames(ctx, tabID)
	}

	if isEvaluateAction(action) {
		return br.evaluate(ctx, tabID, action, p)
	}

	inst, err := br.tabFor(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return br.dispatchTabScoped(ctx, inst, action, p)
}

func (br *Bridge) liveTab(tabID int64) (*tabInstance, bool) {
	br.mu.Lock()
	defer br.mu.Unlock()
	inst, ok := br.tabs[tabID]
	return inst, ok
}

// waitForNavigation polls GetTab until its Status flips to "complete"
// or 30s elapse, per spec §4.2's navigation wait.
func (br *Bridge) waitForNavigation(ctx context.Context, tabID int64) (Tab, error) {
	deadline := time.Now().Add(30 * time.Second)
	for {
		tab, err := br.host.GetTab(ctx, tabID)
		if err != nil {
			return Tab{}, err
		}
		if tab.Status == "complete" {
			return tab, nil
		}
		if time.Now().After(deadline) {
			return tab, protocol.ErrCommandTimeout
		}
		select {
		case <-ctx.Done():
			return Tab{}, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// dispatchTabScoped implements spec §4.2 execution path 2: every
// dom.*/human.*/framework.* action except the three evaluate actions,
// all routed to the tab's interaction.Engine. Content-script-not-ready
// is handled one level up, in tabFor, which injects on demand.
func (br *Bridge) dispatchTabScoped(ctx context.Context, inst *tabInstance, action protocol.Action, p params) (any, error) {
	snapshot := tuning.Default()
	if p.Framework != nil {
		snapshot = *p.Framework
	}

	switch action {
	case protocol.ActionDOMQuerySelector:
		return wrapHandle(inst.engine.QuerySelector(p.Selector))
	case protocol.ActionDOMQuerySelectorAll:
		return inst.engine.QuerySelectorAll(p.Selector), nil
	case protocol.ActionDOMQuerySelectorWithin:
		return wrapHandle(inst.engine.QuerySelectorWithin(withinTarget(p), p.Selector))
	case protocol.ActionDOMQuerySelectorAllWithin:
		return inst.engine.QuerySelectorAllWithin(withinTarget(p), p.Selector)
	case protocol.ActionDOMWaitForSelector:
		poll := time.Duration(p.PollMs) * time.Millisecond
		if poll <= 0 {
			poll = 100 * time.Millisecond
		}
		return wrapHandle(inst.engine.WaitForSelector(ctx, p.Selector, poll))
	case protocol.ActionDOMBoundingBox:
		return inst.engine.BoundingBox(targetOf(p))
	case protocol.ActionDOMGetAttribute:
		val, ok, err := inst.engine.GetAttribute(targetOf(p), p.Name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"value": val, "present": ok}, nil
	case protocol.ActionDOMGetProperty:
		return inst.engine.GetProperty(targetOf(p), p.Name)
	case protocol.ActionDOMGetHTML:
		return inst.engine.GetHTML(), nil
	case protocol.ActionDOMElementHTML:
		return inst.engine.ElementHTML(targetOf(p))
	case protocol.ActionDOMQueryAllInfo:
		return inst.engine.QueryAllInfo(p.Selector), nil
	case protocol.ActionDOMBatchQuery:
		return inst.engine.BatchQuery(p.Selectors), nil
	case protocol.ActionDOMFindScrollable:
		el, err := inst.engine.FindScrollable(targetOf(p))
		if err != nil {
			return nil, err
		}
		return map[string]string{"handleId": inst.engine.Registry().Store(el)}, nil
	case protocol.ActionDOMDiscoverElements:
		return inst.engine.DiscoverElements(), nil

	case protocol.ActionDOMClick, protocol.ActionHumanClick:
		opts := defaultClickOptions(snapshot, p.Avoid, p.Config)
		opts.ClickCount = p.ClickCount
		if opts.ClickCount == 0 {
			opts.ClickCount = 1
		}
		return inst.engine.Click(ctx, targetOf(p), opts)
	case protocol.ActionDOMMouseMoveTo:
		box, err := inst.engine.BoundingBox(targetOf(p))
		if err != nil {
			return nil, err
		}
		inst.engine.SeedCursor(domhost.Point{X: box.X + box.Width/2, Y: box.Y + box.Height/2})
		return struct{}{}, nil
	case protocol.ActionDOMFocus:
		el, err := inst.engine.Resolve(targetOf(p))
		if err != nil {
			return nil, err
		}
		el.Focused = true
		return struct{}{}, nil
	case protocol.ActionDOMType, protocol.ActionHumanType:
		opts := defaultTypeOptions(snapshot, p.Avoid, p.Config)
		return inst.engine.Type(ctx, targetOf(p), p.Text, &inst.mods, opts)
	case protocol.ActionDOMKeyDown, protocol.ActionDOMKeyUp:
		if isModifierKey(p.Mod) {
			setModifierField(&inst.mods, p.Mod, action == protocol.ActionDOMKeyDown)
			return struct{}{}, nil
		}
		fallthrough
	case protocol.ActionDOMKeyPress:
		opts := defaultTypeOptions(snapshot, p.Avoid, p.Config)
		token := "{" + p.Key + "}"
		return inst.engine.Type(ctx, targetOf(p), token, &inst.mods, opts)
	case protocol.ActionDOMScroll, protocol.ActionHumanScroll:
		var within *interaction.Target
		if p.Within != nil {
			t := p.Within.toTarget()
			within = &t
		}
		return inst.engine.Scroll(ctx, defaultScrollOptions(snapshot, p.Config, p.TargetY, within))
	case protocol.ActionDOMSetValue:
		opts := defaultTypeOptions(snapshot, p.Avoid, p.Config)
		return inst.engine.Type(ctx, targetOf(p), p.Text, &inst.mods, opts)
	case protocol.ActionHumanClearInput:
		opts := defaultClickOptions(snapshot, p.Avoid, p.Config)
		return inst.engine.ClearInput(ctx, targetOf(p), opts)

	case protocol.ActionDOMSetDebug:
		return struct{}{}, nil

	case protocol.ActionCursorGetPosition:
		return inst.engine.Cursor(), nil
	case protocol.ActionCursorReportPosition:
		inst.engine.SeedCursor(domhost.Point{X: p.X, Y: p.Y})
		return struct{}{}, nil

	case protocol.ActionFrameworkGetConfig:
		return br.store.Get(), nil
	case protocol.ActionFrameworkSetConfig:
		if p.Patch == nil {
			return nil, protocol.ErrInvalidParams
		}
		br.store.Merge(*p.Patch)
		return br.store.Get(), nil
	case protocol.ActionFrameworkReload:
		return br.store.Get(), nil
	}

	return nil, protocol.ErrUnknownAction
}

func targetOf(p params) interaction.Target {
	if p.HandleID != "" {
		return interaction.Target{HandleID: p.HandleID}
	}
	return interaction.Target{Selector: p.Selector}
}

func withinTarget(p params) interaction.Target {
	if p.Within == nil {
		return interaction.Target{}
	}
	return p.Within.toTarget()
}

func wrapHandle(handleID string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]string{"handleId": handleID}, nil
}

func isModifierKey(name string) bool {
	switch name {
	case "Meta", "Control", "Shift", "Alt":
		return true
	}
	return false
}

func setModifierField(mods *interaction.ModifierState, name string, v bool) {
	switch name {
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

func isEvaluateAction(a protocol.Action) bool {
	switch a {
	case protocol.ActionDOMEvaluate, protocol.ActionDOMElementEvaluate, protocol.ActionDOMEvaluateHandle:
		return true
	}
	return false
}
