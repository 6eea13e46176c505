package interaction

import (
	"context"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
)

// ElementInfo is the JSON-friendly projection of an Element returned
// by the dom.* read actions — never the Element itself, which is
// reachable only through a handle.
type ElementInfo struct {
	Tag        string            `json:"tag"`
	ID         string            `json:"id,omitempty"`
	Classes    []string          `json:"classes,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Text       string            `json:"text,omitempty"`
	Value      string            `json:"value,omitempty"`
	Box        domhost.Rect      `json:"box"`
}

func infoOf(el *domhost.Element) ElementInfo {
	return ElementInfo{
		Tag:        el.Tag,
		ID:         el.ID,
		Classes:    el.Classes,
		Attributes: el.Attributes,
		Text:       el.Text,
		Value:      el.Value,
		Box:        el.Box,
	}
}

// QuerySelector implements dom.querySelector: the handle of the first
// match, or ErrElementNotFound.
func (e *Engine) QuerySelector(selector string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	matches := e.doc.QuerySelectorAll(selector)
	if len(matches) == 0 {
		return "", protocol.ErrElementNotFound
	}
	return e.handles.Store(matches[0]), nil
}

// QuerySelectorAll implements dom.querySelectorAll: a handle per
// match, in document order. An empty slice is not an error.
func (e *Engine) QuerySelectorAll(selector string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	matches := e.doc.QuerySelectorAll(selector)
	out := make([]string, len(matches))
	for i, el := range matches {
		out[i] = e.handles.Store(el)
	}
	return out
}

// QuerySelectorWithin implements dom.querySelectorWithin: the first
// match of selector among root's descendants.
func (e *Engine) QuerySelectorWithin(root Target, selector string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rootEl, err := e.Resolve(root)
	if err != nil {
		return "", err
	}
	for _, m := range e.doc.QuerySelectorAll(selector) {
		if isDescendant(rootEl, m) {
			return e.handles.Store(m), nil
		}
	}
	return "", protocol.ErrElementNotFound
}

// QuerySelectorAllWithin implements dom.querySelectorAllWithin.
func (e *Engine) QuerySelectorAllWithin(root Target, selector string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rootEl, err := e.Resolve(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range e.doc.QuerySelectorAll(selector) {
		if isDescendant(rootEl, m) {
			out = append(out, e.handles.Store(m))
		}
	}
	return out, nil
}

func isDescendant(root, el *domhost.Element) bool {
	if root == el {
		return true
	}
	for p := el.Parent; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// WaitForSelector implements dom.waitForSelector (spec §4.3): polls
// until selector matches at least once or the deadline passes, in
// which case it returns ("", nil) — the null-sentinel result, not an
// error, so a caller can distinguish "never appeared" from a transport
// failure.
func (e *Engine) WaitForSelector(ctx context.Context, selector string, pollInterval time.Duration) (string, error) {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	for {
		if handleID, err := e.QuerySelector(selector); err == nil {
			return handleID, nil
		}
		select {
		case <-ctx.Done():
			return "", nil
		case <-time.After(pollInterval):
		}
	}
}

// BoundingBox implements dom.boundingBox.
func (e *Engine) BoundingBox(target Target) (domhost.Rect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, err := e.Resolve(target)
	if err != nil {
		return domhost.Rect{}, err
	}
	return el.Box, nil
}

// GetAttribute implements dom.getAttribute. A missing attribute is
// reported via the bool, not an error.
func (e *Engine) GetAttribute(target Target, name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, err := e.Resolve(target)
	if err != nil {
		return "", false, err
	}
	v, ok := el.Attr(name)
	return v, ok, nil
}

// GetProperty implements dom.getProperty for the small set of DOM
// properties the fake host models directly (value, textContent,
// tagName); anything else is the caller's responsibility via
// dom.evaluate against the real page.
func (e *Engine) GetProperty(target Target, name string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, err := e.Resolve(target)
	if err != nil {
		return nil, err
	}
	switch name {
	case "value":
		return el.Value, nil
	case "textContent", "innerText":
		return el.Text, nil
	case "tagName":
		return el.Tag, nil
	case "id":
		return el.ID, nil
	default:
		return nil, nil
	}
}

// GetHTML implements dom.getHTML.
func (e *Engine) GetHTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.OuterHTML()
}

// ElementHTML implements dom.elementHTML: the outerHTML of a single
// element, approximated from its recorded fields since the fake host
// keeps no literal markup string per node.
func (e *Engine) ElementHTML(target Target) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, err := e.Resolve(target)
	if err != nil {
		return "", err
	}
	return renderElement(el), nil
}

func renderElement(el *domhost.Element) string {
	out := "<" + el.Tag
	if el.ID != "" {
		out += ` id="` + el.ID + `"`
	}
	out += ">" + el.Text + "</" + el.Tag + ">"
	return out
}

// QueryAllInfo implements dom.queryAllInfo: selector match plus a
// JSON-friendly snapshot of each match's fields, for callers that want
// the data without a round trip per handle.
func (e *Engine) QueryAllInfo(selector string) []ElementInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	matches := e.doc.QuerySelectorAll(selector)
	out := make([]ElementInfo, len(matches))
	for i, el := range matches {
		out[i] = infoOf(el)
	}
	return out
}

// BatchQuery implements dom.batchQuery: runs several selectors in one
// round trip, returning the matches keyed by selector.
func (e *Engine) BatchQuery(selectors []string) map[string][]ElementInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]ElementInfo, len(selectors))
	for _, sel := range selectors {
		matches := e.doc.QuerySelectorAll(sel)
		infos := make([]ElementInfo, len(matches))
		for i, el := range matches {
			infos[i] = infoOf(el)
		}
		out[sel] = infos
	}
	return out
}

// DiscoverElements implements dom.discoverElements: every interactive
// element (links, buttons, inputs, selects, textareas, and anything
// with an explicit tabindex or role) currently connected to the
// document, for callers building their own selector strategy.
func (e *Engine) DiscoverElements() []ElementInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []ElementInfo
	for _, el := range e.doc.QuerySelectorAll("*") {
		if !el.Connected {
			continue
		}
		if isInteractiveTag(el.Tag) {
			out = append(out, infoOf(el))
			continue
		}
		if _, ok := el.Attr("tabindex"); ok {
			out = append(out, infoOf(el))
			continue
		}
		if _, ok := el.Attr("role"); ok {
			out = append(out, infoOf(el))
		}
	}
	return out
}

func isInteractiveTag(tag string) bool {
	switch tag {
	case "a", "button", "input", "select", "textarea":
		return true
	default:
		return false
	}
}
