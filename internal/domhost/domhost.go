// Package domhost abstracts "the live page" that the interaction
// engine reads and writes. In the source this is simply the browser's
// own DOM, reached directly from a content script; a systems-language
// port has no browser to run inside, so this package is the seam the
// real extension's content script would sit behind, and
// internal/domhost/fake is the in-memory double that lets
// internal/interaction be exercised and tested without one (spec §9
// open-question territory: the spec doesn't name this seam because the
// source never needed it).
package domhost

import "time"

// Rect is a bounding box in viewport coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// Empty reports whether both the rect's width and height are zero.
func (r Rect) Empty() bool { return r.Width == 0 && r.Height == 0 }

// Point is a viewport coordinate pair.
type Point struct {
	X, Y float64
}

// DispatchedEvent records one synthetic event for assertions in tests.
type DispatchedEvent struct {
	Type      string
	Target    *Element
	X, Y      float64
	At        time.Time
	Detail    map[string]any
}

// Document is the per-tab page the interaction engine operates
// against: a query surface plus the handful of whole-page operations
// (title, URL, outer HTML, hit-testing) the read-only action set and
// the human pipelines need.
type Document interface {
	// QuerySelectorAll returns every element matching selector, in
	// document order. An empty, non-nil slice means "no matches".
	QuerySelectorAll(selector string) []*Element
	// ElementFromPoint returns the topmost element whose box contains
	// (x, y), honouring stacking order — this is what makes overlay
	// coverage work: a transparent overlay positioned above a hidden
	// target wins the hit test.
	ElementFromPoint(x, y float64) *Element
	// Title and URL report page-level state.
	Title() string
	URL() string
	// OuterHTML renders the full document, used by dom.getHTML.
	OuterHTML() string
	// Dispatch synthesises an event on target and records it so tests
	// can observe what actually happened.
	Dispatch(evt DispatchedEvent)
	// Events returns every event dispatched so far, for test
	// assertions (e.g. "no click event was dispatched on the button").
	Events() []DispatchedEvent
	// ScrollPosition and SetScrollPosition report and move the
	// document's own scroll offset, used by the human-scroll pipeline
	// when it is not scoped to a specific scrollable container.
	ScrollPosition() Point
	SetScrollPosition(p Point)
}

// Element is a concrete DOM node reference. It is the type a Handle
// holds a weak.Pointer to (internal/handle), so it must be a
// heap-allocated struct whose lifetime is otherwise governed only by
// the Document's own tree — once a fake Document drops an element
// from its tree and nothing else in the registry holds a strong
// reference, the weak pointer observes it as collected, mirroring a
// real page's node leaving the DOM.
type Element struct {
	Tag        string
	ID         string
	Classes    []string
	Attributes map[string]string
	Text       string
	Value      string
	Box        Rect
	Style      Style
	Focused    bool
	Connected  bool // false once removed from the tree (navigation, JS removal)

	// ScrollTop/ScrollLeft are the container's own scroll offset;
	// ScrollHeight/ScrollWidth are its content size, used by
	// dom.findScrollable to pick the nearest overflowing ancestor.
	ScrollTop, ScrollLeft     float64
	ScrollHeight, ScrollWidth float64

	Parent   *Element
	Children []*Element
}

// Style holds the computed-style fields the trap-detection ladder
// inspects (spec §4.3 step 3).
type Style struct {
	Opacity        float64 // 1 by default
	VisibilityHidden bool
	Display        string // "" means a normal box; "none" or "contents" are meaningful
	HasOffsetParent bool
}

// Attr returns an attribute value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	if e.Attributes == nil {
		return "", false
	}
	v, ok := e.Attributes[name]
	return v, ok
}

// HasClass reports whether class is one of e's classes.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}
