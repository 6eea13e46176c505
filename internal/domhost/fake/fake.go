// Package fake is an in-memory domhost.Document used by
// internal/interaction's tests and by cmd/ghostwire-bridge-sim. It
// supports the small slice of CSS selectors the interaction engine's
// own tests exercise (tag, #id, .class, [attr], [attr=value], compounded
// on one element; combinators are not supported) — no example in the retrieved pack
// ships a CSS selector engine, so this parser is hand-written and
// deliberately minimal; see DESIGN.md.
package fake

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ghostwire/ghostwire/internal/domhost"
)

// Doc is the in-memory document.
type Doc struct {
	mu     sync.Mutex
	root   *domhost.Element
	title  string
	url    string
	events []domhost.DispatchedEvent
	zIndex map[*domhost.Element]int
	order  []*domhost.Element // document order, for z-index ties
	scroll domhost.Point
}

// New creates an empty document with a single <body> root.
func New(title, url string) *Doc {
	body := &domhost.Element{Tag: "body", Connected: true, Style: domhost.Style{Opacity: 1}}
	return &Doc{
		root:   body,
		title:  title,
		url:    url,
		zIndex: make(map[*domhost.Element]int),
	}
}

// SetURL updates the document's URL, used to model navigation without
// tearing down the whole fake (real navigation instead discards the
// Registry and Doc wholesale — see internal/interaction tests).
func (d *Doc) SetURL(u string) { d.mu.Lock(); d.url = u; d.mu.Unlock() }

// Append adds el as a child of parent (nil means the document body)
// and returns el, for convenient fixture construction.
func (d *Doc) Append(parent, el *domhost.Element) *domhost.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if parent == nil {
		parent = d.root
	}
	el.Parent = parent
	el.Connected = true
	if isZeroStyle(el.Style) {
		el.Style.Opacity = 1
	}
	parent.Children = append(parent.Children, el)
	d.order = append(d.order, el)
	return el
}

// isZeroStyle reports a completely untouched Style, so Append can
// default Opacity to 1 without clobbering a fixture that deliberately
// set Style.Opacity = 0 (the opacity-zero trap).
func isZeroStyle(s domhost.Style) bool {
	return s == domhost.Style{}
}

// SetZIndex records el's paint order for ElementFromPoint's hit test;
// higher wins, ties break by document order (later wins), matching
// normal stacking-context behaviour for sibling boxes.
func (d *Doc) SetZIndex(el *domhost.Element, z int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zIndex[el] = z
}

// Remove detaches el from the tree, making it eligible for GC once no
// other strong reference (e.g. a test's own variable) keeps it alive.
func (d *Doc) Remove(el *domhost.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el.Parent != nil {
		siblings := el.Parent.Children
		for i, c := range siblings {
			if c == el {
				el.Parent.Children = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
	}
	walk(el, func(n *domhost.Element) { n.Connected = false; delete(d.zIndex, n) })
	kept := make([]*domhost.Element, 0, len(d.order))
	for _, o := range d.order {
		if o.Connected {
			kept = append(kept, o)
		}
	}
	d.order = kept
}

func (d *Doc) Title() string { d.mu.Lock(); defer d.mu.Unlock(); return d.title }
func (d *Doc) URL() string   { d.mu.Lock(); defer d.mu.Unlock(); return d.url }

func (d *Doc) OuterHTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	renderHTML(&b, d.root)
	return b.String()
}

func renderHTML(b *strings.Builder, el *domhost.Element) {
	fmt.Fprintf(b, "<%s", el.Tag)
	if el.ID != "" {
		fmt.Fprintf(b, " id=%q", el.ID)
	}
	if len(el.Classes) > 0 {
		fmt.Fprintf(b, " class=%q", strings.Join(el.Classes, " "))
	}
	for k, v := range el.Attributes {
		fmt.Fprintf(b, " %s=%q", k, v)
	}
	b.WriteString(">")
	b.WriteString(el.Text)
	for _, c := range el.Children {
		renderHTML(b, c)
	}
	fmt.Fprintf(b, "</%s>", el.Tag)
}

func (d *Doc) Dispatch(evt domhost.DispatchedEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *Doc) Events() []domhost.DispatchedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domhost.DispatchedEvent, len(d.events))
	copy(out, d.events)
	return out
}

// QuerySelectorAll walks the tree in document order collecting every
// element the (simplified) selector matches.
func (d *Doc) QuerySelectorAll(selector string) []*domhost.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := parseSelector(selector)
	if err != nil {
		return nil
	}
	var out []*domhost.Element
	walk(d.root, func(el *domhost.Element) {
		if sel.matches(el) {
			out = append(out, el)
		}
	})
	return out
}

// ElementFromPoint returns the highest-stacked element whose box
// contains (x, y); ties go to the later-appended element, modelling
// the last-painted-wins rule that makes overlay coverage work.
func (d *Doc) ElementFromPoint(x, y float64) *domhost.Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	type candidate struct {
		el    *domhost.Element
		z     int
		order int
	}
	var hits []candidate
	for i, el := range d.order {
		if !el.Connected {
			continue
		}
		b := el.Box
		if x < b.X || x > b.X+b.Width || y < b.Y || y > b.Y+b.Height {
			continue
		}
		hits = append(hits, candidate{el: el, z: d.zIndex[el], order: i})
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].z != hits[j].z {
			return hits[i].z > hits[j].z
		}
		return hits[i].order > hits[j].order
	})
	return hits[0].el
}

func walk(el *domhost.Element, fn func(*domhost.Element)) {
	fn(el)
	for _, c := range el.Children {
		walk(c, fn)
	}
}

// --- minimal selector support -------------------------------------

type simpleSelector struct {
	tag    string
	id     string
	class  string
	attr   string
	attrEq string
	hasAttrEq bool
}

func (s simpleSelector) matches(el *domhost.Element) bool {
	if s.tag != "" && s.tag != "*" && el.Tag != s.tag {
		return false
	}
	if s.id != "" && el.ID != s.id {
		return false
	}
	if s.class != "" && !el.HasClass(s.class) {
		return false
	}
	if s.attr != "" {
		v, ok := el.Attr(s.attr)
		if !ok {
			return false
		}
		if s.hasAttrEq && v != s.attrEq {
			return false
		}
	}
	return true
}

type selector struct {
	simple simpleSelector
}

func (s selector) matches(el *domhost.Element) bool { return s.simple.matches(el) }

// parseSelector accepts a single compound selector such as
// `button.submit`, `#dropdown`, `input[type=text]`, or `svg` — enough
// for the fixtures used by the honeypot matrix and the verbatim IO
// scenarios in spec §8. Descendant/combinator selectors are not
// supported; callers needing them should query within a subtree by
// fetching the ancestor first.
func parseSelector(raw string) (selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return selector{}, fmt.Errorf("empty selector")
	}
	var s simpleSelector
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case '#':
			j := scanIdent(raw, i+1)
			s.id = raw[i+1 : j]
			i = j
		case '.':
			j := scanIdent(raw, i+1)
			s.class = raw[i+1 : j]
			i = j
		case '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				return selector{}, fmt.Errorf("unterminated attribute selector")
			}
			body := raw[i+1 : i+end]
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				s.attr = body[:eq]
				s.attrEq = strings.Trim(body[eq+1:], `"'`)
				s.hasAttrEq = true
			} else {
				s.attr = body
			}
			i = i + end + 1
		default:
			j := scanIdent(raw, i)
			if j == i {
				return selector{}, fmt.Errorf("unexpected character %q in selector", raw[i])
			}
			s.tag = raw[i:j]
			i = j
		}
	}
	return selector{simple: s}, nil
}

func scanIdent(s string, i int) int {
	for i < len(s) {
		c := s[i]
		if c == '#' || c == '.' || c == '[' {
			break
		}
		i++
	}
	return i
}

// ParseIntAttr is a small helper fixtures use to read numeric
// attributes (e.g. tabindex) without importing strconv everywhere.
func ParseIntAttr(el *domhost.Element, name string) (int, bool) {
	v, ok := el.Attr(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ScrollPosition and SetScrollPosition model the document's own
// scroll offset, separate from any individual element's ScrollTop.
func (d *Doc) ScrollPosition() domhost.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scroll
}

func (d *Doc) SetScrollPosition(p domhost.Point) {
	d.mu.Lock()
	d.scroll = p
	d.mu.Unlock()
}

var _ domhost.Document = (*Doc)(nil)
