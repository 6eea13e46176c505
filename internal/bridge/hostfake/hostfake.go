// Package hostfake is the in-memory BrowserHost double used by
// internal/bridge's own tests and by cmd/ghostwire-bridge-sim. It
// plays the same role for tab/cookie/screenshot/evaluate concerns
// that internal/domhost/fake already plays for the live page: a
// deterministic stand-in for capabilities that, on a real browser
// extension, come from chrome.tabs/chrome.cookies/chrome.scripting.
package hostfake

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/ghostwire/ghostwire/internal/bridge"
	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/domhost/fake"
)

type tabState struct {
	tab          bridge.Tab
	doc          *fake.Doc
	scrollHeight float64
	dpr          float64
	scriptReady  bool
	cspBlocksInline bool
}

// Host is the fake BrowserHost. Tests construct one, seed it with
// AddTab, and optionally flip BlockInlineScript to exercise the CSP
// ladder's fallthrough path.
type Host struct {
	mu      sync.Mutex
	nextID  int64
	tabs    map[int64]*tabState
	cookies []bridge.Cookie
	frames  map[int64][]bridge.Frame
}

func New() *Host {
	return &Host{tabs: make(map[int64]*tabState), frames: make(map[int64][]bridge.Frame)}
}

// AddTab seeds a tab with a given title/url/page height, returning its
// id. scrollHeight drives the screenshot-stitch step count.
func (h *Host) AddTab(title, url string, scrollHeight float64) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	doc := fake.New(title, url)
	h.tabs[id] = &tabState{
		tab:          bridge.Tab{ID: id, URL: url, Title: title, Active: true, Status: "complete"},
		doc:          doc,
		scrollHeight: scrollHeight,
		dpr:          1,
	}
	h.frames[id] = []bridge.Frame{{ID: 0, TabID: id}}
	return id
}

// BlockInlineScript makes tabID refuse CSP ladder tier 1, forcing the
// bridge to fall through to ExecuteMainWorld.
func (h *Host) BlockInlineScript(tabID int64, blocked bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.tabs[tabID]; ok {
		t.cspBlocksInline = blocked
	}
}

// Doc returns the fake document backing tabID, for tests that want to
// mutate the page directly (fake.Doc.Append etc.) before dispatching.
func (h *Host) Doc(tabID int64) *fake.Doc {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.tabs[tabID]; ok {
		return t.doc
	}
	return nil
}

func (h *Host) get(tabID int64) (*tabState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[tabID]
	if !ok {
		return nil, fmt.Errorf("no such tab: %d", tabID)
	}
	return t, nil
}

func (h *Host) ListTabs(ctx context.Context) ([]bridge.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]bridge.Tab, 0, len(h.tabs))
	for _, t := range h.tabs {
		out = append(out, t.tab)
	}
	return out, nil
}

func (h *Host) GetTab(ctx context.Context, tabID int64) (bridge.Tab, error) {
	t, err := h.get(tabID)
	if err != nil {
		return bridge.Tab{}, err
	}
	return t.tab, nil
}

func (h *Host) Navigate(ctx context.Context, tabID int64, url string) (bridge.Tab, error) {
	t, err := h.get(tabID)
	if err != nil {
		return bridge.Tab{}, err
	}
	h.mu.Lock()
	t.doc.SetURL(url)
	t.tab.URL = url
	t.tab.Status = "complete"
	t.scriptReady = false
	h.mu.Unlock()
	return t.tab, nil
}

func (h *Host) CreateTab(ctx context.Context, url string) (bridge.Tab, error) {
	id := h.AddTab("", url, 800)
	return h.GetTab(ctx, id)
}

func (h *Host) CloseTab(ctx context.Context, tabID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tabs, tabID)
	delete(h.frames, tabID)
	return nil
}

func (h *Host) ActivateTab(ctx context.Context, tabID int64) (bridge.Tab, error) {
	t, err := h.get(tabID)
	if err != nil {
		return bridge.Tab{}, err
	}
	h.mu.Lock()
	for _, other := range h.tabs {
		other.tab.Active = other.tab.ID == tabID
	}
	h.mu.Unlock()
	return t.tab, nil
}

func (h *Host) ReloadTab(ctx context.Context, tabID int64) (bridge.Tab, error) {
	t, err := h.get(tabID)
	if err != nil {
		return bridge.Tab{}, err
	}
	h.mu.Lock()
	t.scriptReady = false
	h.mu.Unlock()
	return t.tab, nil
}

func (h *Host) SetViewport(ctx context.Context, tabID int64, width, height int) error {
	_, err := h.get(tabID)
	return err
}

func (h *Host) ListFrames(ctx context.Context, tabID int64) ([]bridge.Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames[tabID], nil
}

func (h *Host) GetAllCookies(ctx context.Context, urlFilter string) ([]bridge.Cookie, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if urlFilter == "" {
		return append([]bridge.Cookie(nil), h.cookies...), nil
	}
	var out []bridge.Cookie
	for _, c := range h.cookies {
		if c.Domain == "" || bytes.Contains([]byte(urlFilter), []byte(c.Domain)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (h *Host) SetCookie(ctx context.Context, c bridge.Cookie) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain {
			h.cookies[i] = c
			return nil
		}
	}
	h.cookies = append(h.cookies, c)
	return nil
}

func (h *Host) Document(ctx context.Context, tabID int64) (domhost.Document, error) {
	t, err := h.get(tabID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	t.scriptReady = true
	h.mu.Unlock()
	return t.doc, nil
}

func (h *Host) PageMetrics(ctx context.Context, tabID int64) (bridge.PageMetrics, error) {
	t, err := h.get(tabID)
	if err != nil {
		return bridge.PageMetrics{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	pos := t.doc.ScrollPosition()
	return bridge.PageMetrics{
		ViewportWidth:    1280,
		ViewportHeight:   800,
		ScrollHeight:     t.scrollHeight,
		DevicePixelRatio: t.dpr,
		ScrollX:          pos.X,
		ScrollY:          pos.Y,
	}, nil
}

func (h *Host) ScrollTo(ctx context.Context, tabID int64, y float64) error {
	t, err := h.get(tabID)
	if err != nil {
		return err
	}
	t.doc.SetScrollPosition(domhost.Point{X: 0, Y: y})
	return nil
}

// CaptureViewport returns a deterministic solid-colour 1280x800 PNG
// whose colour encodes the tab's current scroll offset, so stitch
// tests can assert on slice order without a real renderer.
func (h *Host) CaptureViewport(ctx context.Context, tabID int64) ([]byte, error) {
	t, err := h.get(tabID)
	if err != nil {
		return nil, err
	}
	pos := t.doc.ScrollPosition()
	shade := uint8(int(pos.Y)%200) + 20
	img := image.NewRGBA(image.Rect(0, 0, 1280, 800))
	fill := color.RGBA{R: shade, G: shade, B: shade, A: 255}
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Host) InjectContentScript(ctx context.Context, tabID, frameID int64) error {
	t, err := h.get(tabID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	t.scriptReady = true
	h.mu.Unlock()
	return nil
}

func (h *Host) ExecuteMainWorld(ctx context.Context, tabID, frameID int64, fn string, args []any) (any, error) {
	if _, err := h.get(tabID); err != nil {
		return nil, err
	}
	return map[string]any{"world": "main", "fn": fn, "args": args}, nil
}

func (h *Host) InlineScriptEval(ctx context.Context, tabID, frameID int64, fn string, args []any, cap time.Duration) (any, error) {
	t, err := h.get(tabID)
	if err != nil {
		return nil, err
	}
	if t.cspBlocksInline {
		return nil, fmt.Errorf("content security policy blocked inline script")
	}
	return map[string]any{"world": "inline", "fn": fn, "args": args}, nil
}
