// Package bridge implements the page-bridge (spec §4.2): the
// long-lived extension process that owns the outbound WebSocket to
// the broker, dispatches each inbound command across one of three
// execution paths, stashes cursor position across navigations,
// forwards browser events, and runs the CSP injection ladder for
// page-world evaluation (spec §4.5).
//
// The source runs this logic inside a browser extension's background
// service worker, calling chrome.tabs/chrome.cookies/chrome.scripting
// directly. A systems-language port has nothing resembling those
// APIs, so BrowserHost is the explicit seam standing in for them —
// the same kind of redesign internal/domhost already makes for "the
// live page" (spec §9 open-question territory: the source never
// needed this seam because it always had a real extension runtime
// underneath it).
package bridge

import (
	"context"
	"time"

	"github.com/ghostwire/ghostwire/internal/domhost"
)

// Tab mirrors the browser tab fields spec §3 names as observable:
// id, url, title, active, windowId, index.
type Tab struct {
	ID       int64
	URL      string
	Title    string
	Active   bool
	WindowID int64
	Index    int
	Status   string // "loading" or "complete", used by the 30s navigation wait
}

// Frame is one frame in a tab's frame tree; frame 0 is always the
// main frame, the only one the interaction engine ever targets (spec
// §4.2: "to avoid iframe collisions in the handle registry").
type Frame struct {
	ID            int64
	TabID         int64
	URL           string
	ParentFrameID int64
}

// Cookie mirrors the fields cookies.getAll/cookies.set exchange.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string
	Expires  int64 // unix seconds, 0 means session cookie
}

// PageMetrics is what the bridge needs from the host to drive the
// full-page screenshot stitch (spec §4.2 screenshot algorithm).
type PageMetrics struct {
	ViewportWidth, ViewportHeight float64
	ScrollHeight                  float64
	DevicePixelRatio              float64
	ScrollX, ScrollY              float64
}

// BrowserHost is every browser-native capability the page-bridge
// needs that does not go through the interaction engine: tab
// lifecycle, cookies, frame enumeration, screenshot capture, and
// content-script injection. A real implementation backs this with
// chrome.tabs/chrome.cookies/chrome.scripting; bridge/hostfake is the
// in-memory double used by this package's own tests and by
// cmd/ghostwire-bridge-sim.
type BrowserHost interface {
	ListTabs(ctx context.Context) ([]Tab, error)
	Navigate(ctx context.Context, tabID int64, url string) (Tab, error)
	CreateTab(ctx context.Context, url string) (Tab, error)
	CloseTab(ctx context.Context, tabID int64) error
	ActivateTab(ctx context.Context, tabID int64) (Tab, error)
	ReloadTab(ctx context.Context, tabID int64) (Tab, error)
	GetTab(ctx context.Context, tabID int64) (Tab, error)
	SetViewport(ctx context.Context, tabID int64, width, height int) error
	ListFrames(ctx context.Context, tabID int64) ([]Frame, error)

	GetAllCookies(ctx context.Context, urlFilter string) ([]Cookie, error)
	SetCookie(ctx context.Context, c Cookie) error

	// Document returns the content-script's live view of tabID's main
	// frame DOM, the same seam internal/domhost already defines for
	// "the live page" — tab-scoped dom.*/human.* actions resolve
	// against this, one interaction.Engine per tab, per spec §4.2
	// execution path 2.
	Document(ctx context.Context, tabID int64) (domhost.Document, error)

	// PageMetrics and CaptureViewport drive tabs.screenshot (spec
	// §4.2): the bridge walks the page by stepping ScrollTo and
	// calling CaptureViewport at each step, then stitches the slices
	// itself (see screenshot.go) rather than asking the host to.
	PageMetrics(ctx context.Context, tabID int64) (PageMetrics, error)
	ScrollTo(ctx context.Context, tabID int64, y float64) error
	CaptureViewport(ctx context.Context, tabID int64) ([]byte, error)

	// InjectContentScript is called on demand when a tab-scoped DOM
	// action targets a tab with no content-script instance yet (spec
	// §4.2 path 2: "one is injected on demand and the request retried
	// once").
	InjectContentScript(ctx context.Context, tabID, frameID int64) error

	// ExecuteMainWorld runs fn (an opaque function-body string, per
	// spec §9 "dynamic JS closures as fn parameters") in the page's
	// main execution world via the host's scripting API — CSP ladder
	// tier 2. Returns the JSON-serialised result.
	ExecuteMainWorld(ctx context.Context, tabID, frameID int64, fn string, args []any) (any, error)

	// InlineScriptEval attempts CSP ladder tier 1: inject a <script>
	// tag and read its result back via a mutation-observed attribute,
	// within cap. Returns an error (never panics) if the page's CSP
	// blocks inline scripts; the bridge falls through to tier 2.
	InlineScriptEval(ctx context.Context, tabID, frameID int64, fn string, args []any, cap time.Duration) (any, error)
}
