package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/domhost/fake"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

func newTestEngine(t *testing.T) (*Engine, *fake.Doc) {
	doc := fake.New("test", "https://example.test/")
	eng := New(doc, 15*time.Minute, time.Hour)
	t.Cleanup(eng.Close)
	eng.SeedCursor(domhost.Point{X: 10, Y: 10})
	return eng, doc
}

func fastClick() tuning.Click {
	return tuning.Click{ThinkDelayMinMs: 1, ThinkDelayMaxMs: 2, MaxShiftPx: 50}
}

func TestClickHoneypotMatrix(t *testing.T) {
	cases := []struct {
		name string
		el   *domhost.Element
		want protocol.RefusalReason
	}{
		{"svg element", &domhost.Element{Tag: "svg", ID: "s", Box: domhost.Rect{X: 10, Y: 400, Width: 50, Height: 50}, Style: domhost.Style{Opacity: 1, HasOffsetParent: true}}, protocol.ReasonSVGElement},
		{"aria hidden", &domhost.Element{Tag: "button", ID: "a", Box: domhost.Rect{X: 10, Y: 400, Width: 50, Height: 50}, Style: domhost.Style{Opacity: 1, HasOffsetParent: true}, Attributes: map[string]string{"aria-hidden": "true"}}, protocol.ReasonAriaHidden},
		{"no offsetParent", &domhost.Element{Tag: "button", ID: "b", Box: domhost.Rect{X: 10, Y: 400, Width: 50, Height: 50}, Style: domhost.Style{Opacity: 1, HasOffsetParent: false}}, protocol.ReasonNoOffsetParent},
		{"honeypot class", &domhost.Element{Tag: "button", ID: "c", Classes: []string{"honey"}, Box: domhost.Rect{X: 10, Y: 400, Width: 50, Height: 50}, Style: domhost.Style{Opacity: 1, HasOffsetParent: true}}, protocol.ReasonHoneypotClass},
		{"opacity zero", &domhost.Element{Tag: "button", ID: "d", Box: domhost.Rect{X: 10, Y: 400, Width: 50, Height: 50}, Style: domhost.Style{Opacity: 0, HasOffsetParent: true}}, protocol.ReasonOpacityZero},
		{"visibility hidden", &domhost.Element{Tag: "button", ID: "e", Box: domhost.Rect{X: 10, Y: 400, Width: 50, Height: 50}, Style: domhost.Style{Opacity: 1, VisibilityHidden: true, HasOffsetParent: true}}, protocol.ReasonVisibilityHidden},
		{"sub pixel", &domhost.Element{Tag: "button", ID: "f", Box: domhost.Rect{X: 10, Y: 400, Width: 2, Height: 2}, Style: domhost.Style{Opacity: 1, HasOffsetParent: true}}, protocol.ReasonSubPixel},
		// A zero Box always fails the sub-pixel check first (width and
		// height both under 5px), so no-bounding-box is unreachable with
		// these exact thresholds — the ladder's order is the point.
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, doc := newTestEngine(t)
			doc.Append(nil, tc.el)
			doc.SetZIndex(tc.el, 1)

			res, err := eng.Click(context.Background(), Target{Selector: "#" + tc.el.ID}, ClickOptions{Click: fastClick()})
			require.NoError(t, err)
			require.False(t, res.Clicked)
			require.Equal(t, tc.want, res.Reason)
		})
	}
}

func TestClickHitsVisibleButton(t *testing.T) {
	eng, doc := newTestEngine(t)
	btn := doc.Append(nil, &domhost.Element{
		Tag: "button", ID: "submit",
		Box:   domhost.Rect{X: 100, Y: 400, Width: 80, Height: 30},
		Style: domhost.Style{Opacity: 1, HasOffsetParent: true},
	})
	doc.SetZIndex(btn, 1)

	res, err := eng.Click(context.Background(), Target{Selector: "#submit"}, ClickOptions{Click: fastClick()})
	require.NoError(t, err)
	require.True(t, res.Clicked)

	events := doc.Events()
	var sawClick bool
	for _, e := range events {
		if e.Type == "click" && e.Target == btn {
			sawClick = true
		}
	}
	require.True(t, sawClick, "expected a click event dispatched on the button")
}

func TestClickOverlayCoverage(t *testing.T) {
	eng, doc := newTestEngine(t)
	hidden := doc.Append(nil, &domhost.Element{
		Tag: "button", ID: "hidden-target",
		Box:   domhost.Rect{X: 100, Y: 400, Width: 80, Height: 30},
		Style: domhost.Style{Opacity: 1, HasOffsetParent: true},
	})
	overlay := doc.Append(nil, &domhost.Element{
		Tag: "div", ID: "overlay",
		Box:   domhost.Rect{X: 90, Y: 390, Width: 200, Height: 100},
		Style: domhost.Style{Opacity: 1, HasOffsetParent: true},
	})
	doc.SetZIndex(hidden, 1)
	doc.SetZIndex(overlay, 10)

	res, err := eng.Click(context.Background(), Target{Selector: "#hidden-target"}, ClickOptions{Click: fastClick()})
	require.NoError(t, err)
	require.True(t, res.Clicked)

	for _, e := range doc.Events() {
		if e.Type == "click" {
			require.Same(t, overlay, e.Target, "overlay above the target must receive the click")
		}
	}
}

func TestHandleResolutionHandleWinsOverSelector(t *testing.T) {
	eng, doc := newTestEngine(t)
	el := doc.Append(nil, &domhost.Element{Tag: "div", ID: "only", Box: domhost.Rect{X: 1, Y: 1, Width: 10, Height: 10}})
	id := eng.Registry().Store(el)

	got, err := eng.Resolve(Target{HandleID: id, Selector: "#does-not-exist"})
	require.NoError(t, err)
	require.Same(t, el, got)
}

func TestResolveSelectorMissIsElementNotFound(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Resolve(Target{Selector: "#nope"})
	require.ErrorIs(t, err, protocol.ErrElementNotFound)
}

func TestTypeTokenizationAndFocusCoupling(t *testing.T) {
	eng, doc := newTestEngine(t)
	input := doc.Append(nil, &domhost.Element{
		Tag: "input", ID: "field",
		Box:   domhost.Rect{X: 10, Y: 400, Width: 200, Height: 30},
		Style: domhost.Style{Opacity: 1, HasOffsetParent: true},
	})
	doc.SetZIndex(input, 1)

	opts := TypeOptions{
		Click: fastClick(),
		Type:  tuning.Type{BaseDelayMinMs: 1, BaseDelayMaxMs: 2, PauseChance: 0},
	}
	res, err := eng.Type(context.Background(), Target{Selector: "#field"}, "hi{Backspace}!", nil, opts)
	require.NoError(t, err)
	require.True(t, res.Typed)
	require.Equal(t, "h!", input.Value)
	require.True(t, input.Focused)
}

func TestScrollApproachesTarget(t *testing.T) {
	eng, _ := newTestEngine(t)
	res, err := eng.Scroll(context.Background(), ScrollOptions{
		Scroll:  tuning.Scroll{AmountMin: 50, AmountMax: 80, FlickDelayMinMs: 1, FlickDelayMaxMs: 2, SettleDelayMinMs: 1, SettleDelayMaxMs: 2},
		TargetY: 500,
	})
	require.NoError(t, err)
	require.True(t, res.Scrolled)
	require.InDelta(t, 500, res.FinalY, 1)
}
