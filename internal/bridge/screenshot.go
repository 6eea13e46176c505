package bridge

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/ghostwire/ghostwire/internal/protocol"
)

// ScreenshotResult is tabs.screenshot's response payload: the PNG bytes
// (which encoding/json writes as a base64 string) plus the geometry the
// client needs to make sense of them.
type ScreenshotResult struct {
	PNG    []byte `json:"png"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// screenshot implements spec §4.2's full-page screenshot algorithm:
// step the page down by one viewport height at a time, capture each
// slice, and stitch them into one canvas sized to the page's full
// scroll height, then restore the original scroll position. Device
// pixel ratio is read from PageMetrics and applied to the canvas size;
// the slices themselves are trusted to already be captured at that
// ratio, same as a real screen/extension-capture API would deliver.
func (br *Bridge) screenshot(ctx context.Context, tabID int64) (ScreenshotResult, error) {
	metrics, err := br.host.PageMetrics(ctx, tabID)
	if err != nil {
		return ScreenshotResult{}, err
	}
	if metrics.ViewportHeight <= 0 {
		return ScreenshotResult{}, protocol.ErrInvalidParams
	}
	dpr := metrics.DevicePixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	originalY := metrics.ScrollY

	steps := int(math.Ceil(metrics.ScrollHeight / metrics.ViewportHeight))
	if steps < 1 {
		steps = 1
	}

	canvasW := int(math.Round(metrics.ViewportWidth * dpr))
	canvasH := int(math.Round(metrics.ScrollHeight * dpr))
	canvas := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))

	for i := 0; i < steps; i++ {
		y := float64(i) * metrics.ViewportHeight
		if y+metrics.ViewportHeight > metrics.ScrollHeight {
			y = math.Max(0, metrics.ScrollHeight-metrics.ViewportHeight)
		}
		if err := br.host.ScrollTo(ctx, tabID, y); err != nil {
			return ScreenshotResult{}, err
		}
		raw, err := br.host.CaptureViewport(ctx, tabID)
		if err != nil {
			return ScreenshotResult{}, err
		}
		slice, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return ScreenshotResult{}, err
		}
		destY := int(math.Round(y * dpr))
		draw.Draw(canvas, image.Rect(0, destY, canvasW, destY+slice.Bounds().Dy()), slice, image.Point{}, draw.Src)
	}

	if err := br.host.ScrollTo(ctx, tabID, originalY); err != nil {
		return ScreenshotResult{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return ScreenshotResult{}, err
	}
	return ScreenshotResult{PNG: buf.Bytes(), Width: canvasW, Height: canvasH}, nil
}
