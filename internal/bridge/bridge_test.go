package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghostwire/ghostwire/internal/bridge/hostfake"
	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

func newTestBridge(t *testing.T) (*Bridge, *hostfake.Host) {
	store, err := tuning.NewStore(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	host := hostfake.New()
	return New(host, store), host
}

func TestTabScopedDispatchRoutesToEngine(t *testing.T) {
	br, host := newTestBridge(t)
	tabID := host.AddTab("Example", "https://example.test/", 800)
	host.Doc(tabID).Append(nil, &domhost.Element{Tag: "button", ID: "btn", Box: domhost.Rect{X: 10, Y: 10, Width: 40, Height: 20}})

	resp := br.Dispatch(context.Background(), protocol.Request{
		ID:     "r1",
		TabID:  tabID,
		Action: string(protocol.ActionDOMQuerySelector),
		Params: json.RawMessage(`{"selector":"#btn"}`),
	})
	require.Empty(t, resp.Error)

	var result map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.NotEmpty(t, result["handleId"])
}

func TestBrowserNativeDispatchGoesToHost(t *testing.T) {
	br, host := newTestBridge(t)
	tabID := host.AddTab("Example", "https://example.test/", 800)

	resp := br.Dispatch(context.Background(), protocol.Request{
		ID:     "r1",
		TabID:  tabID,
		Action: string(protocol.ActionTabsList),
	})
	require.Empty(t, resp.Error)

	var tabs []Tab
	require.NoError(t, json.Unmarshal(resp.Result, &tabs))
	require.Len(t, tabs, 1)
	require.Equal(t, tabID, tabs[0].ID)
}

func TestNavigateResetsEngineButPreservesCursor(t *testing.T) {
	br, host := newTestBridge(t)
	tabID := host.AddTab("Example", "https://example.test/", 800)

	// Attach a tab instance and move its cursor.
	inst, err := br.tabFor(context.Background(), tabID)
	require.NoError(t, err)
	inst.engine.SeedCursor(domhost.Point{X: 123, Y: 456})

	resp := br.Dispatch(context.Background(), protocol.Request{
		ID:     "r1",
		TabID:  tabID,
		Action: string(protocol.ActionTabsNavigate),
		Params: json.RawMessage(`{"url":"https://example.test/next"}`),
	})
	require.Empty(t, resp.Error)

	newInst, err := br.tabFor(context.Background(), tabID)
	require.NoError(t, err)
	require.Equal(t, domhost.Point{X: 123, Y: 456}, newInst.engine.Cursor())
}

func TestCSPLadderFallsThroughToMainWorld(t *testing.T) {
	br, host := newTestBridge(t)
	tabID := host.AddTab("Example", "https://example.test/", 800)
	host.BlockInlineScript(tabID, true)

	resp := br.Dispatch(context.Background(), protocol.Request{
		ID:     "r1",
		TabID:  tabID,
		Action: string(protocol.ActionDOMEvaluate),
		Params: json.RawMessage(`{"fn":"return 1+1"}`),
	})
	require.Empty(t, resp.Error)

	var result map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, "main", result["world"])
}

func TestScreenshotStitchesAcrossViewportSteps(t *testing.T) {
	br, host := newTestBridge(t)
	tabID := host.AddTab("Tall", "https://example.test/tall", 2000)

	resp := br.Dispatch(context.Background(), protocol.Request{
		ID:     "r1",
		TabID:  tabID,
		Action: string(protocol.ActionTabsScreenshot),
	})
	require.Empty(t, resp.Error)

	var shot ScreenshotResult
	require.NoError(t, json.Unmarshal(resp.Result, &shot))
	require.Equal(t, 1280, shot.Width)
	require.Equal(t, 2000, shot.Height)
	require.NotEmpty(t, shot.PNG)
}

func TestUnknownActionReturnsError(t *testing.T) {
	br, host := newTestBridge(t)
	tabID := host.AddTab("Example", "https://example.test/", 800)

	resp := br.Dispatch(context.Background(), protocol.Request{
		ID:     "r1",
		TabID:  tabID,
		Action: "nonsense.action",
	})
	require.Equal(t, protocol.ErrUnknownAction.Error(), resp.Error)
}
