package broker

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

func newTestBroker(t *testing.T) (*Broker, string) {
	store, err := tuning.NewStore(context.Background(), "")
	require.NoError(t, err)

	b, err := New(store)
	require.NoError(t, err)

	ts := httptest.NewServer(b.Router())
	t.Cleanup(func() {
		ts.Close()
		b.Close()
		store.Close()
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return b, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func connectExtension(t *testing.T, url string) *websocket.Conn {
	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(protocol.Handshake{Type: "handshake", ExtensionID: "ext-1", Version: "1.0.0"}))
	return conn
}

func TestRequestMultiplexingRoundTrip(t *testing.T) {
	_, url := newTestBroker(t)
	ext := connectExtension(t, url)
	client := dial(t, url)

	require.NoError(t, client.WriteJSON(protocol.Request{
		ID:     "c1",
		Action: string(protocol.ActionDOMClick),
		Params: json.RawMessage(`{"selector":"#btn"}`),
	}))

	var forwarded protocol.Request
	require.NoError(t, ext.ReadJSON(&forwarded))
	require.NotEqual(t, "c1", forwarded.ID, "broker must assign its own correlation id")
	require.Equal(t, string(protocol.ActionDOMClick), forwarded.Action)

	var params map[string]any
	require.NoError(t, json.Unmarshal(forwarded.Params, &params))
	require.Contains(t, params, protocol.ReservedTuningField, "dom.* actions must carry the tuning snapshot")

	require.NoError(t, ext.WriteJSON(protocol.Response{ID: forwarded.ID, Result: json.RawMessage(`{"clicked":true}`)}))

	var resp protocol.Response
	require.NoError(t, client.ReadJSON(&resp))
	require.Equal(t, "c1", resp.ID, "the client must see its own id, not the broker's")
	require.JSONEq(t, `{"clicked":true}`, string(resp.Result))
}

func TestHumanActionsMergeAvoidAndConfig(t *testing.T) {
	_, url := newTestBroker(t)
	ext := connectExtension(t, url)
	client := dial(t, url)

	require.NoError(t, client.WriteJSON(protocol.Request{
		ID:     "c1",
		Action: string(protocol.ActionHumanClick),
		Params: json.RawMessage(`{"selector":"#btn","avoid":{"classes":["local-avoid"]}}`),
	}))

	var forwarded protocol.Request
	require.NoError(t, ext.ReadJSON(&forwarded))

	var params struct {
		Avoid  tuning.Ruleset `json:"avoid"`
		Config map[string]any `json:"config"`
	}
	require.NoError(t, json.Unmarshal(forwarded.Params, &params))
	require.Contains(t, params.Avoid.Classes, "local-avoid")
	require.Contains(t, params.Config, "click")
}

func TestExtensionNotConnectedFailsImmediately(t *testing.T) {
	_, url := newTestBroker(t)
	client := dial(t, url)

	require.NoError(t, client.WriteJSON(protocol.Request{ID: "c1", Action: string(protocol.ActionTabsList)}))

	var resp protocol.Response
	require.NoError(t, client.ReadJSON(&resp))
	require.Equal(t, "c1", resp.ID)
	require.Equal(t, protocol.ErrExtensionNotConnected.Error(), resp.Error)
}

func TestEventFanOutReachesEveryClientNotExtension(t *testing.T) {
	_, url := newTestBroker(t)
	ext := connectExtension(t, url)

	client1 := dial(t, url)
	require.NoError(t, client1.WriteJSON(protocol.Request{ID: "init1", Action: string(protocol.ActionTabsList)}))
	var fwd1 protocol.Request
	require.NoError(t, ext.ReadJSON(&fwd1))
	require.NoError(t, ext.WriteJSON(protocol.Response{ID: fwd1.ID, Result: json.RawMessage(`[]`)}))
	var drain1 protocol.Response
	require.NoError(t, client1.ReadJSON(&drain1))

	client2 := dial(t, url)
	require.NoError(t, client2.WriteJSON(protocol.Request{ID: "init2", Action: string(protocol.ActionTabsList)}))
	var fwd2 protocol.Request
	require.NoError(t, ext.ReadJSON(&fwd2))
	require.NoError(t, ext.WriteJSON(protocol.Response{ID: fwd2.ID, Result: json.RawMessage(`[]`)}))
	var drain2 protocol.Response
	require.NoError(t, client2.ReadJSON(&drain2))

	require.NoError(t, ext.WriteJSON(protocol.Event{
		Type:  "event",
		Event: string(protocol.EventURLChanged),
		Data:  json.RawMessage(`{"tabId":1,"url":"https://example.test/"}`),
	}))

	var evt1, evt2 protocol.Event
	require.NoError(t, client1.ReadJSON(&evt1))
	require.NoError(t, client2.ReadJSON(&evt2))
	require.Equal(t, string(protocol.EventURLChanged), evt1.Event)
	require.Equal(t, string(protocol.EventURLChanged), evt2.Event)
}

func TestCommandTimeoutWhenExtensionNeverReplies(t *testing.T) {
	_, url := newTestBroker(t)
	_ = connectExtension(t, url)
	client := dial(t, url)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(4*time.Second)))

	require.NoError(t, client.WriteJSON(protocol.Request{
		ID:     "c1",
		Action: string(protocol.ActionTabsList),
		Params: json.RawMessage(`{"timeout":1}`),
	}))

	var resp protocol.Response
	require.NoError(t, client.ReadJSON(&resp))
	require.Equal(t, "c1", resp.ID)
	require.Equal(t, protocol.ErrCommandTimeout.Error(), resp.Error)
}

func TestSupersedingHandshakeFailsPreviousExtensionPending(t *testing.T) {
	_, url := newTestBroker(t)
	ext1 := connectExtension(t, url)
	client := dial(t, url)

	require.NoError(t, client.WriteJSON(protocol.Request{ID: "c1", Action: string(protocol.ActionTabsList)}))
	var fwd protocol.Request
	require.NoError(t, ext1.ReadJSON(&fwd))

	_ = connectExtension(t, url)

	var resp protocol.Response
	require.NoError(t, client.ReadJSON(&resp))
	require.Equal(t, "c1", resp.ID)
	require.Equal(t, protocol.ErrExtensionDisconnected.Error(), resp.Error)
}
