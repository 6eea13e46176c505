package ghostwireclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ghostwire/ghostwire/internal/protocol"
)

// newEchoServer answers every request with a result equal to its own
// params, and emits one urlChanged event right after the handshake-free
// client connects, enough to exercise Call's id correlation and the
// event-handler path without standing up a real broker.
func newEchoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()

		data, _ := json.Marshal(protocol.Event{
			Type:  "event",
			Event: string(protocol.EventURLChanged),
			Data:  json.RawMessage(`{"tabId":1,"url":"https://example.test/"}`),
		})
		ws.WriteMessage(websocket.TextMessage, data)

		for {
			var req protocol.Request
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			ws.WriteJSON(protocol.Response{ID: req.ID, Result: req.Params})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + httpURL[len("http"):]
}

func TestCallEchoesResult(t *testing.T) {
	srv := newEchoServer(t)

	events := make(chan protocol.Event, 4)
	c, err := Dial(context.Background(), wsURL(srv.URL), "", func(evt protocol.Event) {
		events <- evt
	})
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Call("dom.evaluate", 1, json.RawMessage(`{"fn":"() => 1"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"fn":"() => 1"}`, string(result))

	select {
	case evt := <-events:
		require.Equal(t, string(protocol.EventURLChanged), evt.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
