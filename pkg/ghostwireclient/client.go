// Package ghostwireclient is a thin WebSocket convenience client for
// ghostwire's broker protocol (spec §6): it imports nothing from
// internal/broker or internal/bridge, only internal/protocol, so any
// Go program — not just cmd/ghostwire-cli — can drive a ghostwire
// broker without linking the server side.
//
// Grounded on original_source/cli/main.go's connection/request-
// correlation design (sendAndWait's id-tagged pending map, a
// background read loop answering pings and routing replies by id),
// reimplemented without the CLI's REPL/output concerns.
package ghostwireclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostwire/ghostwire/internal/protocol"
)

// requestTimeout mirrors original_source/cli/main.go's sendAndWait
// 35s wait, long enough to outlast the broker's default per-request
// deadline (30s plus its 2s buffer); a request whose params.timeout is
// above 33s can time out here before the broker answers.
const requestTimeout = 35 * time.Second

// EventHandler receives every unsolicited Event frame the broker
// fans out (urlChanged, cookiesChanged, response).
type EventHandler func(protocol.Event)

// Client is one WebSocket connection to a ghostwire broker, playing
// the client role in spec §4.1's classify-on-first-message handshake
// (a plain client connects with no extension handshake frame).
type Client struct {
	ws      *websocket.Conn
	counter uint64

	mu      sync.Mutex
	pending map[string]chan protocol.Response

	onEvent EventHandler
	closed  chan struct{}
}

// Dial connects to a broker at url (e.g. "ws://127.0.0.1:7331/ws"). If
// token is non-empty it is sent as the relay auth header, required for
// any non-loopback connection per internal/broker/auth.go.
func Dial(ctx context.Context, url, token string, onEvent EventHandler) (*Client, error) {
	header := map[string][]string{}
	if token != "" {
		header["x-ghostwire-relay-token"] = []string{token}
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		ws:      ws,
		pending: make(map[string]chan protocol.Response),
		onEvent: onEvent,
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.ws.Close()
}

// Call sends action with params against tabID (0 means "broker
// default tab", per original_source/cli/main.go's activeTab==0
// omission) and blocks for the matching response by id.
func (c *Client) Call(action string, tabID int64, params json.RawMessage) (json.RawMessage, error) {
	id := c.nextID()
	req := protocol.Request{ID: id, TabID: tabID, Action: action, Params: params}

	ch := make(chan protocol.Response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writeJSON(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return resp.Result, nil
	case <-time.After(requestTimeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for %s", action)
	case <-c.closed:
		return nil, fmt.Errorf("disconnected")
	}
}

func (c *Client) nextID() string {
	return fmt.Sprintf("gw_%d", atomic.AddUint64(&c.counter, 1))
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Client) readLoop() {
	defer close(c.closed)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var probe struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			continue
		}

		if probe.Type == "ping" {
			c.writeJSON(protocol.NewPong())
			continue
		}

		if probe.ID != "" {
			var resp protocol.Response
			if err := json.Unmarshal(data, &resp); err == nil {
				c.mu.Lock()
				ch, ok := c.pending[resp.ID]
				if ok {
					delete(c.pending, resp.ID)
				}
				c.mu.Unlock()
				if ok {
					ch <- resp
					continue
				}
			}
		}

		var evt protocol.Event
		if err := json.Unmarshal(data, &evt); err == nil && evt.Event != "" && c.onEvent != nil {
			c.onEvent(evt)
		}
	}
}
