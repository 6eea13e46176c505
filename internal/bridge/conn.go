package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostwire/ghostwire/internal/protocol"
)

// reconnectMinBackoff and reconnectMaxBackoff bound the page-bridge's
// outbound reconnect to the broker, per spec §4.2: "1s, doubling each
// attempt, capped at 60s." The backoff resets to the minimum as soon
// as a connection is established, not merely attempted.
const (
	reconnectMinBackoff = 1 * time.Second
	reconnectMaxBackoff = 60 * time.Second
)

// Conn owns the bridge's single outbound WebSocket to the broker: it
// dials, sends the handshake that gets it classified as the extension
// session (spec §4.1), serves every inbound Request through Bridge,
// and forwards whatever the bridge emits back out as Event frames.
type Conn struct {
	url         string
	extensionID string
	version     string
	authToken   string
	bridge      *Bridge
	log         *slog.Logger

	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(url, extensionID, version, authToken string, br *Bridge, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	return &Conn{url: url, extensionID: extensionID, version: version, authToken: authToken, bridge: br, log: log}
}

// Run dials the broker, reconnecting with exponential backoff until ctx
// is cancelled. It never returns a non-nil error except ctx.Err().
func (c *Conn) Run(ctx context.Context) error {
	backoff := reconnectMinBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		connected, err := c.runOnce(ctx)
		if err != nil {
			c.log.Warn("bridge connection dropped", "error", err, "retryIn", backoff)
		}
		if connected {
			backoff = reconnectMinBackoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if !connected {
			backoff *= 2
			if backoff > reconnectMaxBackoff {
				backoff = reconnectMaxBackoff
			}
		}
	}
}

// runOnce dials once and serves the read loop until it errors or ctx
// is cancelled. The returned bool reports whether the handshake
// completed, which Run uses to decide whether to reset its backoff —
// a connection that dies instantly after handshaking still counts as
// reachable, only a failed dial or rejected handshake should keep
// backing off.
func (c *Conn) runOnce(ctx context.Context) (bool, error) {
	header := map[string][]string{}
	if c.authToken != "" {
		header["x-ghostwire-relay-token"] = []string{c.authToken}
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return false, err
	}
	defer ws.Close()

	if err := ws.WriteJSON(protocol.Handshake{Type: "handshake", ExtensionID: c.extensionID, Version: c.version}); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	c.bridge.SetEventSink(c.sendEvent)

	defer func() {
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return true, err
		}
		c.handleFrame(ctx, data)
	}
}

func (c *Conn) handleFrame(ctx context.Context, data []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}
	if probe.Type == "ping" {
		c.writeJSON(protocol.NewPong())
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		return
	}
	resp := c.bridge.Dispatch(ctx, req)
	c.writeJSON(resp)
}

func (c *Conn) sendEvent(evt protocol.Event) {
	c.writeJSON(evt)
}

func (c *Conn) writeJSON(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return
	}
	_ = c.ws.WriteJSON(v)
}
