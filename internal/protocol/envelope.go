// Package protocol defines the wire envelope, action namespace, and
// error taxonomy shared by the broker, the bridge, and any client.
package protocol

import "encoding/json"

// Request is a client-to-broker or broker-to-extension command.
type Request struct {
	ID     string          `json:"id"`
	TabID  int64           `json:"tabId,omitempty"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response carries either a result or an error, never both.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Event is an unsolicited, uncorrelated broadcast frame.
type Event struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EventKind enumerates the event names a page-bridge may emit.
type EventKind string

const (
	EventResponse      EventKind = "response"
	EventURLChanged    EventKind = "urlChanged"
	EventCookiesChanged EventKind = "cookiesChanged"
)

// ResponsePayload is the data carried by EventResponse.
type ResponsePayload struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	TabID  int64  `json:"tabId"`
	Method string `json:"method"`
}

// URLChangedPayload is the data carried by EventURLChanged.
type URLChangedPayload struct {
	TabID int64  `json:"tabId"`
	URL   string `json:"url"`
}

// CookiesChangedPayload is the data carried by EventCookiesChanged.
type CookiesChangedPayload struct {
	Count int `json:"count"`
}

// Ping and Pong are the keepalive control frames.
type Ping struct {
	Type string `json:"type"`
}

type Pong struct {
	Type string `json:"type"`
}

// NewPing and NewPong construct the wire-ready control frames.
func NewPing() Ping { return Ping{Type: "ping"} }
func NewPong() Pong { return Pong{Type: "pong"} }

// Handshake identifies an inbound connection as the extension session.
type Handshake struct {
	Type        string `json:"type"`
	ExtensionID string `json:"extensionId"`
	Version     string `json:"version"`
}

// IsHandshake reports whether raw looks like a handshake frame, without
// fully decoding it. Malformed JSON is treated as "not a handshake" so
// that the caller can route it through normal command dispatch, which
// in turn drops it silently per the parse-error policy.
func IsHandshake(raw []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Type == "handshake"
}
