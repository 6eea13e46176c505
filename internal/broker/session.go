package broker

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostwire/ghostwire/internal/events"
)

// clientSession is one connected, non-extension WebSocket peer.
// Mirrors the shape of relay.go's cdpClientState, generalized from a
// single CDP subscription to two: one for targeted responses, one for
// broadcast events, both delivered through the same bus so there is a
// single write path per socket.
type clientSession struct {
	id   string
	ws   *websocket.Conn
	wmu  sync.Mutex // guards concurrent WriteJSON calls from the two subscriptions
	subs []events.Subscription
}

func (c *clientSession) writeJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *clientSession) close() {
	for _, s := range c.subs {
		s.Unsubscribe()
	}
	c.ws.Close()
}

// extensionSession is the single current extension connection.
type extensionSession struct {
	ws       *websocket.Conn
	wmu      sync.Mutex
	id       string
	version  string
	lastPong time.Time
}

func (e *extensionSession) writeJSON(v any) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()
	return e.ws.WriteJSON(v)
}

// pendingRequest is the broker's request-multiplexing record, per
// spec §4.1: a broker-assigned id maps to the originating client
// session, the client's own request id, and a deadline timer. Named
// and shaped after relay.go's pendingRequest, generalized from a
// resolve/reject channel pair (which assumed a single in-flight
// sendAndWait caller) to a record looked up by the extension's read
// loop when its response arrives, since the broker here must route
// the result back onto an arbitrary client socket rather than return
// it to a waiting goroutine.
type pendingRequest struct {
	clientID    string // owning client session id
	clientReqID string // the id the client used, to preserve on reply
	action      string
	timer       *time.Timer
}
