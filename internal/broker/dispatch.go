package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ghostwire/ghostwire/internal/events"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// runExtensionSession installs ws as the current extension session,
// superseding and failing any previous one, then runs its read loop
// until disconnect. Grounded on relay.go's HandleExtensionWS.
func (b *Broker) runExtensionSession(ws *websocket.Conn, hs protocol.Handshake, log *slog.Logger) {
	sess := &extensionSession{ws: ws, id: hs.ExtensionID, version: hs.Version, lastPong: time.Now()}

	b.mu.Lock()
	if b.ext != nil {
		b.ext.ws.Close()
	}
	b.ext = sess
	b.failAllPending(protocol.ErrExtensionDisconnected)
	ch := b.connectCh
	b.connectCh = make(chan struct{})
	b.mu.Unlock()
	close(ch)

	log.Info("extension connected", "extensionId", hs.ExtensionID, "version", hs.Version)

	stop := make(chan struct{})
	go b.keepaliveLoop(sess, stop)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		b.handleExtensionMessage(msg, log)
	}
	close(stop)

	log.Info("extension disconnected")
	b.mu.Lock()
	if b.ext == sess {
		b.ext = nil
		b.failAllPending(protocol.ErrExtensionDisconnected)
	}
	b.mu.Unlock()
}

// keepaliveLoop pings the extension socket every 20s per spec §4.1.
// The extension's {type:"pong"} reply is observed (and lastPong
// bumped) in handleExtensionMessage; a missed pong does not itself
// close the socket — the read loop's own error is what tears it down,
// matching relay.go's fire-and-forget ping ticker.
func (b *Broker) keepaliveLoop(sess *extensionSession, stop <-chan struct{}) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := sess.writeJSON(protocol.NewPing()); err != nil {
				return
			}
		}
	}
}

// handleExtensionMessage mirrors relay.go's handleExtensionMessage:
// try pong, then event, then response; anything else (or malformed
// JSON) is dropped silently per spec §4.1's failure semantics.
func (b *Broker) handleExtensionMessage(data []byte, log *slog.Logger) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}

	switch probe.Type {
	case "pong":
		b.mu.Lock()
		if b.ext != nil {
			b.ext.lastPong = time.Now()
		}
		b.mu.Unlock()
		return
	case "event":
		var evt protocol.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return
		}
		b.broadcastEvent(evt)
		return
	}

	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil || resp.ID == "" {
		return
	}

	b.mu.Lock()
	p, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()

	if !ok {
		// Late reply for a request the broker already timed out and
		// forgot — dropped silently per spec §4.1.
		return
	}
	p.timer.Stop()

	events.Emit[any](b.bus, events.ClientTopic(p.clientID), protocol.Response{
		ID:     p.clientReqID,
		Result: resp.Result,
		Error:  resp.Error,
	})
}

// broadcastEvent fans an extension-originated event out to every
// connected client session, per spec §4.1: "broadcast verbatim to
// every connected client session except the extension itself."
// Grounded on relay.go's broadcastToCdpClients, generalized from
// per-client Emit calls to a single TopicBroadcast that every client
// session subscribes to once, since ghostwire has no per-target
// filtering the way CDP's session-scoped events required.
func (b *Broker) broadcastEvent(evt protocol.Event) {
	events.Emit[any](b.bus, events.TopicBroadcast, evt)
}

// runClientSession subscribes ws to its own response topic and the
// broadcast topic, processes first (already read off the wire) and
// then every subsequent frame as a Request, and cleans up on
// disconnect. Grounded on relay.go's HandleCdpWS.
func (b *Broker) runClientSession(clientID string, ws *websocket.Conn, first []byte, log *slog.Logger) {
	sess := &clientSession{id: clientID, ws: ws}

	deliver := func(_ context.Context, msg any) error {
		return sess.writeJSON(msg)
	}
	sess.subs = []events.Subscription{
		events.Subscribe[any](b.bus, events.ClientTopic(clientID), deliver),
		events.Subscribe[any](b.bus, events.TopicBroadcast, deliver),
	}

	b.mu.Lock()
	b.clients[clientID] = sess
	b.mu.Unlock()

	log.Info("client connected", "clientId", clientID)

	b.handleClientFrame(sess, first, log)
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		b.handleClientFrame(sess, msg, log)
	}

	log.Info("client disconnected", "clientId", clientID)
	b.mu.Lock()
	delete(b.clients, clientID)
	b.mu.Unlock()
	sess.close()
}

// handleClientFrame parses one client frame as a Request and
// dispatches it. Malformed JSON is dropped silently, matching spec
// §4.1's transport-layer failure semantics.
func (b *Broker) handleClientFrame(sess *clientSession, data []byte, log *slog.Logger) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	if req.ID == "" || req.Action == "" {
		return
	}
	b.dispatch(sess, req, log)
}

// dispatch is the broker's core request-multiplexing step, spec
// §4.1: mint a broker-local id distinct from the client's, inject
// tuning, forward to the extension, and record a deadline so a slow
// or vanished extension resolves as command-timeout rather than
// hanging the client forever.
func (b *Broker) dispatch(sess *clientSession, req protocol.Request, log *slog.Logger) {
	b.mu.RLock()
	ext := b.ext
	b.mu.RUnlock()

	if ext == nil {
		events.Emit[any](b.bus, events.ClientTopic(sess.id), protocol.Response{
			ID:    req.ID,
			Error: protocol.ErrExtensionNotConnected.Error(),
		})
		return
	}

	params, requestedTimeout, err := injectTuning(req.Params, protocol.Action(req.Action), b.store.Get())
	if err != nil {
		events.Emit[any](b.bus, events.ClientTopic(sess.id), protocol.Response{
			ID:    req.ID,
			Error: protocol.ErrInvalidParams.Error(),
		})
		return
	}

	b.mu.Lock()
	b.nextID++
	brokerID := fmt.Sprintf("b_%d", b.nextID)
	deadline := protocol.BrokerDeadline(requestedTimeout)
	b.pending[brokerID] = &pendingRequest{
		clientID:    sess.id,
		clientReqID: req.ID,
		action:      req.Action,
		timer: time.AfterFunc(deadline, func() {
			b.onTimeout(brokerID)
		}),
	}
	b.mu.Unlock()

	forwardReq := protocol.Request{ID: brokerID, TabID: req.TabID, Action: req.Action, Params: params}
	if err := ext.writeJSON(forwardReq); err != nil {
		b.mu.Lock()
		if p, ok := b.pending[brokerID]; ok {
			p.timer.Stop()
			delete(b.pending, brokerID)
		}
		b.mu.Unlock()
		events.Emit[any](b.bus, events.ClientTopic(sess.id), protocol.Response{
			ID:    req.ID,
			Error: protocol.ErrExtensionDisconnected.Error(),
		})
		return
	}

	log.Debug("forwarded to extension", "brokerId", brokerID, "clientId", sess.id, "action", req.Action)
}

// onTimeout fires when a forwarded request's deadline elapses with no
// extension reply.
func (b *Broker) onTimeout(brokerID string) {
	b.mu.Lock()
	p, ok := b.pending[brokerID]
	if ok {
		delete(b.pending, brokerID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	b.replyError(p, protocol.ErrCommandTimeout.Error())
}

// injectTuning implements spec §4.1's tuning-injection step. Returns
// the (possibly rewritten) params and the request's own requested
// timeout in milliseconds, read before injection so the field name
// stays "timeout" regardless of which tuning fields get attached.
func injectTuning(raw json.RawMessage, action protocol.Action, snapshot tuning.Tuning) (json.RawMessage, float64, error) {
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, 0, err
		}
	}

	var requestedTimeout float64
	if v, ok := m["timeout"].(float64); ok {
		requestedTimeout = v
	}

	if !action.NeedsTuning() {
		return raw, requestedTimeout, nil
	}
	m[protocol.ReservedTuningField] = snapshot

	if action.NeedsAvoidMerge() {
		var reqAvoid tuning.Ruleset
		if av, ok := m["avoid"]; ok {
			if b, err := json.Marshal(av); err == nil {
				json.Unmarshal(b, &reqAvoid)
			}
		}
		m["avoid"] = snapshot.Avoid.Union(reqAvoid)

		cfg := map[string]any{"click": snapshot.Click, "type": snapshot.Type, "scroll": snapshot.Scroll}
		if existing, ok := m["config"].(map[string]any); ok {
			for k, v := range existing {
				cfg[k] = v
			}
		}
		m["config"] = cfg
	}

	out, err := json.Marshal(m)
	return out, requestedTimeout, err
}
