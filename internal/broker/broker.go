// Package broker implements the loopback WebSocket relay described in
// spec §4.1: a single listener that classifies every inbound
// connection on its first message (a handshake becomes the one
// extension session; anything else becomes a client session), then
// multiplexes client requests across that one extension connection,
// injects runtime tuning, fans out extension-originated events, and
// keeps the extension connection alive.
//
// Grounded throughout on NeboLoop-nebo's internal/browser/relay.go —
// the same connection-classification, request-multiplexing, and
// event-fan-out shape, generalized from relaying the Chromium
// DevTools Protocol to relaying ghostwire's own protocol.Request/
// Response/Event envelope, and with relay.go's single shared-secret
// RelayAuthHeader replaced by a signed, expiring JWT (see auth.go).
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ghostwire/ghostwire/internal/events"
	"github.com/ghostwire/ghostwire/internal/logging"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// keepaliveInterval is the extension-socket ping cadence from spec
// §4.1 ("every 20s the broker sends {type:"ping"}"), distinct from
// relay.go's 5s CDP-debugging cadence — ghostwire's extension is not
// juggling a live debugger session, so a slower heartbeat suffices.
const keepaliveInterval = 20 * time.Second

// Broker is the loopback relay. One Broker serves exactly one
// extension session and any number of client sessions.
type Broker struct {
	mu      sync.RWMutex
	clients map[string]*clientSession
	ext     *extensionSession
	pending map[string]*pendingRequest
	nextID  int64
	closed  bool

	connectCh chan struct{} // closed and replaced whenever an extension connects

	store *tuning.Store
	bus   *events.Subject
	auth  *authIssuer

	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Broker backed by store for its runtime tuning record.
// The caller owns store's lifecycle (file watching, reload) — the
// broker only ever calls store.Get().
func New(store *tuning.Store) (*Broker, error) {
	auth, err := newAuthIssuer()
	if err != nil {
		return nil, fmt.Errorf("create auth issuer: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		clients:   make(map[string]*clientSession),
		pending:   make(map[string]*pendingRequest),
		connectCh: make(chan struct{}),
		store:     store,
		bus:       events.NewSubject(events.WithSyncDelivery(), events.WithBufferSize(256)),
		auth:      auth,
		ctx:       ctx,
		cancel:    cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				// Every origin is accepted; the broker's loopback
				// bind is the real boundary, same posture as
				// relay.go's upgrader.
				return true
			},
		},
	}
	return b, nil
}

// Router mounts the broker's HTTP surface: the single classifying
// WebSocket endpoint and a health probe, grounded on relay.go's
// Handler() (chi.NewRouter, one route per concern) and
// raiden-staging-kernel-images's inline /health pattern.
func (b *Broker) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", b.handleHealth)
	r.HandleFunc("/ws", b.handleWS)
	return r
}

func (b *Broker) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	b.mu.RLock()
	connected := b.ext != nil
	clients := len(b.clients)
	b.mu.RUnlock()
	fmt.Fprintf(w, `{"status":"ok","extensionConnected":%t,"clients":%d}`, connected, clients)
}

// AuthToken mints a 24h loopback relay token, for callers that need
// to reach the broker from a non-loopback address during development.
func (b *Broker) AuthToken() (string, error) {
	return b.auth.mint(24 * time.Hour)
}

// ExtensionConnected reports whether the one extension session is
// currently live.
func (b *Broker) ExtensionConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ext != nil
}

// WaitForConnection blocks until an extension handshake arrives or
// ctx is done, matching spec §4.1's waitForConnection().
func (b *Broker) WaitForConnection(ctx context.Context) error {
	b.mu.RLock()
	if b.ext != nil {
		b.mu.RUnlock()
		return nil
	}
	ch := b.connectCh
	b.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down all sockets, cancels the keepalive, and fails all
// pending requests — spec §4.1's close().
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.cancel()

	if b.ext != nil {
		b.ext.ws.Close()
		b.ext = nil
	}
	for id, c := range b.clients {
		c.close()
		delete(b.clients, id)
	}
	b.failAllPending(protocol.ErrConnectionTimeout)
	b.mu.Unlock()

	events.Complete(b.bus)
	return nil
}

// failAllPending rejects every outstanding request with err. Caller
// must hold b.mu.
func (b *Broker) failAllPending(err error) {
	for id, p := range b.pending {
		p.timer.Stop()
		b.replyError(p, err.Error())
		delete(b.pending, id)
	}
}

// replyError emits a {id, error} response on the client's own topic.
// If the client has already disconnected, Emit simply has no
// subscriber and the call is a no-op — matching spec §4.1's "late
// replies are dropped silently" failure semantics.
func (b *Broker) replyError(p *pendingRequest, message string) {
	events.Emit[any](b.bus, events.ClientTopic(p.clientID), protocol.Response{
		ID:    p.clientReqID,
		Error: message,
	})
}

// handleWS upgrades the connection and classifies it on its first
// frame, per spec §4.1. Grounded on relay.go's HandleExtensionWS/
// HandleCdpWS pair, merged into one handler because ghostwire, unlike
// the teacher, does not pre-split extension and CDP-client traffic
// onto separate paths.
func (b *Broker) handleWS(w http.ResponseWriter, req *http.Request) {
	if !b.checkAuth(req) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := b.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	log := logging.FromContext(req.Context())

	_, first, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return
	}

	if protocol.IsHandshake(first) {
		var hs protocol.Handshake
		if err := json.Unmarshal(first, &hs); err != nil {
			ws.Close()
			return
		}
		b.runExtensionSession(ws, hs, log)
		return
	}

	clientID := uuid.NewString()
	b.runClientSession(clientID, ws, first, log)
}
