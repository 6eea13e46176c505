package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// Bridge is the page-bridge process (spec §4.2): it owns one
// tabInstance per live tab, dispatches every inbound command across
// the three execution paths named there, and emits events back to
// whatever transport is listening (normally internal/bridge/conn.go's
// outbound connection to the broker).
type Bridge struct {
	mu         sync.Mutex
	host       BrowserHost
	store      *tuning.Store
	tabs       map[int64]*tabInstance
	lastCursor map[int64]domhost.Point

	emit func(protocol.Event)
}

// New builds a Bridge against host, using store for the tuning
// snapshot that seeds each tabInstance's handle TTL. Params already
// arrive pre-tuned by the broker (spec §4.1) — the bridge reads store
// for the handle registry lifecycle, for the dom.* tuning fallback, and
// for framework.getConfig/setConfig/reload (setConfig merges into it).
func New(host BrowserHost, store *tuning.Store) *Bridge {
	return &Bridge{
		host:       host,
		store:      store,
		tabs:       make(map[int64]*tabInstance),
		lastCursor: make(map[int64]domhost.Point),
		emit:       func(protocol.Event) {},
	}
}

// SetEventSink installs fn as the destination for events the bridge
// emits: urlChanged after tabs.navigate and cookiesChanged after
// cookies.set; it emits no response events. conn.go calls this
// with a function that forwards onto the broker's WebSocket.
func (br *Bridge) SetEventSink(fn func(protocol.Event)) {
	br.mu.Lock()
	br.emit = fn
	br.mu.Unlock()
}

func (br *Bridge) emitEvent(kind protocol.EventKind, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	br.mu.Lock()
	sink := br.emit
	br.mu.Unlock()
	sink(protocol.Event{Type: "event", Event: string(kind), Data: data})
}

// Dispatch runs req through the three execution paths of spec §4.2 and
// returns the response to hand back over the wire, with req.ID
// preserved as-is: the bridge never renumbers requests — that is the
// broker's job (spec §4.1).
func (br *Bridge) Dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	action := protocol.Action(req.Action)

	result, err := br.route(ctx, req.TabID, action, req.Params)
	if err != nil {
		return protocol.Response{ID: req.ID, Error: err.Error()}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return protocol.Response{ID: req.ID, Error: protocol.ErrInvalidParams.Error()}
	}
	return protocol.Response{ID: req.ID, Result: raw}
}
