package transport

import "github.com/alexpods/iota-transport-tcp/txn"

// ReceiveHandler is invoked once per successfully decoded inbound packet.
type ReceiveHandler func(data txn.Data, neighbor *Neighbor, remoteAddr string)

// NeighborHandler is invoked once per auto-discovered neighbor, when
// Config.ReceiveUnknownNeighbor is enabled.
type NeighborHandler func(neighbor *Neighbor)

// ErrorHandler is invoked for non-fatal errors on accepted or connected
// sockets, and for listener errors.
type ErrorHandler func(err error)

// OnReceive registers the handler for inbound packets. Registering again
// replaces the previous handler; there is exactly one slot per event kind,
// the same scoped-registration model as the other two On* methods.
func (t *Transport) OnReceive(h ReceiveHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.onReceive = h
}

// OnNeighbor registers the handler for auto-discovered neighbors.
func (t *Transport) OnNeighbor(h NeighborHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.onNeighbor = h
}

// OnError registers the handler for non-fatal transport errors.
func (t *Transport) OnError(h ErrorHandler) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()
	t.onError = h
}

func (t *Transport) emitReceive(data txn.Data, neighbor *Neighbor, remoteAddr string) {
	t.handlerMu.RLock()
	h := t.onReceive
	t.handlerMu.RUnlock()
	if h != nil {
		h(data, neighbor, remoteAddr)
	}
}

func (t *Transport) emitNeighbor(neighbor *Neighbor) {
	t.handlerMu.RLock()
	h := t.onNeighbor
	t.handlerMu.RUnlock()
	if h != nil {
		h(neighbor)
	}
}

func (t *Transport) emitError(err error) {
	t.handlerMu.RLock()
	h := t.onError
	t.handlerMu.RUnlock()
	if h != nil {
		h(err)
	}
}
