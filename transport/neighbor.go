package transport

import (
	"net"
	"strconv"
)

// Neighbor is a peer endpoint identity: a host, a port, and the permissions
// the local gateway grants it. Two Neighbors are equal by identity, not by
// value — the transport tracks them by pointer, never by the tuple of
// fields, so adding two Neighbor values with identical fields produces two
// distinct entries.
type Neighbor struct {
	// Host is matched against a remote peer's address by plain string
	// equality. It is not resolved or normalized.
	Host string

	// Port is the neighbor's TCP listening port.
	Port uint16

	// GatewayCanSendTo allows Send to write to this neighbor.
	GatewayCanSendTo bool

	// GatewayCanReceiveFrom allows inbound packets from this neighbor to be
	// emitted as receive events.
	GatewayCanReceiveFrom bool
}

// NewNeighbor creates a Neighbor with both permissions granted.
func NewNeighbor(host string, port uint16) *Neighbor {
	return &Neighbor{
		Host:                  host,
		Port:                  port,
		GatewayCanSendTo:      true,
		GatewayCanReceiveFrom: true,
	}
}

// Match reports whether addr is the remote address this neighbor claims.
// The reference behavior is case-sensitive host-string equality.
func (n *Neighbor) Match(addr string) bool {
	return n.Host == addr
}

// Address renders the neighbor's host:port for dialing.
func (n *Neighbor) Address() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(int(n.Port)))
}

// String renders the neighbor for log fields.
func (n *Neighbor) String() string {
	return n.Address()
}

// neighborTable holds the set of known neighbors in insertion order, so
// getNeighbor can return the first match the way addNeighbor added them.
type neighborTable struct {
	order []*Neighbor
	index map[*Neighbor]int
}

func newNeighborTable() *neighborTable {
	return &neighborTable{index: make(map[*Neighbor]int)}
}

func (t *neighborTable) has(n *Neighbor) bool {
	_, ok := t.index[n]
	return ok
}

func (t *neighborTable) add(n *Neighbor) {
	t.index[n] = len(t.order)
	t.order = append(t.order, n)
}

func (t *neighborTable) remove(n *Neighbor) {
	idx, ok := t.index[n]
	if !ok {
		return
	}
	t.order = append(t.order[:idx], t.order[idx+1:]...)
	delete(t.index, n)
	for i := idx; i < len(t.order); i++ {
		t.index[t.order[i]] = i
	}
}

func (t *neighborTable) findMatch(addr string) *Neighbor {
	for _, n := range t.order {
		if n.Match(addr) {
			return n
		}
	}
	return nil
}

func (t *neighborTable) all() []*Neighbor {
	out := make([]*Neighbor, len(t.order))
	copy(out, t.order)
	return out
}
