package transport

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const handshakeTimeout = 10 * time.Second

// receiveSocket is the inbound TCP connection identifying a neighbor, after
// its handshake has been validated.
type receiveSocket struct {
	neighbor *Neighbor
	conn     net.Conn

	// silenced is set before the transport itself closes this socket (by
	// RemoveNeighbor, Shutdown, or a replacing acceptInbound), so the read
	// loop skips emitting an error for a close it didn't originate from the
	// peer.
	silenced atomic.Bool
}

// acceptInbound runs the handshake and framed read loop for one accepted
// connection. It owns conn end to end: every exit path closes it, including
// when RemoveNeighbor, Shutdown or a replacing connection already has.
func (t *Transport) acceptInbound(conn net.Conn) {
	log := logrus.WithFields(logrus.Fields{
		"function":    "Transport.acceptInbound",
		"remote_addr": conn.RemoteAddr().String(),
	})

	remotePort, ok := t.readHandshake(conn, log)
	if !ok {
		return
	}

	remoteHost := hostOf(conn.RemoteAddr())

	neighbor, ok := t.resolveInboundNeighbor(remoteHost, remotePort, log)
	if !ok {
		conn.Close()
		return
	}

	if !neighbor.GatewayCanReceiveFrom {
		log.WithField("neighbor", neighbor.String()).Debug("neighbor forbids receiving, dropping connection")
		conn.Close()
		return
	}

	socket := &receiveSocket{neighbor: neighbor, conn: conn}

	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		log.Debug("transport stopped mid-handshake, discarding inbound connection")
		conn.Close()
		return
	}
	old, hadOld := t.receiveSockets[neighbor]
	t.receiveSockets[neighbor] = socket
	t.mu.Unlock()

	if hadOld {
		log.WithField("neighbor", neighbor.String()).Debug("replacing stale receive socket for neighbor")
		old.silenced.Store(true)
		old.conn.Close()
	}

	log.WithField("neighbor", neighbor.String()).Info("accepted inbound connection")
	t.framedReadLoop(socket, remoteHost)
}

// readHandshake reads exactly handshakeSize bytes within handshakeTimeout
// and validates them. It reports ok=false (connection already closed) on
// timeout, any other read error, or an invalid payload — all silent per
// the propagation policy.
func (t *Transport) readHandshake(conn net.Conn, log *logrus.Entry) (uint16, bool) {
	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		conn.Close()
		return 0, false
	}

	buf := make([]byte, handshakeSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		log.WithError(err).Debug("handshake read failed or timed out")
		conn.Close()
		return 0, false
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return 0, false
	}

	port, err := decodeHandshake(buf)
	if err != nil {
		log.WithError(err).Debug("invalid handshake payload")
		conn.Close()
		return 0, false
	}

	return port, true
}

// resolveInboundNeighbor finds the known neighbor matching remoteHost, or
// synthesizes one when Config.ReceiveUnknownNeighbor allows it.
func (t *Transport) resolveInboundNeighbor(remoteHost string, remotePort uint16, log *logrus.Entry) (*Neighbor, bool) {
	if n := t.GetNeighbor(remoteHost); n != nil {
		return n, true
	}

	if !t.config.ReceiveUnknownNeighbor {
		log.WithField("remote_host", remoteHost).Debug("unknown neighbor, receiveUnknownNeighbor disabled")
		return nil, false
	}

	neighbor := NewNeighbor(remoteHost, remotePort)
	if err := t.AddNeighbor(neighbor); err != nil {
		log.WithError(err).Warn("failed to register synthesized neighbor")
		return nil, false
	}
	log.WithField("neighbor", neighbor.String()).Info("admitted unknown neighbor")
	t.emitNeighbor(neighbor)

	return neighbor, true
}

// framedReadLoop feeds incoming bytes through the packet framer and emits a
// receive event per decoded block, until the connection closes or errors.
func (t *Transport) framedReadLoop(socket *receiveSocket, remoteAddr string) {
	f := newFramer(t.config.Packer.PacketSize())
	buf := make([]byte, 4096)

	for {
		n, err := socket.conn.Read(buf)
		if n > 0 {
			for _, block := range f.feed(buf[:n]) {
				tx, unpackErr := t.config.Packer.Unpack(block)
				if unpackErr != nil {
					t.emitError(&SocketError{Neighbor: socket.neighbor, Err: unpackErr})
					continue
				}
				t.emitReceive(tx.Data, socket.neighbor, remoteAddr)
			}
		}
		if err != nil {
			t.closeReceiveSocket(socket, err)
			return
		}
	}
}

func (t *Transport) closeReceiveSocket(socket *receiveSocket, err error) {
	t.mu.Lock()
	if t.receiveSockets[socket.neighbor] == socket {
		delete(t.receiveSockets, socket.neighbor)
	}
	t.mu.Unlock()

	socket.conn.Close()

	if !socket.silenced.Load() && err != io.EOF && !errors.Is(err, net.ErrClosed) {
		t.emitError(&SocketError{Neighbor: socket.neighbor, Err: err})
	}
}

// hostOf extracts the host portion of a net.Addr, falling back to its full
// string form if it cannot be split.
func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
