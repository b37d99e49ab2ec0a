package transport

import (
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// sendSocket is the outbound TCP connection to a neighbor, plus the close
// bookkeeping connect/disconnect coordinate on.
type sendSocket struct {
	neighbor *Neighbor
	conn     net.Conn

	// closedCh is closed exactly once, by watch, when the read used to
	// detect peer close returns. disconnect awaits it.
	closedCh chan struct{}

	// intentional is set before disconnect closes the connection, so watch
	// can tell a requested close from an unexpected one and skip emitting
	// an error for the former.
	intentional atomic.Bool
}

// connect opens a TCP connection to neighbor, writes the handshake, and (if
// the transport is still running and neighbor still known) registers it as
// the neighbor's send socket.
func (t *Transport) connect(neighbor *Neighbor) error {
	log := logrus.WithFields(logrus.Fields{
		"function": "Transport.connect",
		"neighbor": neighbor.String(),
	})
	log.Debug("dialing neighbor")

	conn, err := net.Dial("tcp4", neighbor.Address())
	if err != nil {
		log.WithError(err).Debug("dial failed")
		return &ConnectError{Neighbor: neighbor, Err: err}
	}

	if _, err := conn.Write(encodeHandshake(t.listenerPortValue())); err != nil {
		conn.Close()
		log.WithError(err).Debug("handshake write failed")
		return &ConnectError{Neighbor: neighbor, Err: err}
	}

	socket := &sendSocket{neighbor: neighbor, conn: conn, closedCh: make(chan struct{})}

	t.mu.Lock()
	if !t.running || !t.neighbors.has(neighbor) {
		t.mu.Unlock()
		conn.Close()
		log.Debug("neighbor removed or transport stopped mid-connect, discarding socket")
		return &ConnectError{Neighbor: neighbor, Err: errConnectAborted}
	}
	t.sendSockets[neighbor] = socket
	t.mu.Unlock()

	go t.watchSendSocket(neighbor, socket)

	log.Info("connected to neighbor")
	return nil
}

// watchSendSocket detects the send socket's close by blocking on a read
// that is never expected to produce application data (the socket is
// write-only from this side). It removes the socket-map entry exactly
// once, atomically with the close it observed.
func (t *Transport) watchSendSocket(neighbor *Neighbor, socket *sendSocket) {
	buf := make([]byte, 1)
	for {
		_, err := socket.conn.Read(buf)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"function": "Transport.watchSendSocket",
				"neighbor": neighbor.String(),
			}).Warn("unexpected inbound byte on send-only socket, ignoring")
			continue
		}

		t.mu.Lock()
		if t.sendSockets[neighbor] == socket {
			delete(t.sendSockets, neighbor)
		}
		t.mu.Unlock()

		if !socket.intentional.Load() && err != io.EOF && !errors.Is(err, net.ErrClosed) {
			t.emitError(&SocketError{Neighbor: neighbor, Err: err})
		}

		close(socket.closedCh)
		return
	}
}

// disconnect closes neighbor's send socket, if any, and waits for
// watchSendSocket to observe the close and remove the map entry. It never
// returns an error — a disconnect must never fail the caller.
func (t *Transport) disconnect(neighbor *Neighbor) {
	t.mu.Lock()
	socket, ok := t.sendSockets[neighbor]
	t.mu.Unlock()
	if !ok {
		return
	}

	socket.intentional.Store(true)
	socket.conn.Close()
	<-socket.closedCh
}
