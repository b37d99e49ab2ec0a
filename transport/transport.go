package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/alexpods/iota-transport-tcp/txn"
)

// Transport is a TCP transport for a peer-to-peer gateway: it owns an
// inbound listener, a set of outbound connections to configured neighbors,
// a periodic reconnection loop, and the framing that delivers fixed-size
// packets to the registered handlers.
//
// All mutations of the neighbor set, the two socket maps, and the
// reconnection set happen under mu — the transport does not tolerate
// interleaved mutation of that state.
type Transport struct {
	mu sync.Mutex

	config Config

	neighbors      *neighborTable
	sendSockets    map[*Neighbor]*sendSocket
	receiveSockets map[*Neighbor]*receiveSocket
	needsReconnect map[*Neighbor]struct{}

	running  bool
	listener net.Listener

	// listenerPort is the bound listener port, announced in outbound
	// handshakes. Stored separately from config.Port because Run reads it
	// back from the listener, so a Port of 0 resolves to the ephemeral port
	// the OS picked.
	listenerPort atomic.Uint32

	acceptCancel context.CancelFunc
	acceptDone   chan struct{}

	reconnectCancel context.CancelFunc

	clock clock

	handlerMu  sync.RWMutex
	onReceive  ReceiveHandler
	onNeighbor NeighborHandler
	onError    ErrorHandler
}

// New creates a Transport in the IDLE state. Call Run to start it.
func New(config Config) *Transport {
	return &Transport{
		config:         config.withDefaults(),
		neighbors:      newNeighborTable(),
		sendSockets:    make(map[*Neighbor]*sendSocket),
		receiveSockets: make(map[*Neighbor]*receiveSocket),
		needsReconnect: make(map[*Neighbor]struct{}),
		clock:          realClock{},
	}
}

// Supports reports whether n is a neighbor this transport can handle. This
// transport only ever has one variant, so the answer is simply whether n is
// non-nil.
func (t *Transport) Supports(n *Neighbor) bool {
	return n != nil
}

// IsRunning reports the transport's current state.
func (t *Transport) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// IsConnectedTo reports whether n currently has a live send socket.
func (t *Transport) IsConnectedTo(n *Neighbor) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sendSockets[n]
	return ok
}

// GetNeighbor returns the first known neighbor, in insertion order, whose
// Match(addr) is true, or nil if none matches.
func (t *Transport) GetNeighbor(addr string) *Neighbor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.neighbors.findMatch(addr)
}

// AddNeighbor registers n. If the transport is running, it attempts an
// immediate connect; a failed connect is folded into needsReconnect and
// never rejects the caller — only a duplicate neighbor does.
func (t *Transport) AddNeighbor(n *Neighbor) error {
	t.mu.Lock()
	if t.neighbors.has(n) {
		t.mu.Unlock()
		return ErrAlreadyExists
	}
	t.neighbors.add(n)
	running := t.running
	t.mu.Unlock()

	if !running {
		return nil
	}

	if err := t.connect(n); err != nil && !errors.Is(err, errConnectAborted) {
		logrus.WithFields(logrus.Fields{
			"function": "Transport.AddNeighbor",
			"neighbor": n.String(),
		}).WithError(err).Debug("initial connect failed, scheduling for reconnection")
		t.mu.Lock()
		t.needsReconnect[n] = struct{}{}
		t.mu.Unlock()
	}

	return nil
}

// RemoveNeighbor destroys any sockets n owns and drops it from the
// neighbor table. It fails with ErrNotFound if n is not known.
func (t *Transport) RemoveNeighbor(n *Neighbor) error {
	t.mu.Lock()
	if !t.neighbors.has(n) {
		t.mu.Unlock()
		return ErrNotFound
	}
	rs, hasReceive := t.receiveSockets[n]
	if hasReceive {
		rs.silenced.Store(true)
		delete(t.receiveSockets, n)
	}
	t.mu.Unlock()

	if hasReceive {
		rs.conn.Close()
	}

	t.disconnect(n)

	t.mu.Lock()
	delete(t.needsReconnect, n)
	t.neighbors.remove(n)
	t.mu.Unlock()

	return nil
}

// Send writes data to neighbor's send socket, fully packed by Config.Packer.
func (t *Transport) Send(tx txn.Transaction, n *Neighbor) error {
	if !n.GatewayCanSendTo {
		return ErrSendForbidden
	}

	t.mu.Lock()
	socket, ok := t.sendSockets[n]
	t.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	packet, err := t.config.Packer.Pack(tx)
	if err != nil {
		return err
	}

	if _, err := socket.conn.Write(packet); err != nil {
		return &SocketError{Neighbor: n, Err: err}
	}

	return nil
}

// Run binds the listener, attempts an initial connect for every known
// neighbor, arms the reconnection loop, and transitions to RUNNING.
func (t *Transport) Run() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	t.mu.Unlock()

	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(int(t.config.Port)))
	listener, err := net.Listen("tcp4", addr)
	if err != nil {
		return &ListenError{Err: err}
	}

	boundPort := listener.Addr().(*net.TCPAddr).Port
	t.listenerPort.Store(uint32(boundPort))

	t.mu.Lock()
	t.listener = listener
	t.running = true
	initial := t.neighbors.all()
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	t.acceptCancel = cancel
	t.acceptDone = make(chan struct{})
	go t.acceptLoop(ctx, listener)

	t.connectInitialNeighbors(initial)
	t.armReconnectLoop()

	logrus.WithFields(logrus.Fields{
		"function": "Transport.Run",
		"host":     t.config.Host,
		"port":     t.config.Port,
	}).Info("transport running")

	return nil
}

func (t *Transport) connectInitialNeighbors(neighbors []*Neighbor) {
	var wg sync.WaitGroup
	for _, n := range neighbors {
		wg.Add(1)
		go func(n *Neighbor) {
			defer wg.Done()
			if err := t.connect(n); err != nil && !errors.Is(err, errConnectAborted) {
				t.mu.Lock()
				t.needsReconnect[n] = struct{}{}
				t.mu.Unlock()
			}
		}(n)
	}
	wg.Wait()
}

// Shutdown closes every send socket, stops accepting connections, disarms
// the reconnection loop, and transitions to IDLE. Receive sockets are also
// closed here for a clean shutdown, a deliberate strengthening of the
// reference behavior (which leaves them for their peers to close).
func (t *Transport) Shutdown() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return ErrNotRunning
	}
	t.running = false

	sendTargets := make([]*Neighbor, 0, len(t.sendSockets))
	for n := range t.sendSockets {
		sendTargets = append(sendTargets, n)
	}
	receiveTargets := make([]*receiveSocket, 0, len(t.receiveSockets))
	for n, rs := range t.receiveSockets {
		rs.silenced.Store(true)
		receiveTargets = append(receiveTargets, rs)
		delete(t.receiveSockets, n)
	}
	listener := t.listener
	t.mu.Unlock()

	if t.acceptCancel != nil {
		t.acceptCancel()
	}

	var wg sync.WaitGroup
	for _, n := range sendTargets {
		wg.Add(1)
		go func(n *Neighbor) {
			defer wg.Done()
			t.disconnect(n)
		}(n)
	}
	for _, rs := range receiveTargets {
		rs.conn.Close()
	}
	wg.Wait()

	if listener != nil {
		listener.Close()
	}
	if t.acceptDone != nil {
		<-t.acceptDone
	}

	t.disarmReconnectLoop()

	logrus.WithFields(logrus.Fields{
		"function": "Transport.Shutdown",
	}).Info("transport shut down")

	return nil
}

func (t *Transport) listenerPortValue() uint16 {
	return uint16(t.listenerPort.Load())
}

// LocalPort returns the bound listener port. It is only meaningful once Run
// has succeeded; useful when Config.Port is 0 and the OS picked an
// ephemeral port.
func (t *Transport) LocalPort() uint16 {
	return t.listenerPortValue()
}

// acceptLoop accepts inbound connections until ctx is cancelled by
// Shutdown. A listener error while ctx is still live is unexpected and is
// surfaced on the transport's error channel; the loop then stops, since a
// broken listener cannot usefully keep accepting.
func (t *Transport) acceptLoop(ctx context.Context, listener net.Listener) {
	defer close(t.acceptDone)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.emitError(&ListenError{Err: err})
			return
		}

		go t.acceptInbound(conn)
	}
}
