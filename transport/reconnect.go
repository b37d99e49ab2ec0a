package transport

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// armReconnectLoop starts the periodic reconnection goroutine. Rescheduling
// is unconditional while armed: each tick waits for the configured interval,
// attempts every neighbor currently in needsReconnect, waits for all
// attempts to settle, then waits the interval again (tick-after-drain, not
// fixed-rate).
func (t *Transport) armReconnectLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	t.reconnectCancel = cancel

	go t.reconnectLoop(ctx)
}

// disarmReconnectLoop cancels the pending wait and clears needsReconnect.
// It does not wait for an in-flight tick's connect attempts to finish; it
// only stops the next one from being scheduled.
func (t *Transport) disarmReconnectLoop() {
	if t.reconnectCancel != nil {
		t.reconnectCancel()
		t.reconnectCancel = nil
	}

	t.mu.Lock()
	t.needsReconnect = make(map[*Neighbor]struct{})
	t.mu.Unlock()
}

func (t *Transport) reconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(t.config.ReconnectionInterval):
		}

		if ctx.Err() != nil {
			return
		}

		t.runReconnectTick(ctx)
	}
}

// runReconnectTick attempts connect for every neighbor currently in
// needsReconnect, concurrently, and waits for every attempt to settle
// before returning.
func (t *Transport) runReconnectTick(ctx context.Context) {
	t.mu.Lock()
	targets := make([]*Neighbor, 0, len(t.needsReconnect))
	for n := range t.needsReconnect {
		targets = append(targets, n)
	}
	t.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, n := range targets {
		wg.Add(1)
		go func(n *Neighbor) {
			defer wg.Done()
			t.attemptReconnect(ctx, n)
		}(n)
	}
	wg.Wait()
}

func (t *Transport) attemptReconnect(ctx context.Context, n *Neighbor) {
	if ctx.Err() != nil {
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"function": "Transport.attemptReconnect",
		"neighbor": n.String(),
	})

	if err := t.connect(n); err != nil {
		log.WithError(err).Debug("reconnection attempt failed, leaving in needsReconnect")
		return
	}

	if ctx.Err() != nil {
		// Shutdown raced the successful connect; disconnect immediately
		// rather than leave a socket that outlives the transport state.
		t.disconnect(n)
		return
	}

	t.mu.Lock()
	delete(t.needsReconnect, n)
	t.mu.Unlock()

	log.Info("reconnected to neighbor")
}
