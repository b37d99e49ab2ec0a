// Package transport implements a TCP transport for a peer-to-peer gateway
// that exchanges fixed-size application packets between known neighbors.
//
// A Transport owns an inbound listener, a set of outbound connections to
// configured neighbors, a periodic reconnection loop, and the framing
// discipline that turns a TCP byte stream into exact-length packets. Each
// neighbor has at most one send socket and at most one receive socket;
// the two are opened independently, one by each side of the connection.
//
// Example:
//
//	tr := transport.New(transport.Config{
//	    Port:   3000,
//	    Packer: txn.NewFixedPacker(256),
//	})
//	tr.OnReceive(func(data txn.Data, n *transport.Neighbor, addr string) {
//	    log.Printf("received %d bytes from %s", len(data), addr)
//	})
//	if err := tr.Run(); err != nil {
//	    log.Fatal(err)
//	}
//	defer tr.Shutdown()
package transport
