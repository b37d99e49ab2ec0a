package transport

import (
	"time"

	"github.com/alexpods/iota-transport-tcp/txn"
)

// defaultReconnectionInterval is the period between reconnection attempts
// when Config.ReconnectionInterval is unset.
const defaultReconnectionInterval = 60 * time.Second

// Config is the transport's configuration, passed by value into New.
type Config struct {
	// Host is the listener bind address. Defaults to "0.0.0.0".
	Host string

	// Port is the listener bind port, also announced in the outbound
	// handshake. Required.
	Port uint16

	// Packer provides packetSize and the pack/unpack pure functions.
	// Required.
	Packer txn.Packer

	// ReconnectionInterval is the period between reconnection attempts.
	// Defaults to 60 seconds.
	ReconnectionInterval time.Duration

	// ReceiveUnknownNeighbor, if true, synthesizes and admits neighbors from
	// inbound connections whose source address matches no known neighbor.
	ReceiveUnknownNeighbor bool
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.ReconnectionInterval <= 0 {
		c.ReconnectionInterval = defaultReconnectionInterval
	}
	return c
}
