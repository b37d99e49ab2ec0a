package transport

import (
	"fmt"
	"regexp"
	"strconv"
)

// handshakeSize is the fixed length, in bytes, of the port-announcement
// handshake that precedes application packets on every connection.
const handshakeSize = 10

var handshakePattern = regexp.MustCompile(`^[0-9]{10}$`)

// encodeHandshake renders port as exactly handshakeSize ASCII digits,
// zero-padded on the left (port 3000 -> "0000003000").
func encodeHandshake(port uint16) []byte {
	return []byte(fmt.Sprintf("%0*d", handshakeSize, port))
}

// decodeHandshake validates a handshake payload and parses the remote
// listening port it announces. A payload that is not exactly handshakeSize
// ASCII digits is rejected with handshakeInvalidError.
func decodeHandshake(payload []byte) (uint16, error) {
	text := string(payload)
	if !handshakePattern.MatchString(text) {
		return 0, &handshakeInvalidError{Text: text}
	}

	port, err := strconv.ParseUint(text, 10, 32)
	if err != nil || port > 65535 {
		return 0, &handshakeInvalidError{Text: text}
	}

	return uint16(port), nil
}
