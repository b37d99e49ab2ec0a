package transport

import (
	"strings"
	"testing"
)

func TestNeighborMatchIsCaseSensitiveStringEquality(t *testing.T) {
	n := NewNeighbor("192.168.1.5", 3000)

	if !n.Match("192.168.1.5") {
		t.Error("expected exact host match to succeed")
	}
	if n.Match("192.168.1.6") {
		t.Error("expected different host to not match")
	}
	if n.Match("192.168.1.5 ") {
		t.Error("expected trailing whitespace to not match")
	}
	named := NewNeighbor("gateway.local", 3000)
	if named.Match(strings.ToUpper("gateway.local")) {
		t.Error("expected case-sensitive comparison")
	}
}

func TestNeighborIdentityNotValue(t *testing.T) {
	a := NewNeighbor("10.0.0.1", 4000)
	b := NewNeighbor("10.0.0.1", 4000)

	table := newNeighborTable()
	table.add(a)

	if table.has(b) {
		t.Error("two Neighbor values with identical fields must be distinct identities")
	}
	if !table.has(a) {
		t.Error("the neighbor actually added must be found")
	}
}

func TestNeighborTableInsertionOrder(t *testing.T) {
	table := newNeighborTable()

	a := NewNeighbor("host-a", 1)
	b := NewNeighbor("host-a", 2) // same host, different identity
	table.add(a)
	table.add(b)

	if got := table.findMatch("host-a"); got != a {
		t.Error("expected the first-inserted matching neighbor to win")
	}
}

func TestNeighborTableRemove(t *testing.T) {
	table := newNeighborTable()
	a := NewNeighbor("host-a", 1)
	b := NewNeighbor("host-b", 2)
	c := NewNeighbor("host-c", 3)
	table.add(a)
	table.add(b)
	table.add(c)

	table.remove(b)

	if table.has(b) {
		t.Error("removed neighbor should no longer be present")
	}
	got := table.all()
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("remaining neighbors = %v, want [a, c]", got)
	}
}
