package txn

import (
	"bytes"
	"testing"
)

func TestFixedPackerPack(t *testing.T) {
	tests := []struct {
		name    string
		data    Data
		wantErr bool
	}{
		{name: "full payload", data: Data{1, 2, 3, 4, 5, 6, 7, 8}, wantErr: false},
		{name: "empty payload", data: Data{}, wantErr: false},
		{name: "nil payload", data: nil, wantErr: false},
		{name: "oversized payload", data: make(Data, 9), wantErr: true},
	}

	packer := NewFixedPacker(8)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hash Hash
			hash[0] = 0xAB

			packet, err := packer.Pack(Transaction{Hash: hash, Data: tt.data})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(packet) != packer.PacketSize() {
				t.Errorf("packet length = %d, want %d", len(packet), packer.PacketSize())
			}
			if !bytes.Equal(packet[:HashSize], hash[:]) {
				t.Error("hash not preserved in packet header")
			}
		})
	}
}

func TestFixedPackerUnpackRoundTrip(t *testing.T) {
	packer := NewFixedPacker(16)

	var hash Hash
	copy(hash[:], []byte("deadbeefdeadbeefdeadbeefdeadbeef")[:HashSize])

	original := Transaction{Hash: hash, Data: Data("hello world")}

	packet, err := packer.Pack(original)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	got, err := packer.Unpack(packet)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}

	if got.Hash != original.Hash {
		t.Errorf("hash = %v, want %v", got.Hash, original.Hash)
	}
	if !bytes.HasPrefix(got.Data, original.Data) {
		t.Errorf("data = %q, want prefix %q", got.Data, original.Data)
	}
	if len(got.Data) != 16 {
		t.Errorf("unpacked data length = %d, want 16 (zero-padded)", len(got.Data))
	}
}

func TestFixedPackerUnpackWrongSize(t *testing.T) {
	packer := NewFixedPacker(16)

	if _, err := packer.Unpack(make([]byte, 10)); err == nil {
		t.Fatal("expected error for wrong-size packet")
	}
}
