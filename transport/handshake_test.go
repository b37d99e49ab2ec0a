package transport

import "testing"

func TestEncodeHandshake(t *testing.T) {
	tests := []struct {
		port uint16
		want string
	}{
		{port: 4000, want: "0000004000"},
		{port: 3000, want: "0000003000"},
		{port: 1440, want: "0000001440"},
		{port: 0, want: "0000000000"},
		{port: 65535, want: "0000065535"},
	}

	for _, tt := range tests {
		got := string(encodeHandshake(tt.port))
		if got != tt.want {
			t.Errorf("encodeHandshake(%d) = %q, want %q", tt.port, got, tt.want)
		}
		if len(got) != handshakeSize {
			t.Errorf("encodeHandshake(%d) length = %d, want %d", tt.port, len(got), handshakeSize)
		}
	}
}

func TestEncodeHandshakeLiteralBytes(t *testing.T) {
	got := encodeHandshake(4000)
	want := []byte{0x30, 0x30, 0x30, 0x30, 0x30, 0x30, 0x34, 0x30, 0x30, 0x30}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}
}

func TestDecodeHandshakeValid(t *testing.T) {
	port, err := decodeHandshake([]byte("0000003000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != 3000 {
		t.Errorf("port = %d, want 3000", port)
	}
}

func TestDecodeHandshakeInvalid(t *testing.T) {
	tests := []string{
		"300",          // too short
		"0000000000a",  // too long and non-digit
		"abcdefghij",   // non-digit
		"00000-3000",   // contains a dash
		"",             // empty
	}

	for _, text := range tests {
		if _, err := decodeHandshake([]byte(text)); err == nil {
			t.Errorf("decodeHandshake(%q): expected error, got none", text)
		}
	}
}
