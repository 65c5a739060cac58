package market

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestRequestIDRoundTrip(t *testing.T) {
	addrs := []common.Address{
		{},
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
		common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff"),
	}
	indices := []uint32{0, 1, 42, 1<<31 + 7, ^uint32(0)}

	for _, addr := range addrs {
		for _, idx := range indices {
			id := NewRequestID(addr, idx)
			if got := id.ClientAddress(); got != addr {
				t.Errorf("ClientAddress: got %s, want %s", got.Hex(), addr.Hex())
			}
			if got := id.Index(); got != idx {
				t.Errorf("Index: got %d, want %d", got, idx)
			}
		}
	}
}

func TestRequestIDU256RoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x00112233445566778899aabbccddeeff00112233")
	id := NewRequestID(addr, 0xdeadbeef)

	v := id.ToU256()
	back, ok := RequestIDFromU256(v)
	if !ok {
		t.Fatal("RequestIDFromU256 rejected a valid 192-bit value")
	}
	if back != id {
		t.Fatalf("round trip: got %s, want %s", back, id)
	}

	// Shifted-out address bits must make the ID recoverable as the address.
	if back.ClientAddress() != addr {
		t.Errorf("ClientAddress after round trip: got %s", back.ClientAddress().Hex())
	}
}

func TestRequestIDU256Overflow(t *testing.T) {
	// 2^192 does not fit a request ID.
	v := new(uint256.Int).Lsh(uint256.NewInt(1), 192)
	if _, ok := RequestIDFromU256(v); ok {
		t.Error("expected rejection of a value wider than 192 bits")
	}
}

func TestRequestIDBitLayout(t *testing.T) {
	addr := common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")
	id := NewRequestID(addr, 0)

	// id = addr << 32: the low 32 bits must be zero, the value >> 32 must
	// equal the address.
	v := id.ToU256()
	low := new(uint256.Int).And(v, uint256.NewInt(0xffffffff))
	if !low.IsZero() {
		t.Errorf("low 32 bits: got %s, want 0", low)
	}
	shifted := new(uint256.Int).Rsh(v, 32)
	want := new(uint256.Int).SetBytes(addr.Bytes())
	if shifted.Cmp(want) != 0 {
		t.Errorf("id >> 32: got %s, want %s", shifted, want)
	}
}

func TestRequestIDHex(t *testing.T) {
	id := NewRequestID(common.HexToAddress("0x0a0b0c0d0e0f101112131415161718191a1b1c1d"), 0x01020304)
	want := "0x0a0b0c0d0e0f101112131415161718191a1b1c1d01020304"
	if got := id.Hex(); got != want {
		t.Errorf("Hex: got %s, want %s", got, want)
	}
}
