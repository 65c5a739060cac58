package market

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RequestIDLength is the byte length of a request ID (192 bits).
const RequestIDLength = 24

// RequestID is the 192-bit identity of a proving request:
//
//	id = (client_address << 32) | index
//
// The high 160 bits are the client address, the low 32 bits a
// client-chosen index. The address is therefore recoverable from the ID
// alone, and index uniqueness is the client's responsibility, not the
// protocol's. Stored big-endian.
type RequestID [RequestIDLength]byte

// NewRequestID packs a client address and index into a request ID.
func NewRequestID(client common.Address, index uint32) RequestID {
	var id RequestID
	copy(id[:common.AddressLength], client[:])
	binary.BigEndian.PutUint32(id[common.AddressLength:], index)
	return id
}

// ClientAddress returns the client address packed into the high 160 bits.
func (id RequestID) ClientAddress() common.Address {
	var addr common.Address
	copy(addr[:], id[:common.AddressLength])
	return addr
}

// Index returns the client-chosen index packed into the low 32 bits.
func (id RequestID) Index() uint32 {
	return binary.BigEndian.Uint32(id[common.AddressLength:])
}

// ToU256 returns the ID as a 256-bit integer for ABI encoding.
func (id RequestID) ToU256() *uint256.Int {
	return new(uint256.Int).SetBytes(id[:])
}

// RequestIDFromU256 decodes a request ID from a 256-bit integer.
// Returns false if the value does not fit in 192 bits.
func RequestIDFromU256(v *uint256.Int) (RequestID, bool) {
	var id RequestID
	if v.BitLen() > RequestIDLength*8 {
		return id, false
	}
	b := v.Bytes32()
	copy(id[:], b[32-RequestIDLength:])
	return id, true
}

// Bytes returns the big-endian byte representation of the ID.
func (id RequestID) Bytes() []byte { return id[:] }

// Hex returns the 0x-prefixed hex representation of the ID.
func (id RequestID) Hex() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2+2*RequestIDLength)
	buf[0], buf[1] = '0', 'x'
	for i, b := range id {
		buf[2+2*i] = hextable[b>>4]
		buf[3+2*i] = hextable[b&0x0f]
	}
	return string(buf)
}

// String implements fmt.Stringer.
func (id RequestID) String() string { return id.Hex() }
