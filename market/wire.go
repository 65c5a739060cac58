// Binary wire codec for the tagged request variants.
//
// Layout per variant: tag (1 byte, explicit integer discriminant) ||
// length (4 bytes, big-endian) || data. The tag space is closed: decoding
// an out-of-range tag is a decode error, never a silently-false or
// panicking runtime variant.
package market

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedWire is returned when a wire buffer is shorter than its
// declared layout.
var ErrTruncatedWire = errors.New("market: truncated wire encoding")

// encodeTagged writes tag || len || data.
func encodeTagged(tag uint8, data []byte) []byte {
	out := make([]byte, 5+len(data))
	out[0] = tag
	binary.BigEndian.PutUint32(out[1:5], uint32(len(data)))
	copy(out[5:], data)
	return out
}

// decodeTagged reads tag || len || data, rejecting truncated buffers.
func decodeTagged(b []byte) (uint8, []byte, error) {
	if len(b) < 5 {
		return 0, nil, ErrTruncatedWire
	}
	n := binary.BigEndian.Uint32(b[1:5])
	if uint32(len(b)-5) != n {
		return 0, nil, ErrTruncatedWire
	}
	return b[0], append([]byte(nil), b[5:]...), nil
}

// EncodeWire encodes the predicate for transport.
func (p Predicate) EncodeWire() []byte {
	return encodeTagged(uint8(p.Kind), p.Data)
}

// DecodePredicate decodes a predicate, rejecting unknown tags with
// ErrInvalidPredicateKind.
func DecodePredicate(b []byte) (Predicate, error) {
	tag, data, err := decodeTagged(b)
	if err != nil {
		return Predicate{}, err
	}
	kind := PredicateKind(tag)
	switch kind {
	case DigestMatch, PrefixMatch:
		return Predicate{Kind: kind, Data: data}, nil
	default:
		return Predicate{}, ErrInvalidPredicateKind
	}
}

// EncodeWire encodes the input for transport.
func (in Input) EncodeWire() []byte {
	return encodeTagged(uint8(in.Kind), in.Data)
}

// DecodeInput decodes an input, rejecting unknown tags with
// ErrInvalidInputKind.
func DecodeInput(b []byte) (Input, error) {
	tag, data, err := decodeTagged(b)
	if err != nil {
		return Input{}, err
	}
	kind := InputKind(tag)
	switch kind {
	case InputInline, InputURL:
		return Input{Kind: kind, Data: data}, nil
	default:
		return Input{}, ErrInvalidInputKind
	}
}
