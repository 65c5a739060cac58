// Set-builder guest semantics: the program proved at every aggregation
// step. A singleton input lifts one claim digest into a one-leaf set whose
// root is that digest; a join input combines two already-built set roots
// into their parent. The guest commits a GuestOutput journal naming the
// set builder's own image ID, so a verifier can reject sets built by a
// different aggregation program.
package aggregation

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// GuestKind tags the set-builder input variants. The tag space is closed;
// an out-of-range wire value is a decode error.
type GuestKind uint8

const (
	// KindSingleton lifts one claim digest into a one-leaf set.
	KindSingleton GuestKind = 0
	// KindJoin combines two set roots into their parent.
	KindJoin GuestKind = 1
)

// Guest codec errors.
var (
	ErrInvalidGuestKind = errors.New("aggregation: invalid guest input kind")
	ErrTruncatedGuest   = errors.New("aggregation: truncated guest encoding")
	ErrBuilderMismatch  = errors.New("aggregation: set built by a different builder image")
)

// Encoded sizes: kind (1) || selfImageID (32) || a (32) || b (32).
const guestInputSize = 1 + 3*32

// GuestOutput encoding: setBuilderID (32) || root (32), the ABI encoding
// of (bytes32, bytes32).
const guestOutputSize = 2 * 32

// GuestInput is the input of one set-builder step.
type GuestInput struct {
	Kind GuestKind
	// SelfImageID is the set builder's own image ID, echoed into the
	// output so verifiers can pin the aggregation program.
	SelfImageID common.Hash
	// Singleton: A is the leaf claim digest, B unused.
	// Join: A and B are the left and right set roots.
	A common.Hash
	B common.Hash
}

// SingletonInput builds the guest input lifting one claim digest.
func SingletonInput(selfImageID, claimDigest common.Hash) GuestInput {
	return GuestInput{Kind: KindSingleton, SelfImageID: selfImageID, A: claimDigest}
}

// JoinInput builds the guest input combining two set roots.
func JoinInput(selfImageID, leftRoot, rightRoot common.Hash) GuestInput {
	return GuestInput{Kind: KindJoin, SelfImageID: selfImageID, A: leftRoot, B: rightRoot}
}

// Encode serializes the guest input.
func (in GuestInput) Encode() []byte {
	out := make([]byte, guestInputSize)
	out[0] = byte(in.Kind)
	copy(out[1:33], in.SelfImageID.Bytes())
	copy(out[33:65], in.A.Bytes())
	copy(out[65:97], in.B.Bytes())
	return out
}

// DecodeGuestInput deserializes a guest input, rejecting unknown kinds.
func DecodeGuestInput(b []byte) (GuestInput, error) {
	if len(b) != guestInputSize {
		return GuestInput{}, ErrTruncatedGuest
	}
	kind := GuestKind(b[0])
	switch kind {
	case KindSingleton, KindJoin:
	default:
		return GuestInput{}, ErrInvalidGuestKind
	}
	var in GuestInput
	in.Kind = kind
	in.SelfImageID = common.BytesToHash(b[1:33])
	in.A = common.BytesToHash(b[33:65])
	in.B = common.BytesToHash(b[65:97])
	return in, nil
}

// GuestOutput is the journal every set-builder receipt commits.
type GuestOutput struct {
	// SetBuilderID identifies the aggregation program that built the set.
	SetBuilderID common.Hash
	// Root is the committed set root.
	Root common.Hash
}

// Encode serializes the output as the ABI tuple (bytes32, bytes32).
func (out GuestOutput) Encode() []byte {
	b := make([]byte, guestOutputSize)
	copy(b[:32], out.SetBuilderID.Bytes())
	copy(b[32:], out.Root.Bytes())
	return b
}

// DecodeGuestOutput deserializes a set-builder journal.
func DecodeGuestOutput(b []byte) (GuestOutput, error) {
	if len(b) != guestOutputSize {
		return GuestOutput{}, fmt.Errorf("%w: journal length %d", ErrTruncatedGuest, len(b))
	}
	return GuestOutput{
		SetBuilderID: common.BytesToHash(b[:32]),
		Root:         common.BytesToHash(b[32:]),
	}, nil
}

// GuestBody is the set-builder guest routine: a pure function from an
// encoded GuestInput to an encoded GuestOutput journal. Deployments run
// it inside the isolated executor; its semantics are what the aggregation
// receipts attest to.
func GuestBody(input []byte) ([]byte, error) {
	in, err := DecodeGuestInput(input)
	if err != nil {
		return nil, err
	}
	var root common.Hash
	switch in.Kind {
	case KindSingleton:
		root = in.A
	case KindJoin:
		root = CombineNodes(in.A, in.B)
	}
	return GuestOutput{SetBuilderID: in.SelfImageID, Root: root}.Encode(), nil
}
