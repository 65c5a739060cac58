// Set inclusion receipts: the per-leaf artifact proving one claim is a
// leaf of a committed aggregation set.
package aggregation

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkmarket/zkmarket/zkvm"
)

// Inclusion errors.
var (
	ErrVerifierParams = errors.New("aggregation: verifier parameters mismatch")
	ErrSealSelector   = errors.New("aggregation: seal selector mismatch")
	ErrSealTruncated  = errors.New("aggregation: truncated seal")
)

// VerifierParameters identify which aggregation program produced a tree.
// A verifier must reject an inclusion proof whose parameters digest does
// not match the expected set builder, or proofs from a foreign aggregation
// scheme would be accepted.
type VerifierParameters struct {
	SetBuilderID common.Hash
}

var verifierParamsTag = sha256.Sum256([]byte("zkmarket.SetInclusionVerifierParameters"))

// Digest returns the tagged digest of the parameters.
func (p VerifierParameters) Digest() common.Hash {
	h := sha256.New()
	h.Write(verifierParamsTag[:])
	h.Write(p.SetBuilderID.Bytes())
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// SetInclusionReceipt proves that Claim is leaf Index of a Count-leaf
// aggregation set. Verification walks the sibling path in O(log n) hashes
// against the root committed by the set's root receipt.
type SetInclusionReceipt struct {
	Claim zkvm.Claim
	Path  []common.Hash
	Index uint32
	Count uint32
	// VerifierParameters pins the aggregation program.
	VerifierParameters common.Hash
}

// FromPath builds an inclusion receipt for a claim at the given position.
// The caller attaches verifier parameters before encoding a seal.
func FromPath(claim zkvm.Claim, path []common.Hash, index, count uint32) SetInclusionReceipt {
	return SetInclusionReceipt{
		Claim: claim,
		Path:  append([]common.Hash(nil), path...),
		Index: index,
		Count: count,
	}
}

// Root recomputes the set root this receipt anchors to.
func (r *SetInclusionReceipt) Root() (common.Hash, error) {
	return ProcessInclusionProof(r.Claim.Digest(), r.Path, int(r.Index), int(r.Count))
}

// VerifyIntegrity checks the receipt against a root receipt produced by
// the expected set builder: the verifier parameters must match, the root
// receipt's journal must decode to a set built by that builder, and the
// recomputed root must equal the committed one.
func (r *SetInclusionReceipt) VerifyIntegrity(rootReceipt zkvm.Receipt, expected VerifierParameters) error {
	if r.VerifierParameters != expected.Digest() {
		return ErrVerifierParams
	}
	out, err := DecodeGuestOutput(rootReceipt.Journal)
	if err != nil {
		return err
	}
	if out.SetBuilderID != expected.SetBuilderID {
		return ErrBuilderMismatch
	}
	root, err := r.Root()
	if err != nil {
		return err
	}
	if root != out.Root {
		return ErrRootMismatch
	}
	return nil
}

// Seal layout: selector (4) || index (4) || count (4) || pathLen (4) ||
// path digests (32 each). The selector is the first four bytes of the
// verifier parameters digest, so a seal from a different aggregation
// scheme fails before any hashing.

// EncodeSeal encodes the inclusion receipt into the verifier's seal
// format.
func (r *SetInclusionReceipt) EncodeSeal() ([]byte, error) {
	if r.VerifierParameters == (common.Hash{}) {
		return nil, ErrVerifierParams
	}
	seal := make([]byte, 16+32*len(r.Path))
	copy(seal[:4], r.VerifierParameters[:4])
	binary.BigEndian.PutUint32(seal[4:8], r.Index)
	binary.BigEndian.PutUint32(seal[8:12], r.Count)
	binary.BigEndian.PutUint32(seal[12:16], uint32(len(r.Path)))
	for i, d := range r.Path {
		copy(seal[16+32*i:], d.Bytes())
	}
	return seal, nil
}

// DecodeSeal decodes an inclusion seal for the given claim, checking the
// selector against the expected verifier parameters.
func DecodeSeal(seal []byte, claim zkvm.Claim, expected VerifierParameters) (SetInclusionReceipt, error) {
	if len(seal) < 16 {
		return SetInclusionReceipt{}, ErrSealTruncated
	}
	params := expected.Digest()
	if !bytesEqual4(seal[:4], params[:4]) {
		return SetInclusionReceipt{}, ErrSealSelector
	}
	index := binary.BigEndian.Uint32(seal[4:8])
	count := binary.BigEndian.Uint32(seal[8:12])
	pathLen := binary.BigEndian.Uint32(seal[12:16])
	if int64(len(seal)-16) != int64(pathLen)*32 {
		return SetInclusionReceipt{}, ErrSealTruncated
	}
	path := make([]common.Hash, pathLen)
	for i := range path {
		path[i] = common.BytesToHash(seal[16+32*i : 16+32*(i+1)])
	}
	return SetInclusionReceipt{
		Claim:              claim,
		Path:               path,
		Index:              index,
		Count:              count,
		VerifierParameters: params,
	}, nil
}

func bytesEqual4(a, b []byte) bool {
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2] && a[3] == b[3]
}

// EncodeRootSeal encodes a root receipt's seal for on-chain submission:
// selector (4) || proof-system seal. The selector pins the verifier
// parameters exactly as inclusion seals do.
func EncodeRootSeal(rootReceipt zkvm.Receipt, params VerifierParameters) []byte {
	digest := params.Digest()
	out := make([]byte, 4+len(rootReceipt.Seal))
	copy(out[:4], digest[:4])
	copy(out[4:], rootReceipt.Seal)
	return out
}
