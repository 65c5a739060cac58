package prover

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkmarket/zkmarket/aggregation"
	"github.com/zkmarket/zkmarket/market"
	"github.com/zkmarket/zkmarket/zkvm"
)

// ErrTruncatedBundle is returned when a bundle buffer is shorter than its
// declared layout.
var ErrTruncatedBundle = errors.New("prover: truncated fulfillment bundle")

// OrderFulfilled is the settlement submission bundle: the aggregated
// root, its seal, the fulfillments redeemable under it, the assessor's
// inclusion seal and the prover address payment is bound to.
type OrderFulfilled struct {
	Root         common.Hash
	Seal         []byte
	Fills        []market.Fulfillment
	AssessorSeal []byte
	Prover       common.Address
}

// NewOrderFulfilled assembles the submission bundle from a fulfillment
// pipeline's outputs. The root is read from the root receipt's committed
// journal; the root seal carries the verifier-parameters selector.
func NewOrderFulfilled(root zkvm.Receipt, fills []market.Fulfillment, assessorIncl aggregation.SetInclusionReceipt, params aggregation.VerifierParameters, prover common.Address) (OrderFulfilled, error) {
	out, err := aggregation.DecodeGuestOutput(root.Journal)
	if err != nil {
		return OrderFulfilled{}, fmt.Errorf("prover: root journal: %w", err)
	}
	if out.SetBuilderID != params.SetBuilderID {
		return OrderFulfilled{}, aggregation.ErrBuilderMismatch
	}
	assessorSeal, err := assessorIncl.EncodeSeal()
	if err != nil {
		return OrderFulfilled{}, err
	}
	return OrderFulfilled{
		Root:         out.Root,
		Seal:         aggregation.EncodeRootSeal(root, params),
		Fills:        append([]market.Fulfillment(nil), fills...),
		AssessorSeal: assessorSeal,
		Prover:       prover,
	}, nil
}

// Bundle layout: root (32) || prover (20) || seal len (4) || seal ||
// assessor seal len (4) || assessor seal || fill count (4) || per fill:
// id (24) || request digest (32) || image id (32) || require payment (1)
// || journal len (4) || journal || seal len (4) || seal. All lengths are
// big-endian.

// Encode serializes the bundle for submission.
func (f OrderFulfilled) Encode() []byte {
	out := make([]byte, 0, 96+len(f.Seal)+len(f.AssessorSeal))
	out = append(out, f.Root.Bytes()...)
	out = append(out, f.Prover.Bytes()...)
	out = appendBytes(out, f.Seal)
	out = appendBytes(out, f.AssessorSeal)
	out = binary.BigEndian.AppendUint32(out, uint32(len(f.Fills)))
	for _, fill := range f.Fills {
		out = append(out, fill.ID.Bytes()...)
		out = append(out, fill.RequestDigest.Bytes()...)
		out = append(out, fill.ImageID.Bytes()...)
		if fill.RequirePayment {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		out = appendBytes(out, fill.Journal)
		out = appendBytes(out, fill.Seal)
	}
	return out
}

// DecodeOrderFulfilled parses a submission bundle.
func DecodeOrderFulfilled(b []byte) (OrderFulfilled, error) {
	r := bundleReader{buf: b}
	var f OrderFulfilled
	copy(f.Root[:], r.take(32))
	copy(f.Prover[:], r.take(20))
	f.Seal = r.takeBytes()
	f.AssessorSeal = r.takeBytes()
	count := binary.BigEndian.Uint32(r.take(4))
	if r.failed {
		return OrderFulfilled{}, ErrTruncatedBundle
	}
	// 97 bytes is the smallest possible encoded fill.
	if int64(count)*97 > int64(len(r.buf)-r.off) {
		return OrderFulfilled{}, ErrTruncatedBundle
	}
	f.Fills = make([]market.Fulfillment, 0, count)
	for i := uint32(0); i < count; i++ {
		var fill market.Fulfillment
		copy(fill.ID[:], r.take(24))
		copy(fill.RequestDigest[:], r.take(32))
		copy(fill.ImageID[:], r.take(32))
		flag := r.take(1)
		if r.failed {
			return OrderFulfilled{}, ErrTruncatedBundle
		}
		fill.RequirePayment = flag[0] == 1
		fill.Journal = r.takeBytes()
		fill.Seal = r.takeBytes()
		if r.failed {
			return OrderFulfilled{}, ErrTruncatedBundle
		}
		f.Fills = append(f.Fills, fill)
	}
	if r.failed || len(r.buf) != r.off {
		return OrderFulfilled{}, ErrTruncatedBundle
	}
	return f, nil
}

func appendBytes(out, b []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}

// bundleReader is a cursor that latches any out-of-bounds read.
type bundleReader struct {
	buf    []byte
	off    int
	failed bool
}

func (r *bundleReader) take(n int) []byte {
	if r.failed || r.off+n > len(r.buf) {
		r.failed = true
		return make([]byte, n)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *bundleReader) takeBytes() []byte {
	n := binary.BigEndian.Uint32(r.take(4))
	if r.failed || r.off+int(n) > len(r.buf) {
		r.failed = true
		return nil
	}
	out := append([]byte(nil), r.buf[r.off:r.off+int(n)]...)
	r.off += int(n)
	return out
}
