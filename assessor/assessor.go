// The assessor attests that a batch of fulfillments complies with the
// orders it claims to fulfill. Run as a guest under the proof system, its
// receipt binds the batch to one prover address and one market domain, so
// a third party holding a valid order receipt cannot redeem payment for
// work it did not do.
package assessor

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkmarket/zkmarket/aggregation"
	"github.com/zkmarket/zkmarket/market"
	"github.com/zkmarket/zkmarket/zkvm"
)

// Assessment errors.
var (
	ErrEmptyBatch        = errors.New("assessor: empty batch")
	ErrFillCount         = errors.New("assessor: fill and order counts differ")
	ErrZeroProver        = errors.New("assessor: zero prover address")
	ErrRequestMismatch   = errors.New("assessor: fulfillment does not match its order")
	ErrImageMismatch     = errors.New("assessor: fulfillment image differs from the requested one")
	ErrPredicateMismatch = errors.New("assessor: journal does not satisfy the request predicate")
)

// Input is the batch the assessor guest evaluates. Fills[i] must fulfill
// Orders[i].
type Input struct {
	Domain        market.Domain
	Fills         []market.Fulfillment
	Orders        []market.Order
	ProverAddress common.Address
}

// Journal is what the assessor receipt commits to: the signing digests of
// every assessed request, the Merkle root over the fills' claim digests,
// and the prover/domain binding.
type Journal struct {
	RequestDigests  []common.Hash
	Root            common.Hash
	ProverAddress   common.Address
	DomainSeparator common.Hash
}

// Assess checks every fulfillment in the batch against its order and
// returns the journal the assessor receipt commits to. Each order's
// client signature and request validity are re-checked inside the guest;
// nothing the host asserted is trusted. A journal that does not satisfy
// its request's predicate blocks the whole batch.
func Assess(in Input) (Journal, error) {
	if len(in.Fills) == 0 {
		return Journal{}, ErrEmptyBatch
	}
	if len(in.Fills) != len(in.Orders) {
		return Journal{}, ErrFillCount
	}
	if in.ProverAddress == (common.Address{}) {
		return Journal{}, ErrZeroProver
	}

	digests := make([]common.Hash, len(in.Fills))
	leaves := make([]common.Hash, len(in.Fills))
	for i, fill := range in.Fills {
		order := in.Orders[i]
		if err := market.VerifyOrder(order, in.Domain); err != nil {
			return Journal{}, fmt.Errorf("assessor: order %d: %w", i, err)
		}
		if fill.ID != order.Request.ID {
			return Journal{}, fmt.Errorf("%w: fill %d", ErrRequestMismatch, i)
		}
		signingHash := market.SigningHash(order.Request, in.Domain)
		if fill.RequestDigest != signingHash {
			return Journal{}, fmt.Errorf("%w: fill %d digest", ErrRequestMismatch, i)
		}
		if fill.ImageID != order.Request.Requirements.ImageID {
			return Journal{}, fmt.Errorf("%w: fill %d", ErrImageMismatch, i)
		}
		if !order.Request.Requirements.Predicate.Eval(fill.Journal) {
			return Journal{}, fmt.Errorf("%w: fill %d", ErrPredicateMismatch, i)
		}
		if _, err := order.Request.Offer.PriceAt(order.Request.Offer.BiddingStart); err != nil {
			return Journal{}, fmt.Errorf("assessor: order %d offer: %w", i, err)
		}
		digests[i] = signingHash
		leaves[i] = zkvm.NewClaim(fill.ImageID, fill.Journal).Digest()
	}

	root, err := aggregation.MerkleRoot(leaves)
	if err != nil {
		return Journal{}, err
	}
	return Journal{
		RequestDigests:  digests,
		Root:            root,
		ProverAddress:   in.ProverAddress,
		DomainSeparator: in.Domain.Separator(),
	}, nil
}
