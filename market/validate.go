package market

import (
	"errors"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

// Validation errors. Each static invariant has its own sentinel so callers
// and clients can identify exactly which field is at fault.
var (
	ErrEmptyImageURL   = errors.New("market: image URL must not be empty")
	ErrInvalidImageURL = errors.New("market: image URL is not parseable")
	ErrZeroImageID     = errors.New("market: image ID must not be zero")
	ErrZeroTimeout     = errors.New("market: offer timeout must be greater than zero")
	ErrZeroMaxPrice    = errors.New("market: offer max price must be greater than zero")
	ErrPriceInverted   = errors.New("market: offer max price must be at least min price")
	ErrZeroBidStart    = errors.New("market: offer bidding start must be greater than zero")
	ErrNilPrice        = errors.New("market: offer price fields must be set")
)

// Validate checks the request's static invariants in a fixed order and
// returns the first violation. It never aggregates errors: the author
// fixes one field at a time, and the first failure already renders the
// request unusable.
func (r *ProofRequest) Validate() error {
	if r.ImageURL == "" {
		return ErrEmptyImageURL
	}
	if u, err := url.Parse(r.ImageURL); err != nil || u.Scheme == "" {
		return ErrInvalidImageURL
	}
	if r.Requirements.ImageID == (common.Hash{}) {
		return ErrZeroImageID
	}
	if r.Offer.MinPrice == nil || r.Offer.MaxPrice == nil || r.Offer.LockinStake == nil {
		return ErrNilPrice
	}
	if r.Offer.Timeout == 0 {
		return ErrZeroTimeout
	}
	if r.Offer.MaxPrice.IsZero() {
		return ErrZeroMaxPrice
	}
	if r.Offer.MaxPrice.Cmp(r.Offer.MinPrice) < 0 {
		return ErrPriceInverted
	}
	if r.Offer.BiddingStart == 0 {
		return ErrZeroBidStart
	}
	return nil
}
