package market

import (
	"errors"

	"github.com/holiman/uint256"
)

// MaxPriceBits is the arithmetic width of prices and stakes. Values are
// carried as uint256 but must always fit the on-chain uint96 fields.
const MaxPriceBits = 96

// ErrPriceOverflow is returned when a price computation exceeds 96 bits.
// Overflow always fails loudly; wraparound would silently misprice a
// request.
var ErrPriceOverflow = errors.New("market: price exceeds 96-bit range")

// maxPrice is 2^96 - 1, the largest representable price.
var maxPrice = func() *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, MaxPriceBits)
	return m.Sub(m, one)
}()

// ValidPrice reports whether the value fits the 96-bit price width.
func ValidPrice(v *uint256.Int) bool {
	return v != nil && v.BitLen() <= MaxPriceBits
}

// PriceAt returns the offer's price at the given timestamp. The price
// ramps linearly from MinPrice to MaxPrice over RampUpPeriod seconds
// starting at BiddingStart; before the start it is MinPrice, after the
// ramp it stays at MaxPrice. Time does not affect expiry here; callers
// check ExpiresAt separately.
func (o Offer) PriceAt(timestamp uint64) (*uint256.Int, error) {
	if !ValidPrice(o.MinPrice) || !ValidPrice(o.MaxPrice) {
		return nil, ErrPriceOverflow
	}
	if o.MaxPrice.Cmp(o.MinPrice) < 0 {
		return nil, ErrPriceInverted
	}
	if timestamp <= o.BiddingStart || o.RampUpPeriod == 0 {
		return new(uint256.Int).Set(o.MinPrice), nil
	}
	elapsed := timestamp - o.BiddingStart
	if elapsed >= uint64(o.RampUpPeriod) {
		return new(uint256.Int).Set(o.MaxPrice), nil
	}
	// min + (max-min) * elapsed / rampUp, all within 96 bits so the
	// intermediate product cannot overflow 256.
	span := new(uint256.Int).Sub(o.MaxPrice, o.MinPrice)
	span.Mul(span, uint256.NewInt(elapsed))
	span.Div(span, uint256.NewInt(uint64(o.RampUpPeriod)))
	return span.Add(span, o.MinPrice), nil
}

// MulPricePerUnit computes rate * units, the price for a number of work
// units at a fixed per-unit rate. The result must fit 96 bits; overflow
// returns ErrPriceOverflow.
func MulPricePerUnit(rate *uint256.Int, units uint64) (*uint256.Int, error) {
	if !ValidPrice(rate) {
		return nil, ErrPriceOverflow
	}
	product := new(uint256.Int)
	if _, overflow := product.MulOverflow(rate, uint256.NewInt(units)); overflow {
		return nil, ErrPriceOverflow
	}
	if product.Cmp(maxPrice) > 0 {
		return nil, ErrPriceOverflow
	}
	return product, nil
}
