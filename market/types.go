// Package market defines the canonical data model of the proof market:
// proving requests, offers, predicates, signed orders and fulfillments,
// together with request identity, validation, and EIP-712 authentication.
//
// A client builds a ProofRequest, signs it against the market's EIP-712
// domain, and publishes the resulting Order. A prover validates the order,
// executes the requested program, and answers with a Fulfillment bound to
// the request's signing hash so it cannot be replayed against any other
// request or domain.
package market

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PredicateKind is the closed set of acceptance-predicate variants.
// Wire values outside the set are a decode error, never a runtime variant.
type PredicateKind uint8

const (
	// DigestMatch accepts a journal whose SHA-256 digest equals Data.
	DigestMatch PredicateKind = 0
	// PrefixMatch accepts a journal that starts with Data.
	PrefixMatch PredicateKind = 1
)

// InputKind is the closed set of guest-input variants.
type InputKind uint8

const (
	// InputInline carries the input bytes directly in the request.
	InputInline InputKind = 0
	// InputURL carries a URL the input bytes are fetched from.
	InputURL InputKind = 1
)

// Decode errors for tagged variants.
var (
	ErrInvalidPredicateKind = errors.New("market: invalid predicate kind")
	ErrInvalidInputKind     = errors.New("market: invalid input kind")
)

// Predicate is the client-specified acceptance check a fulfillment's
// journal must satisfy.
type Predicate struct {
	Kind PredicateKind
	Data []byte
}

// NewDigestMatch returns a predicate matching the journal's SHA-256 digest.
func NewDigestMatch(digest common.Hash) Predicate {
	return Predicate{Kind: DigestMatch, Data: digest.Bytes()}
}

// NewPrefixMatch returns a predicate matching a journal prefix.
func NewPrefixMatch(prefix []byte) Predicate {
	return Predicate{Kind: PrefixMatch, Data: append([]byte(nil), prefix...)}
}

// Eval reports whether the journal satisfies the predicate. It is
// side-effect free. An out-of-range kind evaluates to false; such values
// are rejected earlier at decode time.
func (p Predicate) Eval(journal []byte) bool {
	switch p.Kind {
	case DigestMatch:
		digest := sha256.Sum256(journal)
		return bytes.Equal(p.Data, digest[:])
	case PrefixMatch:
		return bytes.HasPrefix(journal, p.Data)
	default:
		return false
	}
}

// Input is the guest input of a proving request. Resolution of URL inputs
// to concrete bytes is deferred to execution time.
type Input struct {
	Kind InputKind
	Data []byte
}

// NewInlineInput returns an input carrying the given bytes directly.
func NewInlineInput(data []byte) Input {
	return Input{Kind: InputInline, Data: append([]byte(nil), data...)}
}

// NewURLInput returns an input fetched from the given URL at execution time.
func NewURLInput(url string) Input {
	return Input{Kind: InputURL, Data: []byte(url)}
}

// Requirements describe what a fulfillment must prove: the identity of the
// program to execute and the predicate its journal must satisfy.
type Requirements struct {
	// ImageID identifies the program whose execution is required.
	// The all-zero digest is invalid.
	ImageID common.Hash
	// Predicate is the acceptance check on the journal.
	Predicate Predicate
}

// WithImageID returns a copy with the image ID replaced.
func (r Requirements) WithImageID(id common.Hash) Requirements {
	r.ImageID = id
	return r
}

// WithPredicate returns a copy with the predicate replaced.
func (r Requirements) WithPredicate(p Predicate) Requirements {
	r.Predicate = p
	return r
}

// Offer is the pricing schedule of a proving request. Prices and the
// lock-in stake are 96-bit unsigned values; timing fields count blocks.
type Offer struct {
	MinPrice     *uint256.Int
	MaxPrice     *uint256.Int
	BiddingStart uint64
	RampUpPeriod uint32
	Timeout      uint32
	LockinStake  *uint256.Int
}

// EmptyOffer returns an offer with all fields unset. It is intentionally
// not a valid offer: Validate rejects it until prices and timing are set.
func EmptyOffer() Offer {
	return Offer{
		MinPrice:    uint256.NewInt(0),
		MaxPrice:    uint256.NewInt(0),
		LockinStake: uint256.NewInt(0),
	}
}

// WithMinPrice returns a copy with the minimum price replaced.
func (o Offer) WithMinPrice(p *uint256.Int) Offer {
	o.MinPrice = p.Clone()
	return o
}

// WithMaxPrice returns a copy with the maximum price replaced.
func (o Offer) WithMaxPrice(p *uint256.Int) Offer {
	o.MaxPrice = p.Clone()
	return o
}

// WithLockinStake returns a copy with the lock-in stake replaced.
func (o Offer) WithLockinStake(s *uint256.Int) Offer {
	o.LockinStake = s.Clone()
	return o
}

// WithBiddingStart returns a copy with the bidding start block replaced.
func (o Offer) WithBiddingStart(start uint64) Offer {
	o.BiddingStart = start
	return o
}

// WithTimeout returns a copy with the timeout replaced. The timeout is the
// number of blocks from the bidding start before the request expires.
func (o Offer) WithTimeout(timeout uint32) Offer {
	o.Timeout = timeout
	return o
}

// WithRampUpPeriod returns a copy with the ramp-up period replaced.
func (o Offer) WithRampUpPeriod(period uint32) Offer {
	o.RampUpPeriod = period
	return o
}

// WithMinPricePerMCycle returns a copy with the minimum price set to
// mcyclePrice * mcycles. Multiplication overflowing 96 bits is an error.
func (o Offer) WithMinPricePerMCycle(mcyclePrice *uint256.Int, mcycles uint64) (Offer, error) {
	p, err := MulPricePerUnit(mcyclePrice, mcycles)
	if err != nil {
		return o, err
	}
	o.MinPrice = p
	return o, nil
}

// WithMaxPricePerMCycle returns a copy with the maximum price set to
// mcyclePrice * mcycles. Multiplication overflowing 96 bits is an error.
func (o Offer) WithMaxPricePerMCycle(mcyclePrice *uint256.Int, mcycles uint64) (Offer, error) {
	p, err := MulPricePerUnit(mcyclePrice, mcycles)
	if err != nil {
		return o, err
	}
	o.MaxPrice = p
	return o, nil
}

// WithLockinStakePerMCycle returns a copy with the lock-in stake set to
// mcyclePrice * mcycles. Multiplication overflowing 96 bits is an error.
func (o Offer) WithLockinStakePerMCycle(mcyclePrice *uint256.Int, mcycles uint64) (Offer, error) {
	s, err := MulPricePerUnit(mcyclePrice, mcycles)
	if err != nil {
		return o, err
	}
	o.LockinStake = s
	return o, nil
}

// ProofRequest is a client's signed description of a computation, its
// pricing schedule, and the acceptance predicate. Immutable once signed.
type ProofRequest struct {
	ID           RequestID
	Requirements Requirements
	ImageURL     string
	Input        Input
	Offer        Offer
}

// NewProofRequest builds a request whose ID packs the client address with
// the client-chosen index. Index uniqueness is the client's responsibility.
func NewProofRequest(index uint32, client common.Address, req Requirements, imageURL string, input Input, offer Offer) ProofRequest {
	return ProofRequest{
		ID:           NewRequestID(client, index),
		Requirements: req,
		ImageURL:     imageURL,
		Input:        input,
		Offer:        offer,
	}
}

// EmptyRequest returns a request with every field unset. Unlike a usable
// request it carries a zero offer and empty image URL, so Validate rejects
// it; callers must populate the mandatory fields explicitly.
func EmptyRequest() ProofRequest {
	return ProofRequest{Offer: EmptyOffer()}
}

// ClientAddress returns the client address embedded in the request ID.
func (r *ProofRequest) ClientAddress() common.Address {
	return r.ID.ClientAddress()
}

// ExpiresAt returns the block number at which the request expires.
func (r *ProofRequest) ExpiresAt() uint64 {
	return r.Offer.BiddingStart + uint64(r.Offer.Timeout)
}

// WithRequirements returns a copy with the requirements replaced.
func (r ProofRequest) WithRequirements(req Requirements) ProofRequest {
	r.Requirements = req
	return r
}

// WithImageURL returns a copy with the image URL replaced.
func (r ProofRequest) WithImageURL(url string) ProofRequest {
	r.ImageURL = url
	return r
}

// WithInput returns a copy with the guest input replaced.
func (r ProofRequest) WithInput(input Input) ProofRequest {
	r.Input = input
	return r
}

// WithOffer returns a copy with the offer replaced.
func (r ProofRequest) WithOffer(offer Offer) ProofRequest {
	r.Offer = offer
	return r
}

// Order is the unit exchanged between client and prover: a proof request
// together with the client's EIP-712 signature over it. Immutable after
// signing.
type Order struct {
	Request   ProofRequest
	Signature []byte
}

// Fulfillment is the client-request-bound, on-chain-verifiable unit a
// prover produces for one order. RequestDigest is the EIP-712 signing hash
// of the original request; binding it here prevents the fulfillment from
// being replayed against a different request.
type Fulfillment struct {
	ID             RequestID
	RequestDigest  common.Hash
	ImageID        common.Hash
	Journal        []byte
	RequirePayment bool
	Seal           []byte
}
