// EIP-712 structured hashing for proof requests.
//
// The struct type strings below are the canonical wire schema of the
// market: they must match the verifying contract's ABI exactly, field for
// field, or signatures will not validate on-chain. The schema is defined
// once here; changing a field name, type, or order is a breaking protocol
// change.
package market

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Domain is the EIP-712 domain separator parameters. Identical requests
// signed against different domains produce different signing hashes,
// preventing cross-contract and cross-chain replay.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

// MarketDomain returns the canonical signing domain for a deployment of
// the proof market contract.
func MarketDomain(contract common.Address, chainID uint64) Domain {
	return Domain{
		Name:              "ProofMarket",
		Version:           "1",
		ChainID:           chainID,
		VerifyingContract: contract,
	}
}

// EIP-712 type strings. Nested struct types follow the primary type in
// alphabetical order, per the EIP-712 encoding rules.
const (
	domainType       = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	predicateType    = "Predicate(uint8 predicateType,bytes data)"
	inputType        = "Input(uint8 inputType,bytes data)"
	requirementsType = "Requirements(bytes32 imageId,Predicate predicate)"
	offerType        = "Offer(uint96 minPrice,uint96 maxPrice,uint64 biddingStart,uint32 rampUpPeriod,uint32 timeout,uint96 lockinStake)"
	requestType      = "ProofRequest(uint192 id,Requirements requirements,string imageUrl,Input input,Offer offer)"

	requestTypeFull      = requestType + inputType + offerType + predicateType + requirementsType
	requirementsTypeFull = requirementsType + predicateType
)

var (
	domainTypeHash       = keccak256([]byte(domainType))
	predicateTypeHash    = keccak256([]byte(predicateType))
	inputTypeHash        = keccak256([]byte(inputType))
	requirementsTypeHash = keccak256([]byte(requirementsTypeFull))
	offerTypeHash        = keccak256([]byte(offerType))
	requestTypeHash      = keccak256([]byte(requestTypeFull))
)

// keccak256 computes the Keccak-256 digest of data.
func keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// word left-pads a byte slice into a 32-byte ABI word.
func word(b []byte) []byte {
	w := make([]byte, 32)
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(w[32-len(b):], b)
	return w
}

// uintWord encodes a uint64 as a 32-byte big-endian ABI word.
func uintWord(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return word(b[:])
}

// Separator returns the EIP-712 domain separator hash.
func (d Domain) Separator() common.Hash {
	return keccak256(
		domainTypeHash[:],
		keccak256([]byte(d.Name)).Bytes(),
		keccak256([]byte(d.Version)).Bytes(),
		uintWord(d.ChainID),
		word(d.VerifyingContract.Bytes()),
	)
}

// hashStruct helpers: each returns keccak256(typeHash || encoded fields),
// with dynamic fields (bytes, string) replaced by their keccak digest and
// nested structs by their own struct hash.

func (p Predicate) structHash() common.Hash {
	return keccak256(
		predicateTypeHash[:],
		uintWord(uint64(p.Kind)),
		keccak256(p.Data).Bytes(),
	)
}

func (in Input) structHash() common.Hash {
	return keccak256(
		inputTypeHash[:],
		uintWord(uint64(in.Kind)),
		keccak256(in.Data).Bytes(),
	)
}

func (r Requirements) structHash() common.Hash {
	predicate := r.Predicate.structHash()
	return keccak256(
		requirementsTypeHash[:],
		r.ImageID.Bytes(),
		predicate.Bytes(),
	)
}

func (o Offer) structHash() common.Hash {
	minPrice := word(nil)
	if o.MinPrice != nil {
		b := o.MinPrice.Bytes32()
		minPrice = word(b[:])
	}
	maxPrice := word(nil)
	if o.MaxPrice != nil {
		b := o.MaxPrice.Bytes32()
		maxPrice = word(b[:])
	}
	stake := word(nil)
	if o.LockinStake != nil {
		b := o.LockinStake.Bytes32()
		stake = word(b[:])
	}
	return keccak256(
		offerTypeHash[:],
		minPrice,
		maxPrice,
		uintWord(o.BiddingStart),
		uintWord(uint64(o.RampUpPeriod)),
		uintWord(uint64(o.Timeout)),
		stake,
	)
}

func (r ProofRequest) structHash() common.Hash {
	requirements := r.Requirements.structHash()
	input := r.Input.structHash()
	offer := r.Offer.structHash()
	return keccak256(
		requestTypeHash[:],
		word(r.ID.Bytes()),
		requirements.Bytes(),
		keccak256([]byte(r.ImageURL)).Bytes(),
		input.Bytes(),
		offer.Bytes(),
	)
}

// SigningHash returns the EIP-712 signing hash of the request in the given
// domain: keccak256("\x19\x01" || domainSeparator || hashStruct(request)).
// Two requests that differ in any field, or are hashed in different
// domains, produce different hashes with cryptographic certainty.
func SigningHash(r ProofRequest, domain Domain) common.Hash {
	separator := domain.Separator()
	structHash := r.structHash()
	return keccak256([]byte{0x19, 0x01}, separator.Bytes(), structHash.Bytes())
}
