// Request authentication: signature generation, verification, and client
// address recovery over EIP-712 signing hashes.
//
// Signatures are 65 bytes, R (32) || S (32) || V (1). V is accepted as
// either a raw recovery ID (0/1) or the Ethereum legacy encoding (27/28);
// produced signatures use the legacy encoding.
package market

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the byte length of a compact signature: R || S || V.
const SignatureLength = 65

// Authentication errors. A malformed signature and a well-formed signature
// from the wrong signer are distinct failures; callers must not conflate
// them.
var (
	ErrMalformedSignature = errors.New("market: malformed signature")
	ErrAddressMismatch    = errors.New("market: recovered signer does not match request client")
)

// SignRequest signs the request's EIP-712 hash in the given domain and
// returns the 65-byte compact signature with legacy V (27/28).
func SignRequest(r ProofRequest, domain Domain, key *ecdsa.PrivateKey) ([]byte, error) {
	hash := SigningHash(r, domain)
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverClient recovers the signing address from the request's signature
// in the given domain. It does not compare it against the request ID.
func RecoverClient(r ProofRequest, signature []byte, domain Domain) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, ErrMalformedSignature
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	// Normalize V to a raw recovery ID.
	switch sig[64] {
	case 0, 1:
	case 27, 28:
		sig[64] -= 27
	default:
		return common.Address{}, ErrMalformedSignature
	}
	hash := SigningHash(r, domain)
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, ErrMalformedSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyRequestSignature recovers the signer from (signature, signing hash)
// and requires it to equal the client address embedded in the request ID.
// The two recoverable addresses -- embedded and signed -- must agree for an
// order to be authentic.
func VerifyRequestSignature(r ProofRequest, signature []byte, domain Domain) error {
	recovered, err := RecoverClient(r, signature, domain)
	if err != nil {
		return err
	}
	if recovered != r.ClientAddress() {
		return ErrAddressMismatch
	}
	return nil
}

// VerifyOrder validates the order's request invariants and authenticates
// its signature in one step. This is the prover-side entry point: delivery
// layers may have authenticated the sender, but fulfillment binding always
// re-verifies the request signature independently.
func VerifyOrder(o Order, domain Domain) error {
	if err := o.Request.Validate(); err != nil {
		return err
	}
	return VerifyRequestSignature(o.Request, o.Signature, domain)
}
