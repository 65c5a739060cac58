// Order-stream authentication. A client proves control of its prover
// address by signing a fresh nonce bound to the market domain; the
// server checks the recovered signer before streaming orders. Delivery
// auth gates access only: every delivered order's own client signature
// is still verified before fulfillment.
package stream

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zkmarket/zkmarket/market"
)

// ErrBadAuth is returned when an auth message fails verification.
var ErrBadAuth = errors.New("stream: auth verification failed")

var authTag = []byte("zkmarket.StreamAuth")

// AuthMsg authenticates a subscriber to the order stream.
type AuthMsg struct {
	Address   common.Address `json:"address"`
	Nonce     uint64         `json:"nonce"`
	Signature []byte         `json:"signature"`
}

// AuthHash computes the digest an auth signature covers.
func AuthHash(domain market.Domain, addr common.Address, nonce uint64) common.Hash {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	sep := domain.Separator()
	return crypto.Keccak256Hash(authTag, sep.Bytes(), addr.Bytes(), nonceBytes[:])
}

// SignAuth builds a signed auth message for the key's address.
func SignAuth(key *ecdsa.PrivateKey, domain market.Domain, nonce uint64) (AuthMsg, error) {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	hash := AuthHash(domain, addr, nonce)
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return AuthMsg{}, err
	}
	sig[64] += 27
	return AuthMsg{Address: addr, Nonce: nonce, Signature: sig}, nil
}

// VerifyAuth checks that the message's signature recovers its claimed
// address.
func VerifyAuth(msg AuthMsg, domain market.Domain) error {
	if len(msg.Signature) != market.SignatureLength {
		return ErrBadAuth
	}
	sig := make([]byte, market.SignatureLength)
	copy(sig, msg.Signature)
	switch sig[64] {
	case 0, 1:
	case 27, 28:
		sig[64] -= 27
	default:
		return ErrBadAuth
	}
	hash := AuthHash(domain, msg.Address, msg.Nonce)
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return ErrBadAuth
	}
	if crypto.PubkeyToAddress(*pub) != msg.Address {
		return ErrBadAuth
	}
	return nil
}
