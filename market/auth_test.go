package market

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignAndVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	d := testDomain()

	r := validRequest()
	r.ID = NewRequestID(addr, 1)

	sig, err := SignRequest(r, d, key)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	if len(sig) != SignatureLength {
		t.Fatalf("signature length: got %d, want %d", len(sig), SignatureLength)
	}
	if err := VerifyRequestSignature(r, sig, d); err != nil {
		t.Fatalf("VerifyRequestSignature: %v", err)
	}

	recovered, err := RecoverClient(r, sig, d)
	if err != nil {
		t.Fatalf("RecoverClient: %v", err)
	}
	if recovered != addr {
		t.Errorf("recovered %s, want %s", recovered.Hex(), addr.Hex())
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	clientKey, _ := crypto.GenerateKey()
	otherKey, _ := crypto.GenerateKey()
	clientAddr := crypto.PubkeyToAddress(clientKey.PublicKey)
	d := testDomain()

	// The request embeds the client address, but the signature comes from
	// a different key: well-formed, wrong signer.
	r := validRequest()
	r.ID = NewRequestID(clientAddr, 1)

	sig, err := SignRequest(r, d, otherKey)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	if err := VerifyRequestSignature(r, sig, d); !errors.Is(err, ErrAddressMismatch) {
		t.Fatalf("got %v, want ErrAddressMismatch", err)
	}
}

func TestVerifyRejectsWrongDomain(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)

	r := validRequest()
	r.ID = NewRequestID(addr, 1)

	sig, err := SignRequest(r, testDomain(), key)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	other := MarketDomain(testDomain().VerifyingContract, 1337)
	if err := VerifyRequestSignature(r, sig, other); err == nil {
		t.Fatal("signature must not verify under a different domain")
	}
}

func TestVerifyBitFlipDeterministic(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)
	d := testDomain()

	r := validRequest()
	r.ID = NewRequestID(addr, 1)

	sig, err := SignRequest(r, d, key)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}

	// Flipping any single bit must fail on every run, as either a
	// malformed signature or an address mismatch -- never a success.
	for i := 0; i < len(sig)*8; i += 7 {
		flipped := make([]byte, len(sig))
		copy(flipped, sig)
		flipped[i/8] ^= 1 << (i % 8)

		for run := 0; run < 3; run++ {
			if err := VerifyRequestSignature(r, flipped, d); err == nil {
				t.Fatalf("bit %d run %d: flipped signature verified", i, run)
			}
		}
	}
}

func TestVerifyMalformedSignature(t *testing.T) {
	r := validRequest()
	d := testDomain()

	cases := []struct {
		name string
		sig  []byte
	}{
		{"nil", nil},
		{"short", make([]byte, 64)},
		{"long", make([]byte, 66)},
		{"bad V", func() []byte {
			s := make([]byte, 65)
			s[64] = 99
			return s
		}()},
	}
	for _, tc := range cases {
		if err := VerifyRequestSignature(r, tc.sig, d); !errors.Is(err, ErrMalformedSignature) {
			t.Errorf("%s: got %v, want ErrMalformedSignature", tc.name, err)
		}
	}
}

func TestVerifyOrder(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)
	d := testDomain()

	r := validRequest()
	r.ID = NewRequestID(addr, 1)
	sig, err := SignRequest(r, d, key)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}

	if err := VerifyOrder(Order{Request: r, Signature: sig}, d); err != nil {
		t.Fatalf("VerifyOrder: %v", err)
	}

	// Validation runs before signature checks: an invalid request is
	// rejected with its validation error even when correctly signed.
	bad := r.WithImageURL("")
	badSig, err := SignRequest(bad, d, key)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	if err := VerifyOrder(Order{Request: bad, Signature: badSig}, d); !errors.Is(err, ErrEmptyImageURL) {
		t.Fatalf("got %v, want ErrEmptyImageURL", err)
	}
}
