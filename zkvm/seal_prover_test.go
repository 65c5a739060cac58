package zkvm

import (
	"context"
	"errors"
	"testing"
)

func testProver() *SealProver {
	return NewSealProver(NewDevExecutor())
}

func TestProveAndVerify(t *testing.T) {
	p := testProver()
	for _, mode := range []ProofMode{ModeFast, ModeSuccinct, ModeCompact} {
		receipt, err := p.Prove(context.Background(), []byte("echo"), []byte{1, 2, 3}, nil, mode)
		if err != nil {
			t.Fatalf("%v: Prove: %v", mode, err)
		}
		if receipt.Mode != mode {
			t.Errorf("%v: mode not recorded", mode)
		}
		if string(receipt.Journal) != string([]byte{1, 2, 3}) {
			t.Errorf("%v: echo journal mismatch: %x", mode, receipt.Journal)
		}
		if err := p.Verify(receipt); err != nil {
			t.Errorf("%v: Verify: %v", mode, err)
		}
	}
}

func TestSealSizesPerMode(t *testing.T) {
	p := testProver()
	sizes := map[ProofMode]int{
		ModeFast:     FastSealSize,
		ModeSuccinct: SuccinctSealSize,
		ModeCompact:  CompactSealSize,
	}
	for mode, want := range sizes {
		receipt, err := p.Prove(context.Background(), []byte("echo"), nil, nil, mode)
		if err != nil {
			t.Fatalf("%v: Prove: %v", mode, err)
		}
		if len(receipt.Seal) != want {
			t.Errorf("%v: seal size %d, want %d", mode, len(receipt.Seal), want)
		}
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	p := testProver()
	receipt, err := p.Prove(context.Background(), []byte("echo"), []byte{5}, nil, ModeSuccinct)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	tamperedSeal := receipt
	tamperedSeal.Seal = append([]byte(nil), receipt.Seal...)
	tamperedSeal.Seal[0] ^= 1
	if err := p.Verify(tamperedSeal); !errors.Is(err, ErrInvalidSeal) {
		t.Errorf("tampered seal: got %v, want ErrInvalidSeal", err)
	}

	tamperedJournal := receipt
	tamperedJournal.Journal = append([]byte(nil), receipt.Journal...)
	tamperedJournal.Journal[0] ^= 1
	if err := p.Verify(tamperedJournal); !errors.Is(err, ErrClaimDigestMismatch) {
		t.Errorf("tampered journal: got %v, want ErrClaimDigestMismatch", err)
	}

	truncated := receipt
	truncated.Seal = receipt.Seal[:len(receipt.Seal)-1]
	if err := p.Verify(truncated); !errors.Is(err, ErrSealLength) {
		t.Errorf("truncated seal: got %v, want ErrSealLength", err)
	}
}

func TestProveRejectsBadAssumption(t *testing.T) {
	p := testProver()
	good, err := p.Prove(context.Background(), []byte("echo"), []byte{1}, nil, ModeSuccinct)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	bad := good
	bad.Seal = append([]byte(nil), good.Seal...)
	bad.Seal[5] ^= 0xff

	_, err = p.Prove(context.Background(), []byte("echo"), []byte{2}, []Receipt{good, bad}, ModeSuccinct)
	if !errors.Is(err, ErrUnverifiedAssumption) {
		t.Fatalf("got %v, want ErrUnverifiedAssumption", err)
	}
}

func TestProveUnknownGuest(t *testing.T) {
	p := testProver()
	_, err := p.Prove(context.Background(), []byte("no-such-guest"), nil, nil, ModeFast)
	if !errors.Is(err, ErrExecutionFault) {
		t.Fatalf("got %v, want ErrExecutionFault", err)
	}
}

func TestProveHonorsCancellation(t *testing.T) {
	p := testProver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Prove(ctx, []byte("echo"), nil, nil, ModeFast); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestGuestFailureIsFault(t *testing.T) {
	exec := NewDevExecutor()
	exec.Register("boom", func([]byte) ([]byte, error) {
		return nil, errors.New("trap")
	})
	p := NewSealProver(exec)
	if _, err := p.Prove(context.Background(), []byte("boom"), nil, nil, ModeFast); !errors.Is(err, ErrExecutionFault) {
		t.Fatalf("got %v, want ErrExecutionFault", err)
	}
}
