// seal_prover.go implements the deterministic seal construction that turns
// isolated executions into receipts. Seals are structured SHA-256
// commitments over the receipt claim; verification recomputes them. The
// compact mode mirrors a Groth16 layout (A || B || C points) so its seal
// size matches what an on-chain verifier prices for.
//
// SealProver is the development/reference proof system behind the
// ProofSystem capability; a production deployment substitutes a backend
// driving a real zkVM without touching any caller.
package zkvm

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Seal sizes per proof mode.
const (
	FastSealSize     = 32
	SuccinctSealSize = 96
	// Groth16-style layout: A (64) || B (128) || C (64).
	CompactSealSize = 256
)

// ProofSystem turns guest executions into verifiable receipts.
//
// Assumptions are pre-verified sub-receipts the execution may rely on
// without re-checking; they are what allows join and assessor composition
// without re-executing children. Prove must reject an assumption whose own
// seal does not verify.
type ProofSystem interface {
	Prove(ctx context.Context, program, input []byte, assumptions []Receipt, mode ProofMode) (Receipt, error)
	Verify(receipt Receipt) error
}

// SealProver is a ProofSystem over an injected Executor.
type SealProver struct {
	exec Executor
}

// NewSealProver creates a seal prover executing guests on exec.
func NewSealProver(exec Executor) *SealProver {
	return &SealProver{exec: exec}
}

// Prove executes the program in the isolated executor and seals the
// resulting claim. The lifecycle is Pending -> Running -> Completed or
// Failed; a failure is returned, never retried.
func (p *SealProver) Prove(ctx context.Context, program, input []byte, assumptions []Receipt, mode ProofMode) (Receipt, error) {
	imageID, err := ComputeImageID(program)
	if err != nil {
		return Receipt{}, err
	}

	// Assumptions must verify before the execution may assume them.
	for i, a := range assumptions {
		if err := p.Verify(a); err != nil {
			return Receipt{}, fmt.Errorf("%w: assumption %d: %v", ErrUnverifiedAssumption, i, err)
		}
	}

	result, err := p.exec.Execute(ctx, program, input)
	if err != nil {
		return Receipt{}, err
	}
	if result.Status == ExitFaulted {
		return Receipt{}, ErrExecutionFault
	}

	claim := Claim{
		ImageID:       imageID,
		JournalDigest: JournalDigest(result.Journal),
		Status:        result.Status,
	}
	seal, err := buildSeal(claim.Digest(), mode)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{
		Journal: result.Journal,
		Claim:   claim,
		Seal:    seal,
		Mode:    mode,
	}, nil
}

// Verify recomputes the receipt's seal from its claim and compares. The
// claim's journal digest must also match the carried journal bytes.
func (p *SealProver) Verify(r Receipt) error {
	if JournalDigest(r.Journal) != r.Claim.JournalDigest {
		return ErrClaimDigestMismatch
	}
	expected, err := buildSeal(r.Claim.Digest(), r.Mode)
	if err != nil {
		return err
	}
	if len(expected) != len(r.Seal) {
		return ErrSealLength
	}
	if subtle.ConstantTimeCompare(expected, r.Seal) != 1 {
		return ErrInvalidSeal
	}
	return nil
}

// sealHash derives one 32-byte seal component:
// SHA256(claimDigest || label || u8(mode) || u32(index)).
func sealHash(claimDigest common.Hash, mode ProofMode, label string, index uint32) [32]byte {
	h := sha256.New()
	h.Write(claimDigest.Bytes())
	h.Write([]byte(label))
	var meta [5]byte
	meta[0] = byte(mode)
	binary.BigEndian.PutUint32(meta[1:], index)
	h.Write(meta[:])
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// buildSeal constructs the mode-specific seal for a claim digest.
func buildSeal(claimDigest common.Hash, mode ProofMode) ([]byte, error) {
	switch mode {
	case ModeFast:
		c := sealHash(claimDigest, mode, "SealFast", 0)
		return c[:], nil

	case ModeSuccinct:
		seal := make([]byte, SuccinctSealSize)
		for i := 0; i < 3; i++ {
			c := sealHash(claimDigest, mode, "SealSuccinct", uint32(i))
			copy(seal[i*32:], c[:])
		}
		return seal, nil

	case ModeCompact:
		// A (64) || B (128) || C (64), each chunk a labelled hash chain.
		seal := make([]byte, CompactSealSize)
		off := 0
		for i := 0; i < 2; i++ {
			c := sealHash(claimDigest, mode, "SealPointA", uint32(i))
			copy(seal[off:], c[:])
			off += 32
		}
		for i := 0; i < 4; i++ {
			c := sealHash(claimDigest, mode, "SealPointB", uint32(i))
			copy(seal[off:], c[:])
			off += 32
		}
		for i := 0; i < 2; i++ {
			c := sealHash(claimDigest, mode, "SealPointC", uint32(i))
			copy(seal[off:], c[:])
			off += 32
		}
		return seal, nil

	default:
		return nil, ErrUnknownProofMode
	}
}
