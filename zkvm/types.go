// Package zkvm provides the proving substrate of the market: content-
// addressed program identities, receipt claims with tagged struct digests,
// isolated deterministic guest execution, and a proof system capability
// that turns executions into verifiable receipts.
//
// The proof system is a capability injected at construction. Nothing in
// this package consults ambient process state to pick a backend; tests and
// deployments substitute executors and proof systems explicitly.
package zkvm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Execution and proving errors.
var (
	ErrNilProgram           = errors.New("zkvm: nil or empty program")
	ErrExecutionFault       = errors.New("zkvm: guest execution faulted")
	ErrUnverifiedAssumption = errors.New("zkvm: assumption receipt failed verification")
	ErrInvalidSeal          = errors.New("zkvm: seal verification failed")
	ErrSealLength           = errors.New("zkvm: invalid seal length")
	ErrUnknownProofMode     = errors.New("zkvm: unknown proof mode")
	ErrClaimDigestMismatch  = errors.New("zkvm: receipt claim digest mismatch")
)

// ExitStatus describes how a guest execution terminated.
type ExitStatus uint8

const (
	// ExitHalted is a normal termination with a committed journal.
	ExitHalted ExitStatus = 0
	// ExitPaused is a cooperative suspension; the claim is provable but
	// the computation is resumable.
	ExitPaused ExitStatus = 1
	// ExitFaulted marks a trapped execution. Faulted claims are never
	// aggregated.
	ExitFaulted ExitStatus = 2
)

// ProofMode selects the proof strength a receipt is produced with.
// Different pipeline steps need different modes: leaves and the assessor
// prove succinct, the final join proves compact for cheap on-chain
// verification.
type ProofMode uint8

const (
	// ModeFast is the uncompressed development mode.
	ModeFast ProofMode = 0
	// ModeSuccinct is the recursion-friendly compressed mode.
	ModeSuccinct ProofMode = 1
	// ModeCompact is the final on-chain mode (constant-size seal).
	ModeCompact ProofMode = 2
)

// String returns the name of the proof mode.
func (m ProofMode) String() string {
	switch m {
	case ModeFast:
		return "fast"
	case ModeSuccinct:
		return "succinct"
	case ModeCompact:
		return "compact"
	default:
		return "unknown"
	}
}

// ComputeImageID returns the content-addressed identity of a guest
// program: the SHA-256 digest of its binary.
func ComputeImageID(program []byte) (common.Hash, error) {
	if len(program) == 0 {
		return common.Hash{}, ErrNilProgram
	}
	return sha256.Sum256(program), nil
}

// JournalDigest returns the SHA-256 digest of a journal.
func JournalDigest(journal []byte) common.Hash {
	return sha256.Sum256(journal)
}

// Claim is the minimal public fact a receipt proves: a specific program,
// identified by image ID, terminated with a specific status and committed
// a journal with a specific digest.
type Claim struct {
	ImageID       common.Hash
	JournalDigest common.Hash
	Status        ExitStatus
}

// NewClaim builds the halted claim for a program and its journal bytes.
func NewClaim(imageID common.Hash, journal []byte) Claim {
	return Claim{
		ImageID:       imageID,
		JournalDigest: JournalDigest(journal),
		Status:        ExitHalted,
	}
}

// claimTag domain-separates claim digests from every other SHA-256 use in
// the system.
var claimTag = sha256.Sum256([]byte("zkmarket.Claim"))

// Digest returns the tagged struct digest of the claim:
//
//	SHA256(tag || imageID || journalDigest || u16(status) || u16(fieldCount))
//
// The digest is a pure function of the claim and is the leaf value of
// aggregation trees.
func (c Claim) Digest() common.Hash {
	h := sha256.New()
	h.Write(claimTag[:])
	h.Write(c.ImageID.Bytes())
	h.Write(c.JournalDigest.Bytes())
	var trail [4]byte
	binary.BigEndian.PutUint16(trail[:2], uint16(c.Status))
	binary.BigEndian.PutUint16(trail[2:], 2) // field count, for schema evolution
	h.Write(trail[:])
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// Receipt is a proof artifact asserting that a specific program, given some
// input, committed a specific journal. The seal is the opaque cryptographic
// proof in the encoding of the proof system that produced it.
type Receipt struct {
	Journal []byte
	Claim   Claim
	Seal    []byte
	Mode    ProofMode
}

// ExecutionResult is the outcome of one isolated guest execution.
type ExecutionResult struct {
	// Journal is the public output committed by the guest.
	Journal []byte
	// Status is the guest's termination status.
	Status ExitStatus
}
