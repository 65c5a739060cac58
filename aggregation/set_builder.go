// SetBuilder drives the set-builder guest through the proof system:
// singleton proofs lift leaf receipts into one-leaf sets, join proofs
// combine two sets into their parent. Joins carry both child receipts as
// assumptions, so the parent's validity rests on verified composition of
// the children's claims; no leaf is ever re-executed.
package aggregation

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkmarket/zkmarket/zkvm"
)

// SetBuilder aggregates receipts with a fixed set-builder program.
type SetBuilder struct {
	ps      zkvm.ProofSystem
	program []byte
	imageID common.Hash
}

// NewSetBuilder creates a builder for the given set-builder program.
func NewSetBuilder(ps zkvm.ProofSystem, program []byte) (*SetBuilder, error) {
	imageID, err := zkvm.ComputeImageID(program)
	if err != nil {
		return nil, err
	}
	return &SetBuilder{ps: ps, program: append([]byte(nil), program...), imageID: imageID}, nil
}

// ImageID returns the set builder's program identity.
func (sb *SetBuilder) ImageID() common.Hash {
	return sb.imageID
}

// VerifierParameters returns the parameters digest verifiers must pin for
// inclusion receipts produced by this builder.
func (sb *SetBuilder) VerifierParameters() common.Hash {
	return VerifierParameters{SetBuilderID: sb.imageID}.Digest()
}

// Singleton wraps one receipt as a one-leaf aggregation set. The set root
// committed by the resulting receipt equals the leaf's claim digest.
// Singleton receipts are proved succinct: they feed further recursion.
func (sb *SetBuilder) Singleton(ctx context.Context, receipt zkvm.Receipt) (zkvm.Receipt, error) {
	input := SingletonInput(sb.imageID, receipt.Claim.Digest())
	out, err := sb.ps.Prove(ctx, sb.program, input.Encode(), []zkvm.Receipt{receipt}, zkvm.ModeSuccinct)
	if err != nil {
		return zkvm.Receipt{}, fmt.Errorf("aggregation: singleton: %w", err)
	}
	return out, nil
}

// Join combines two already-aggregated set receipts into their parent.
// Each side's journal is decoded as a GuestOutput; a side built by a
// different set-builder image is rejected. The join is proved in the
// compact mode: it is the receipt a chain verifier checks.
func (sb *SetBuilder) Join(ctx context.Context, left, right zkvm.Receipt) (zkvm.Receipt, error) {
	leftOut, err := DecodeGuestOutput(left.Journal)
	if err != nil {
		return zkvm.Receipt{}, fmt.Errorf("aggregation: join left journal: %w", err)
	}
	rightOut, err := DecodeGuestOutput(right.Journal)
	if err != nil {
		return zkvm.Receipt{}, fmt.Errorf("aggregation: join right journal: %w", err)
	}
	if leftOut.SetBuilderID != sb.imageID || rightOut.SetBuilderID != sb.imageID {
		return zkvm.Receipt{}, ErrBuilderMismatch
	}

	input := JoinInput(sb.imageID, leftOut.Root, rightOut.Root)
	out, err := sb.ps.Prove(ctx, sb.program, input.Encode(), []zkvm.Receipt{left, right}, zkvm.ModeCompact)
	if err != nil {
		return zkvm.Receipt{}, fmt.Errorf("aggregation: join: %w", err)
	}
	return out, nil
}
