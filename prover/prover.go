// The prover engine: fetches a signed order's program and input, proves
// the execution, attests price/predicate compliance with an assessor
// receipt, aggregates both claims into a two-leaf set and assembles the
// fulfillment bundle a settlement verifier checks.
package prover

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zkmarket/zkmarket/aggregation"
	"github.com/zkmarket/zkmarket/assessor"
	"github.com/zkmarket/zkmarket/log"
	"github.com/zkmarket/zkmarket/market"
	"github.com/zkmarket/zkmarket/metrics"
	"github.com/zkmarket/zkmarket/zkvm"
)

// Pipeline errors.
var (
	ErrZeroProverAddress = errors.New("prover: zero prover address")
	ErrNoSetBuilder      = errors.New("prover: missing set-builder program")
	ErrNoAssessor        = errors.New("prover: missing assessor program")
	ErrImageMismatch     = errors.New("prover: fetched program does not match the requested image")
)

// Config carries everything a prover needs beyond the proof system.
type Config struct {
	// ProverAddress is the address fulfillment payments are bound to.
	ProverAddress common.Address
	// Domain is the EIP-712 domain orders are signed in.
	Domain market.Domain
	// SetBuilderProgram and AssessorProgram are the aggregation and
	// attestation guests, loaded once and shared read-only.
	SetBuilderProgram []byte
	AssessorProgram   []byte
	// MaxConcurrentProofs bounds CPU-bound proving across all orders.
	// Zero means one proof at a time.
	MaxConcurrentProofs int
	// HTTPClient fetches programs and inputs; nil uses the default.
	HTTPClient *http.Client
}

// Prover runs the fulfillment pipeline for signed orders.
type Prover struct {
	ps              zkvm.ProofSystem
	sb              *aggregation.SetBuilder
	assessorProgram []byte
	addr            common.Address
	domain          market.Domain
	client          *http.Client

	// gate bounds concurrent CPU-bound proving. Fetches run outside it.
	gate chan struct{}

	logger *log.Logger
}

// New creates a prover for the given proof system and configuration.
func New(ps zkvm.ProofSystem, cfg Config) (*Prover, error) {
	if cfg.ProverAddress == (common.Address{}) {
		return nil, ErrZeroProverAddress
	}
	if len(cfg.SetBuilderProgram) == 0 {
		return nil, ErrNoSetBuilder
	}
	if len(cfg.AssessorProgram) == 0 {
		return nil, ErrNoAssessor
	}
	sb, err := aggregation.NewSetBuilder(ps, cfg.SetBuilderProgram)
	if err != nil {
		return nil, err
	}
	workers := cfg.MaxConcurrentProofs
	if workers <= 0 {
		workers = 1
	}
	return &Prover{
		ps:              ps,
		sb:              sb,
		assessorProgram: append([]byte(nil), cfg.AssessorProgram...),
		addr:            cfg.ProverAddress,
		domain:          cfg.Domain,
		client:          cfg.HTTPClient,
		gate:            make(chan struct{}, workers),
		logger:          log.Default().Module("prover"),
	}, nil
}

// Address returns the prover address fulfillments are bound to.
func (p *Prover) Address() common.Address {
	return p.addr
}

// VerifierParameters returns the aggregation parameters digest for
// receipts this prover produces.
func (p *Prover) VerifierParameters() aggregation.VerifierParameters {
	return aggregation.VerifierParameters{SetBuilderID: p.sb.ImageID()}
}

// resolveInput turns an order's input into concrete guest input bytes.
func (p *Prover) resolveInput(ctx context.Context, in market.Input) ([]byte, error) {
	switch in.Kind {
	case market.InputInline:
		return in.Data, nil
	case market.InputURL:
		return FetchURL(ctx, p.client, string(in.Data))
	default:
		return nil, market.ErrInvalidInputKind
	}
}

// fetchArtifacts resolves the order's program and input to bytes and
// checks the program against the requested image ID.
func (p *Prover) fetchArtifacts(ctx context.Context, req market.ProofRequest) (program, input []byte, err error) {
	program, err = FetchURL(ctx, p.client, req.ImageURL)
	if err != nil {
		return nil, nil, err
	}
	imageID, err := zkvm.ComputeImageID(program)
	if err != nil {
		return nil, nil, err
	}
	if imageID != req.Requirements.ImageID {
		return nil, nil, fmt.Errorf("%w: got %s, want %s", ErrImageMismatch, imageID, req.Requirements.ImageID)
	}
	input, err = p.resolveInput(ctx, req.Input)
	if err != nil {
		return nil, nil, err
	}
	return program, input, nil
}

// acquireSlot blocks until a proving slot is free or the context is done.
func (p *Prover) acquireSlot(ctx context.Context) error {
	select {
	case p.gate <- struct{}{}:
		metrics.ProofsInFlight.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Prover) releaseSlot() {
	metrics.ProofsInFlight.Dec()
	<-p.gate
}

// Fulfill runs the whole pipeline for one signed order: verify, fetch,
// prove, assess, aggregate, assemble. On any error nothing of the partial
// work is returned; only the complete bundle is a valid fulfillment.
func (p *Prover) Fulfill(ctx context.Context, order market.Order, requirePayment bool) (market.Fulfillment, zkvm.Receipt, aggregation.SetInclusionReceipt, aggregation.SetInclusionReceipt, error) {
	fail := func(err error) (market.Fulfillment, zkvm.Receipt, aggregation.SetInclusionReceipt, aggregation.SetInclusionReceipt, error) {
		return market.Fulfillment{}, zkvm.Receipt{}, aggregation.SetInclusionReceipt{}, aggregation.SetInclusionReceipt{}, err
	}

	if err := market.VerifyOrder(order, p.domain); err != nil {
		return fail(err)
	}
	id := order.Request.ID

	program, input, err := p.fetchArtifacts(ctx, order.Request)
	if err != nil {
		return fail(err)
	}

	// Proving is CPU-bound; everything from the leaf proof to the join
	// holds one worker slot so concurrent orders cannot oversubscribe.
	if err := p.acquireSlot(ctx); err != nil {
		return fail(err)
	}
	defer p.releaseSlot()

	orderReceipt, err := p.ps.Prove(ctx, program, input, nil, zkvm.ModeSuccinct)
	if err != nil {
		return fail(fmt.Errorf("prover: order %s: %w", id.Hex(), err))
	}
	orderSet, err := p.sb.Singleton(ctx, orderReceipt)
	if err != nil {
		return fail(err)
	}

	fill := market.Fulfillment{
		ID:             id,
		RequestDigest:  market.SigningHash(order.Request, p.domain),
		ImageID:        order.Request.Requirements.ImageID,
		Journal:        orderReceipt.Journal,
		RequirePayment: requirePayment,
	}

	assessorReceipt, err := p.assess(ctx, fill, order, orderReceipt)
	if err != nil {
		return fail(err)
	}
	assessorSet, err := p.sb.Singleton(ctx, assessorReceipt)
	if err != nil {
		return fail(err)
	}

	root, err := p.sb.Join(ctx, orderSet, assessorSet)
	if err != nil {
		return fail(err)
	}

	orderIncl, assessorIncl, err := p.inclusionReceipts(orderReceipt.Claim, assessorReceipt.Claim)
	if err != nil {
		return fail(err)
	}
	fill.Seal, err = orderIncl.EncodeSeal()
	if err != nil {
		return fail(err)
	}

	p.logger.Info("order fulfilled", "id", id.Hex(), "image", fill.ImageID)
	return fill, root, orderIncl, assessorIncl, nil
}

// assess proves the assessor guest over the single-fill batch, assuming
// the order receipt so the attested journal is itself proven.
func (p *Prover) assess(ctx context.Context, fill market.Fulfillment, order market.Order, orderReceipt zkvm.Receipt) (zkvm.Receipt, error) {
	in := assessor.Input{
		Domain:        p.domain,
		Fills:         []market.Fulfillment{fill},
		Orders:        []market.Order{order},
		ProverAddress: p.addr,
	}
	enc, err := assessor.EncodeInput(in)
	if err != nil {
		return zkvm.Receipt{}, err
	}
	receipt, err := p.ps.Prove(ctx, p.assessorProgram, enc, []zkvm.Receipt{orderReceipt}, zkvm.ModeSuccinct)
	if err != nil {
		return zkvm.Receipt{}, fmt.Errorf("prover: assessor: %w", err)
	}
	return receipt, nil
}

// inclusionReceipts builds both leaves' inclusion receipts for the
// two-leaf set, order leaf first.
func (p *Prover) inclusionReceipts(orderClaim, assessorClaim zkvm.Claim) (aggregation.SetInclusionReceipt, aggregation.SetInclusionReceipt, error) {
	leaves := []common.Hash{orderClaim.Digest(), assessorClaim.Digest()}
	params := p.sb.VerifierParameters()

	orderPath, err := aggregation.MerklePath(leaves, 0)
	if err != nil {
		return aggregation.SetInclusionReceipt{}, aggregation.SetInclusionReceipt{}, err
	}
	assessorPath, err := aggregation.MerklePath(leaves, 1)
	if err != nil {
		return aggregation.SetInclusionReceipt{}, aggregation.SetInclusionReceipt{}, err
	}

	orderIncl := aggregation.FromPath(orderClaim, orderPath, 0, 2)
	orderIncl.VerifierParameters = params
	assessorIncl := aggregation.FromPath(assessorClaim, assessorPath, 1, 2)
	assessorIncl.VerifierParameters = params
	return orderIncl, assessorIncl, nil
}
