// The broker glues the order stream to the prover pipeline: subscribe,
// verify, fulfill, submit. Each order runs its own pipeline; proving
// concurrency is bounded inside the prover, not here.
package broker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zkmarket/zkmarket/log"
	"github.com/zkmarket/zkmarket/market"
	"github.com/zkmarket/zkmarket/metrics"
	"github.com/zkmarket/zkmarket/prover"
	"github.com/zkmarket/zkmarket/stream"
	"github.com/zkmarket/zkmarket/zkvm"
)

// SubmitFunc delivers a finished bundle to the settlement layer.
type SubmitFunc func(ctx context.Context, bundle prover.OrderFulfilled) error

// Broker runs the subscribe-fulfill-submit loop.
type Broker struct {
	cfg    Config
	domain market.Domain
	prv    *prover.Prover
	client *stream.Client
	submit SubmitFunc
	logger *log.Logger

	// now is the clock for expiry checks, swapped in tests.
	now func() uint64

	wg sync.WaitGroup
}

// New builds a broker: loads the guest programs, derives the prover
// address from the configured key and wires the pipeline.
func New(cfg Config, ps zkvm.ProofSystem, submit SubmitFunc) (*Broker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(cfg.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("broker: parse key: %w", err)
	}
	setBuilder, err := os.ReadFile(cfg.SetBuilderPath)
	if err != nil {
		return nil, fmt.Errorf("broker: read set builder: %w", err)
	}
	assessorProg, err := os.ReadFile(cfg.AssessorPath)
	if err != nil {
		return nil, fmt.Errorf("broker: read assessor: %w", err)
	}

	domain := market.MarketDomain(common.HexToAddress(cfg.MarketAddress), cfg.ChainID)
	prv, err := prover.New(ps, prover.Config{
		ProverAddress:       crypto.PubkeyToAddress(key.PublicKey),
		Domain:              domain,
		SetBuilderProgram:   setBuilder,
		AssessorProgram:     assessorProg,
		MaxConcurrentProofs: cfg.MaxConcurrentProofs,
	})
	if err != nil {
		return nil, err
	}

	return &Broker{
		cfg:    cfg,
		domain: domain,
		prv:    prv,
		client: stream.NewClient(stream.ClientConfig{
			URL:    cfg.StreamURL,
			Key:    key,
			Domain: domain,
		}),
		submit: submit,
		logger: log.Default().Module("broker"),
		now:    func() uint64 { return uint64(time.Now().Unix()) },
	}, nil
}

// Prover exposes the underlying prover, mainly for inspection.
func (b *Broker) Prover() *prover.Prover {
	return b.prv
}

// Serve connects to the order stream and processes orders until the
// context ends or the stream closes.
func (b *Broker) Serve(ctx context.Context) error {
	if err := b.client.Connect(ctx); err != nil {
		return err
	}
	defer b.client.Close()
	return b.Run(ctx, b.client.Orders())
}

// Run processes orders from the channel until it closes or the context
// ends, then waits for in-flight pipelines to finish.
func (b *Broker) Run(ctx context.Context, orders <-chan market.Order) error {
	defer b.wg.Wait()
	for {
		select {
		case order, ok := <-orders:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(ctx, order)
			}()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handle runs one order's pipeline end to end. Errors are logged, not
// fatal: a bad order must not take the broker down.
func (b *Broker) handle(ctx context.Context, order market.Order) {
	metrics.OrdersReceived.Inc()
	id := order.Request.ID
	if expiry := order.Request.ExpiresAt(); b.now() >= expiry {
		metrics.OrdersSkipped.Inc()
		b.logger.Debug("skipping expired order", "id", id.Hex(), "expired_at", expiry)
		return
	}
	price, err := order.Request.Offer.PriceAt(b.now())
	if err != nil {
		metrics.OrdersSkipped.Inc()
		b.logger.Warn("order with unusable offer", "id", id.Hex(), "err", err)
		return
	}
	b.logger.Info("fulfilling order", "id", id.Hex(), "price", price)

	stop := metrics.Time(metrics.FulfillTime)
	fill, root, _, assessorIncl, err := b.prv.Fulfill(ctx, order, b.cfg.RequirePayment)
	elapsed := stop()
	if err != nil {
		metrics.OrdersFailed.Inc()
		b.logger.Warn("fulfillment failed", "id", id.Hex(), "err", err)
		return
	}
	bundle, err := prover.NewOrderFulfilled(root, []market.Fulfillment{fill}, assessorIncl, b.prv.VerifierParameters(), b.prv.Address())
	if err != nil {
		metrics.OrdersFailed.Inc()
		b.logger.Error("bundle assembly failed", "id", id.Hex(), "err", err)
		return
	}
	if err := b.submit(ctx, bundle); err != nil {
		metrics.OrdersFailed.Inc()
		b.logger.Error("submission failed", "id", id.Hex(), "err", err)
		return
	}
	metrics.OrdersFulfilled.Inc()
	b.logger.Info("order submitted", "id", id.Hex(), "root", bundle.Root, "elapsed", elapsed)
}
