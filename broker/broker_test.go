package broker

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/zkmarket/zkmarket/aggregation"
	"github.com/zkmarket/zkmarket/assessor"
	"github.com/zkmarket/zkmarket/market"
	"github.com/zkmarket/zkmarket/prover"
	"github.com/zkmarket/zkmarket/zkvm"
)

const testMarketAddr = "0x00000000000000000000000000000000000000cc"

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	sbPath := filepath.Join(dir, "set-builder.bin")
	asPath := filepath.Join(dir, "assessor.bin")
	if err := os.WriteFile(sbPath, []byte("set-builder"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(asPath, []byte("assessor"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	cfg := DefaultConfig()
	cfg.StreamURL = "ws://localhost:9191/orders"
	cfg.KeyHex = common.Bytes2Hex(crypto.FromECDSA(key))
	cfg.MarketAddress = testMarketAddr
	cfg.SetBuilderPath = sbPath
	cfg.AssessorPath = asPath
	return cfg
}

func testProofSystem() *zkvm.SealProver {
	exec := zkvm.NewDevExecutor()
	exec.Register("set-builder", aggregation.GuestBody)
	exec.Register("assessor", assessor.GuestBody)
	return zkvm.NewSealProver(exec)
}

// echoOrder signs an order for the dev echo guest, with the program
// staged on disk behind a file URL.
func echoOrder(t *testing.T, key *ecdsa.PrivateKey, cfg Config) market.Order {
	t.Helper()
	path := filepath.Join(t.TempDir(), "echo.bin")
	if err := os.WriteFile(path, []byte("echo"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	imageID, err := zkvm.ComputeImageID([]byte("echo"))
	if err != nil {
		t.Fatalf("ComputeImageID: %v", err)
	}
	input := []byte{1, 2, 3, 4}
	req := market.NewProofRequest(
		9,
		crypto.PubkeyToAddress(key.PublicKey),
		market.Requirements{
			ImageID:   imageID,
			Predicate: market.NewDigestMatch(zkvm.JournalDigest(input)),
		},
		"file://"+path,
		market.NewInlineInput(input),
		market.EmptyOffer().
			WithMaxPrice(uint256.NewInt(1)).
			WithBiddingStart(1).
			WithTimeout(1000),
	)
	domain := market.MarketDomain(common.HexToAddress(cfg.MarketAddress), cfg.ChainID)
	sig, err := market.SignRequest(req, domain, key)
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	return market.Order{Request: req, Signature: sig}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"no stream url", func(c *Config) { c.StreamURL = "" }, ErrNoStreamURL},
		{"http stream url", func(c *Config) { c.StreamURL = "http://x/orders" }, ErrBadStreamURL},
		{"no key", func(c *Config) { c.KeyHex = "" }, ErrNoKey},
		{"no market", func(c *Config) { c.MarketAddress = "" }, ErrNoMarket},
		{"zero chain", func(c *Config) { c.ChainID = 0 }, ErrZeroChainID},
		{"no program path", func(c *Config) { c.AssessorPath = "" }, ErrNoProgram},
		{"missing program", func(c *Config) { c.SetBuilderPath += ".nope" }, ErrMissingProgram},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := testConfig(t)
			c.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, c.want) {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestBrokerFulfillsAndSubmits(t *testing.T) {
	cfg := testConfig(t)
	submitted := make(chan prover.OrderFulfilled, 1)
	b, err := New(cfg, testProofSystem(), func(ctx context.Context, bundle prover.OrderFulfilled) error {
		submitted <- bundle
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.now = func() uint64 { return 100 }

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	order := echoOrder(t, key, cfg)

	orders := make(chan market.Order, 1)
	orders <- order
	close(orders)
	if err := b.Run(context.Background(), orders); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case bundle := <-submitted:
		if bundle.Prover != b.Prover().Address() {
			t.Error("bundle must be bound to the broker's prover address")
		}
		if len(bundle.Fills) != 1 || bundle.Fills[0].ID != order.Request.ID {
			t.Error("bundle must carry the fulfilled order")
		}
		if !bundle.Fills[0].RequirePayment {
			t.Error("fills must honor the configured payment flag")
		}
	default:
		t.Fatal("nothing submitted")
	}
}

func TestBrokerSkipsExpiredOrders(t *testing.T) {
	cfg := testConfig(t)
	b, err := New(cfg, testProofSystem(), func(ctx context.Context, bundle prover.OrderFulfilled) error {
		t.Error("nothing should be submitted for an expired order")
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Past the order's bidding_start + timeout.
	b.now = func() uint64 { return 5000 }

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	orders := make(chan market.Order, 1)
	orders <- echoOrder(t, key, cfg)
	close(orders)
	if err := b.Run(context.Background(), orders); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestBrokerSurvivesBadOrders(t *testing.T) {
	cfg := testConfig(t)
	var count int
	b, err := New(cfg, testProofSystem(), func(ctx context.Context, bundle prover.OrderFulfilled) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.now = func() uint64 { return 100 }

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	good := echoOrder(t, key, cfg)
	bad := echoOrder(t, key, cfg)
	bad.Request.ImageURL = "https://images.example/other"

	orders := make(chan market.Order, 2)
	orders <- bad
	orders <- good
	close(orders)
	if err := b.Run(context.Background(), orders); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 1 {
		t.Errorf("submitted %d bundles, want 1 (the verifiable order only)", count)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	b, err := New(cfg, testProofSystem(), func(ctx context.Context, bundle prover.OrderFulfilled) error {
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	orders := make(chan market.Order)
	go func() { done <- b.Run(ctx, orders) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
