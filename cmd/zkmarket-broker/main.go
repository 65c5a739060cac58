// Command zkmarket-broker subscribes to a proof market order stream,
// fulfills verifiable orders and emits settlement bundles.
//
// Usage:
//
//	zkmarket-broker [flags]
//
// Flags:
//
//	--stream.url     Order stream endpoint, ws:// or wss:// (required)
//	--key            Prover private key, hex without 0x (required)
//	--market         Verifying contract address, 0x-hex (required)
//	--chainid        Chain ID for the signing domain (default: 1)
//	--setbuilder     Path to the set-builder guest binary (required)
//	--assessor       Path to the assessor guest binary (required)
//	--proofs.max     Max concurrent proofs (default: 2)
//	--out            File the encoded bundles are appended to (default: stdout only)
//	--log.format     Log output format: json, text, color (default: json)
//	--log.level      Log level by name: debug, info, warn, error (overrides --verbosity)
//	--verbosity      Log level 0-5 (default: 3)
//	--version        Print version and exit
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zkmarket/zkmarket/broker"
	"github.com/zkmarket/zkmarket/log"
	"github.com/zkmarket/zkmarket/metrics"
	"github.com/zkmarket/zkmarket/prover"
	"github.com/zkmarket/zkmarket/zkvm"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, opts, exit, code := parseFlags(args)
	if exit {
		return code
	}

	level := logLevel(cfg, opts)
	switch opts.logFormat {
	case "text":
		log.SetDefault(log.NewWithHandler(log.NewTextHandler(os.Stderr, level)))
	case "color":
		log.SetDefault(log.NewWithHandler(log.NewColorHandler(os.Stderr, level)))
	default:
		log.SetDefault(log.New(level))
	}
	logger := log.Default().Module("broker")

	logger.Info("zkmarket-broker starting",
		"version", version,
		"stream", cfg.StreamURL,
		"market", cfg.MarketAddress,
		"chainid", cfg.ChainID,
		"proofs_max", cfg.MaxConcurrentProofs)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec := zkvm.NewWasmExecutor(ctx, zkvm.WasmConfig{})
	defer exec.Close(ctx)
	ps := zkvm.NewSealProver(exec)

	b, err := broker.New(cfg, ps, submitter(logger, opts.out))
	if err != nil {
		logger.Error("broker setup failed", "err", err)
		return 1
	}

	if err := b.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error("broker stopped", "err", err)
		return 1
	}
	logger.Info("shutdown complete", "metrics", metrics.Overview())
	return 0
}

// submitter logs each finished bundle and, when out is set, appends its
// hex encoding to the file.
func submitter(logger *log.Logger, out string) broker.SubmitFunc {
	return func(ctx context.Context, bundle prover.OrderFulfilled) error {
		logger.Info("bundle ready",
			"root", bundle.Root,
			"fills", len(bundle.Fills),
			"prover", bundle.Prover)
		if out == "" {
			return nil
		}
		f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = fmt.Fprintf(f, "%s\n", hex.EncodeToString(bundle.Encode()))
		return err
	}
}

// cliOptions are flags that configure the process rather than the broker.
type cliOptions struct {
	out       string
	logFormat string
	logLevel  string
}

// parseFlags parses CLI arguments into a broker config. Returns the
// config, the process options, whether the caller should exit
// immediately, and the exit code.
func parseFlags(args []string) (broker.Config, cliOptions, bool, int) {
	cfg := broker.DefaultConfig()
	var opts cliOptions
	fs := flag.NewFlagSet("zkmarket-broker", flag.ContinueOnError)

	fs.StringVar(&cfg.StreamURL, "stream.url", cfg.StreamURL, "order stream endpoint (ws:// or wss://)")
	fs.StringVar(&cfg.KeyHex, "key", cfg.KeyHex, "prover private key, hex without 0x")
	fs.StringVar(&cfg.MarketAddress, "market", cfg.MarketAddress, "verifying contract address")
	fs.Uint64Var(&cfg.ChainID, "chainid", cfg.ChainID, "chain ID for the signing domain")
	fs.StringVar(&cfg.SetBuilderPath, "setbuilder", cfg.SetBuilderPath, "set-builder guest binary path")
	fs.StringVar(&cfg.AssessorPath, "assessor", cfg.AssessorPath, "assessor guest binary path")
	fs.IntVar(&cfg.MaxConcurrentProofs, "proofs.max", cfg.MaxConcurrentProofs, "max concurrent proofs")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0=silent, 5=trace)")
	fs.StringVar(&opts.out, "out", "", "file the encoded bundles are appended to")
	fs.StringVar(&opts.logFormat, "log.format", "json", "log output format (json, text, color)")
	fs.StringVar(&opts.logLevel, "log.level", "", "log level by name (debug, info, warn, error)")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, opts, true, 2
	}
	if *showVersion {
		fmt.Printf("zkmarket-broker %s (commit %s)\n", version, commit)
		return cfg, opts, true, 0
	}
	return cfg, opts, false, 0
}

// logLevel resolves the effective log level: a named -log.level wins
// over the numeric -verbosity scale.
func logLevel(cfg broker.Config, opts cliOptions) slog.Level {
	if opts.logLevel != "" {
		return log.ParseLevel(opts.logLevel)
	}
	return verbosityToLevel(cfg.Verbosity)
}

// verbosityToLevel maps the CLI verbosity scale onto slog levels.
func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError + 4
	case v == 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
