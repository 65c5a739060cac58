package main

import (
	"log/slog"
	"testing"

	"github.com/zkmarket/zkmarket/broker"
)

func TestParseFlags(t *testing.T) {
	cfg, opts, exit, _ := parseFlags([]string{
		"-stream.url", "wss://market.example/orders",
		"-key", "ab", "-market", "0xcc",
		"-setbuilder", "/tmp/sb.wasm",
		"-assessor", "/tmp/as.wasm",
		"-chainid", "11155111",
		"-proofs.max", "8",
		"-out", "/tmp/bundles.hex",
		"-log.format", "text",
	})
	if exit {
		t.Fatal("unexpected early exit")
	}
	if cfg.StreamURL != "wss://market.example/orders" {
		t.Errorf("stream url = %q", cfg.StreamURL)
	}
	if cfg.ChainID != 11155111 {
		t.Errorf("chain id = %d", cfg.ChainID)
	}
	if cfg.MaxConcurrentProofs != 8 {
		t.Errorf("proofs.max = %d", cfg.MaxConcurrentProofs)
	}
	if opts.out != "/tmp/bundles.hex" {
		t.Errorf("out = %q", opts.out)
	}
	if opts.logFormat != "text" {
		t.Errorf("log format = %q", opts.logFormat)
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, opts, exit, _ := parseFlags(nil)
	if exit {
		t.Fatal("unexpected early exit")
	}
	if cfg.ChainID != 1 || cfg.MaxConcurrentProofs != 2 || cfg.Verbosity != 3 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if opts.out != "" || opts.logFormat != "json" || opts.logLevel != "" {
		t.Errorf("option defaults not applied: %+v", opts)
	}
}

func TestLogLevelOverridesVerbosity(t *testing.T) {
	cfg := broker.DefaultConfig()
	cfg.Verbosity = 5

	if got := logLevel(cfg, cliOptions{}); got != slog.LevelDebug {
		t.Errorf("verbosity 5 = %v, want debug", got)
	}
	if got := logLevel(cfg, cliOptions{logLevel: "error"}); got != slog.LevelError {
		t.Errorf("named level = %v, want error", got)
	}
	if got := logLevel(cfg, cliOptions{logLevel: "bogus"}); got != slog.LevelInfo {
		t.Errorf("unknown name = %v, want info fallback", got)
	}
}

func TestParseFlagsVersion(t *testing.T) {
	_, _, exit, code := parseFlags([]string{"-version"})
	if !exit || code != 0 {
		t.Errorf("version flag: exit=%v code=%d", exit, code)
	}
}

func TestParseFlagsBadFlag(t *testing.T) {
	_, _, exit, code := parseFlags([]string{"-no.such.flag"})
	if !exit || code != 2 {
		t.Errorf("bad flag: exit=%v code=%d", exit, code)
	}
}

func TestVerbosityToLevel(t *testing.T) {
	cases := map[int]slog.Level{
		0: slog.LevelError + 4,
		1: slog.LevelError,
		2: slog.LevelWarn,
		3: slog.LevelInfo,
		4: slog.LevelDebug,
		5: slog.LevelDebug,
	}
	for v, want := range cases {
		if got := verbosityToLevel(v); got != want {
			t.Errorf("verbosity %d -> %v, want %v", v, got, want)
		}
	}
}
