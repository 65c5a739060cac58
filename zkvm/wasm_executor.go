// WASM guest execution on wazero, the pure-Go WebAssembly runtime.
//
// Guest programs are WASI modules. Isolation is deny-by-default: the
// module sees its input on stdin and commits its journal on stdout, and
// nothing else is wired -- no filesystem, no network, no environment, no
// wall clock, no randomness. With those capabilities absent, execution is
// deterministic in the input.
package zkvm

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasmConfig bounds a WasmExecutor.
type WasmConfig struct {
	// MemoryLimitBytes caps guest linear memory. Zero means the runtime
	// default.
	MemoryLimitBytes uint64
}

// WasmExecutor implements Executor for WASI guest programs. Compiled
// modules are cached per image ID and shared read-only across concurrent
// executions.
type WasmExecutor struct {
	runtime wazero.Runtime

	mu       sync.RWMutex
	compiled map[[32]byte]wazero.CompiledModule

	nameMu  sync.Mutex
	nameSeq uint64
}

// NewWasmExecutor creates a WASM executor with the given limits.
func NewWasmExecutor(ctx context.Context, cfg WasmConfig) *WasmExecutor {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitBytes > 0 {
		// wazero measures memory in 64 KiB pages.
		pages := uint32(cfg.MemoryLimitBytes / (64 * 1024))
		if pages == 0 {
			pages = 1
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(pages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, r)
	return &WasmExecutor{
		runtime:  r,
		compiled: make(map[[32]byte]wazero.CompiledModule),
	}
}

// compile returns the cached compiled module for the program, compiling it
// on first use. Program bytes are never mutated after load.
func (e *WasmExecutor) compile(ctx context.Context, program []byte) (wazero.CompiledModule, error) {
	imageID, err := ComputeImageID(program)
	if err != nil {
		return nil, err
	}
	key := [32]byte(imageID)

	e.mu.RLock()
	mod, ok := e.compiled[key]
	e.mu.RUnlock()
	if ok {
		return mod, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("%w: compile: %v", ErrExecutionFault, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prior, ok := e.compiled[key]; ok {
		_ = compiled.Close(ctx)
		return prior, nil
	}
	e.compiled[key] = compiled
	return compiled, nil
}

// Execute runs the program with input on stdin and collects the journal
// from stdout. A trap, a non-zero exit, or a ctx deadline is an execution
// fault.
func (e *WasmExecutor) Execute(ctx context.Context, program, input []byte) (ExecutionResult, error) {
	if len(program) == 0 {
		return ExecutionResult{}, ErrNilProgram
	}
	compiled, err := e.compile(ctx, program)
	if err != nil {
		return ExecutionResult{}, err
	}

	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithName(e.nextModuleName()).
		WithStartFunctions("_start").
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr)
	// Deliberately not wired: WithFSConfig, WithSysNanotime, WithSysWalltime,
	// WithRandSource, WithEnv. Their absence is what makes execution
	// deterministic.

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		if ctx.Err() != nil {
			return ExecutionResult{Status: ExitFaulted}, fmt.Errorf("%w: %v", ErrExecutionFault, ctx.Err())
		}
		return ExecutionResult{Status: ExitFaulted}, fmt.Errorf("%w: %v", ErrExecutionFault, err)
	}
	defer func() { _ = mod.Close(ctx) }()

	return ExecutionResult{Journal: stdout.Bytes(), Status: ExitHalted}, nil
}

// nextModuleName returns a unique instantiation name. wazero requires
// distinct names for concurrently live instances of one runtime.
func (e *WasmExecutor) nextModuleName() string {
	e.nameMu.Lock()
	defer e.nameMu.Unlock()
	e.nameSeq++
	return fmt.Sprintf("guest-%d", e.nameSeq)
}

// Close releases the runtime and all cached modules.
func (e *WasmExecutor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
