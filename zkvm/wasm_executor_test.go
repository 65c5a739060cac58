package zkvm

import (
	"context"
	"errors"
	"testing"
)

func TestWasmExecutorRejectsEmptyProgram(t *testing.T) {
	ctx := context.Background()
	e := NewWasmExecutor(ctx, WasmConfig{})
	defer e.Close(ctx)

	if _, err := e.Execute(ctx, nil, nil); !errors.Is(err, ErrNilProgram) {
		t.Fatalf("got %v, want ErrNilProgram", err)
	}
}

func TestWasmExecutorRejectsInvalidModule(t *testing.T) {
	ctx := context.Background()
	e := NewWasmExecutor(ctx, WasmConfig{MemoryLimitBytes: 1 << 20})
	defer e.Close(ctx)

	// Not a WASM binary: compilation must fault, not trap later.
	_, err := e.Execute(ctx, []byte("definitely not wasm"), nil)
	if !errors.Is(err, ErrExecutionFault) {
		t.Fatalf("got %v, want ErrExecutionFault", err)
	}
}

func TestWasmExecutorModuleNamesUnique(t *testing.T) {
	ctx := context.Background()
	e := NewWasmExecutor(ctx, WasmConfig{})
	defer e.Close(ctx)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := e.nextModuleName()
		if seen[name] {
			t.Fatalf("duplicate instantiation name %q", name)
		}
		seen[name] = true
	}
}
