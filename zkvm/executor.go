package zkvm

import (
	"context"
	"fmt"
	"sync"
)

// Executor runs a guest program inside an isolated deterministic
// environment. The input bytes are the program's sole external input; the
// returned journal is its sole public output. Implementations must be safe
// for concurrent use and must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, program, input []byte) (ExecutionResult, error)
}

// ExecState is the lifecycle of one execution. There are no internal
// retries: execution is deterministic, so a failure is reported upward and
// the caller decides whether anything about the inputs can be fixed.
type ExecState uint8

const (
	ExecPending ExecState = iota
	ExecRunning
	ExecCompleted
	ExecFailed
)

// String returns the name of the execution state.
func (s ExecState) String() string {
	switch s {
	case ExecPending:
		return "pending"
	case ExecRunning:
		return "running"
	case ExecCompleted:
		return "completed"
	case ExecFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// GuestFunc is a built-in guest routine for the development executor.
// It must be a pure function of its input.
type GuestFunc func(input []byte) ([]byte, error)

// DevExecutor executes built-in guest routines registered by name, where
// the "program binary" is the routine's name. It stands in for the real
// isolated executor in tests and development deployments, exactly like a
// proof system's dev mode: deterministic, instant, and explicitly injected
// rather than selected through ambient environment state.
type DevExecutor struct {
	mu     sync.RWMutex
	guests map[string]GuestFunc
}

// NewDevExecutor returns a development executor with the built-in echo
// guest, whose journal is its input verbatim.
func NewDevExecutor() *DevExecutor {
	e := &DevExecutor{guests: make(map[string]GuestFunc)}
	e.Register("echo", func(input []byte) ([]byte, error) {
		return append([]byte(nil), input...), nil
	})
	return e
}

// Register adds a named guest routine.
func (e *DevExecutor) Register(name string, fn GuestFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guests[name] = fn
}

// Execute runs the guest named by the program bytes.
func (e *DevExecutor) Execute(ctx context.Context, program, input []byte) (ExecutionResult, error) {
	if len(program) == 0 {
		return ExecutionResult{}, ErrNilProgram
	}
	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, err
	}
	e.mu.RLock()
	fn, ok := e.guests[string(program)]
	e.mu.RUnlock()
	if !ok {
		return ExecutionResult{}, fmt.Errorf("%w: unknown guest %q", ErrExecutionFault, string(program))
	}
	journal, err := fn(input)
	if err != nil {
		return ExecutionResult{Status: ExitFaulted}, fmt.Errorf("%w: %v", ErrExecutionFault, err)
	}
	return ExecutionResult{Journal: journal, Status: ExitHalted}, nil
}
