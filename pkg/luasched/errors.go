package luasched

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrRunning is returned by Run when the runtime is already running.
	ErrRunning = errors.New("luasched: runtime is already running")

	// ErrStopped is returned by Run when the runtime has already finished.
	ErrStopped = errors.New("luasched: runtime is stopped")

	// ErrContractViolation matches every *ContractViolation via errors.Is.
	ErrContractViolation = errors.New("luasched: contract violation")
)

// ConversionError is returned synchronously when a value cannot be turned
// into a schedulable thread. Nothing is enqueued.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return "luasched: convert to thread: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ThreadRuntimeError is the result of a thread that raised a Lua error.
type ThreadRuntimeError struct {
	ID    ThreadID
	Value lua.LValue // the raised Lua value
}

func (e *ThreadRuntimeError) Error() string {
	return fmt.Sprintf("luasched: %s failed: %s", e.ID, e.Value.String())
}

// ContractViolation reports use of the scheduler outside an active runtime,
// such as spawning through a Spawner after the executor was torn down.
type ContractViolation struct {
	Op     string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("luasched: %s: %s", e.Op, e.Reason)
}

func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}
