package luasched

import (
	"context"
	"weak"

	lua "github.com/yuin/gopher-lua"
)

// Handle is a weak capability for a Runtime. Script builtins hold a Handle
// instead of the Runtime so closures stored in the Lua state do not keep it
// alive. Every method returns a *ContractViolation once the Runtime is gone.
type Handle struct {
	rt weak.Pointer[Runtime]
}

func (h Handle) runtime(op string) (*Runtime, error) {
	rt := h.rt.Value()
	if rt == nil {
		return nil, &ContractViolation{Op: op, Reason: "runtime was dropped"}
	}
	return rt, nil
}

// SpawnThread queues src on the spawn queue.
func (h Handle) SpawnThread(src ThreadSource, args ...lua.LValue) (ThreadID, error) {
	rt, err := h.runtime("spawn_thread")
	if err != nil {
		return 0, err
	}
	return rt.SpawnThread(src, args...)
}

// DeferThread queues src on the defer queue.
func (h Handle) DeferThread(src ThreadSource, args ...lua.LValue) (ThreadID, error) {
	rt, err := h.runtime("push_thread_back")
	if err != nil {
		return 0, err
	}
	return rt.DeferThread(src, args...)
}

func (h Handle) SetExitCode(code ExitCode) error {
	rt, err := h.runtime("set_exit_code")
	if err != nil {
		return err
	}
	rt.SetExitCode(code)
	return nil
}

func (h Handle) TrackThread(id ThreadID) error {
	rt, err := h.runtime("track_thread")
	if err != nil {
		return err
	}
	rt.TrackThread(id)
	return nil
}

func (h Handle) ThreadResult(id ThreadID) (ThreadResult, bool, error) {
	rt, err := h.runtime("get_thread_result")
	if err != nil {
		return ThreadResult{}, false, err
	}
	r, ok := rt.ThreadResult(id)
	return r, ok, nil
}

func (h Handle) WaitForThread(ctx context.Context, id ThreadID) error {
	rt, err := h.runtime("wait_for_thread")
	if err != nil {
		return err
	}
	return rt.WaitForThread(ctx, id)
}

// Spawner returns the runtime's Spawner. The zero Spawner returned for a
// dropped runtime fails every call with a *ContractViolation.
func (h Handle) Spawner() Spawner {
	rt := h.rt.Value()
	if rt == nil {
		return Spawner{}
	}
	return rt.Spawner()
}
