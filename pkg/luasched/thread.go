package luasched

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ThreadSource is anything that can become a schedulable thread.
type ThreadSource interface {
	// IntoThread converts the source using L. L must share its global state
	// with the Runtime's Lua state.
	IntoThread(L *lua.LState) (*Thread, error)
}

// Thread is a Lua coroutine driven by a Runtime.
type Thread struct {
	co   *lua.LState
	done bool
}

// IntoThread returns t itself.
func (t *Thread) IntoThread(*lua.LState) (*Thread, error) {
	if t == nil || t.co == nil {
		return nil, errors.New("nil thread")
	}
	if t.done {
		return nil, errors.New("thread has finished")
	}
	return t, nil
}

// Coroutine returns the underlying Lua coroutine.
func (t *Thread) Coroutine() *lua.LState { return t.co }

// Done reports whether the thread has finished or failed.
func (t *Thread) Done() bool { return t.done }

// Chunk is Lua source compiled into a new thread.
type Chunk struct {
	Name   string
	Source string
}

func (c Chunk) IntoThread(L *lua.LState) (*Thread, error) {
	name := c.Name
	if name == "" {
		name = "chunk"
	}
	fn, err := L.Load(strings.NewReader(c.Source), name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return Function{Fn: fn}.IntoThread(L)
}

// Function runs a Lua function as a new thread.
type Function struct {
	Fn *lua.LFunction
}

func (f Function) IntoThread(L *lua.LState) (*Thread, error) {
	if f.Fn == nil {
		return nil, errors.New("nil function")
	}
	if f.Fn.IsG {
		return nil, errors.New("go functions cannot run as threads")
	}
	create := L.GetField(L.GetGlobal(lua.CoroutineLibName), "create")
	if create == lua.LNil {
		return nil, errors.New("coroutine library is not loaded")
	}
	if err := L.CallByParam(lua.P{Fn: create, NRet: 1, Protect: true}, f.Fn); err != nil {
		return nil, err
	}
	co, ok := L.Get(-1).(*lua.LState)
	L.Pop(1)
	if !ok {
		return nil, errors.New("coroutine.create did not return a thread")
	}
	return &Thread{co: co}, nil
}

// Coroutine schedules an existing Lua coroutine, such as one created with
// coroutine.create. It continues from wherever it last yielded.
type Coroutine struct {
	Co *lua.LState
}

func (c Coroutine) IntoThread(L *lua.LState) (*Thread, error) {
	if c.Co == nil {
		return nil, errors.New("nil coroutine")
	}
	if st := L.Status(c.Co); st != "suspended" {
		return nil, fmt.Errorf("coroutine is %s", st)
	}
	return &Thread{co: c.Co}, nil
}

// resume continues t on L through coroutine.resume. It returns the values
// the thread yielded or returned. A raised error marks the thread done and is
// returned as the Lua value that was raised.
func (t *Thread) resume(L *lua.LState, coResume lua.LValue, args []lua.LValue) ([]lua.LValue, lua.LValue, bool) {
	top := L.GetTop()
	callArgs := make([]lua.LValue, 0, len(args)+1)
	callArgs = append(callArgs, t.co)
	callArgs = append(callArgs, args...)

	if err := L.CallByParam(lua.P{Fn: coResume, NRet: lua.MultRet, Protect: true}, callArgs...); err != nil {
		L.SetTop(top)
		t.done = true
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) && apiErr.Object != nil {
			return nil, apiErr.Object, false
		}
		return nil, lua.LString(err.Error()), false
	}

	ret := make([]lua.LValue, 0, L.GetTop()-top)
	for i := top + 1; i <= L.GetTop(); i++ {
		ret = append(ret, L.Get(i))
	}
	L.SetTop(top)

	if len(ret) == 0 || ret[0] != lua.LTrue {
		t.done = true
		var v lua.LValue = lua.LNil
		if len(ret) > 1 {
			v = ret[1]
		}
		return nil, v, false
	}
	t.done = L.Status(t.co) == "dead"
	return ret[1:], nil, true
}
