package luasched

import (
	"context"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ThreadResult is the outcome of a finished thread. Err is a
// *ThreadRuntimeError when the thread raised an error, in which case Values
// is nil.
type ThreadResult struct {
	Values []lua.LValue
	Err    error
}

type resultSlot struct {
	done     chan struct{}
	result   ThreadResult
	resolved bool
	subs     []func()
}

// closedChan is returned by Listen for ids that are not tracked.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// ThreadResultMap keeps the results of tracked threads until they are taken.
// Results of untracked threads are discarded when written.
type ThreadResultMap struct {
	mu    sync.Mutex
	slots map[ThreadID]*resultSlot
}

func newThreadResultMap() *ThreadResultMap {
	return &ThreadResultMap{slots: make(map[ThreadID]*resultSlot)}
}

// Track starts keeping the result of id. Tracking an id twice is a no-op.
func (m *ThreadResultMap) Track(id ThreadID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		m.slots[id] = &resultSlot{done: make(chan struct{})}
	}
}

// IsTracked reports whether id is tracked and its result not yet taken.
func (m *ThreadResultMap) IsTracked(id ThreadID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[id]
	return ok
}

// insert writes the result of id. It is a no-op when id is untracked or
// already has a result.
func (m *ThreadResultMap) insert(id ThreadID, r ThreadResult) bool {
	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok || s.resolved {
		m.mu.Unlock()
		return false
	}
	s.result = r
	s.resolved = true
	subs := s.subs
	s.subs = nil
	close(s.done)
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return true
}

// Remove takes the result of id. It returns false when the result is not
// available yet, the id is untracked, or the result was already taken.
func (m *ThreadResultMap) Remove(id ThreadID) (ThreadResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || !s.resolved {
		return ThreadResult{}, false
	}
	delete(m.slots, id)
	return s.result, true
}

// Listen returns a channel closed once id has a result. Every listener is
// released by the same write. For untracked ids the channel is already
// closed.
func (m *ThreadResultMap) Listen(id ThreadID) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		return s.done
	}
	return closedChan
}

// Wait blocks until id has a result or ctx is done.
func (m *ThreadResultMap) Wait(ctx context.Context, id ThreadID) error {
	select {
	case <-m.Listen(id):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// subscribe registers fn to run when id gets a result. It returns false, and
// does not keep fn, when there is nothing to wait for.
func (m *ThreadResultMap) subscribe(id ThreadID, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || s.resolved {
		return false
	}
	s.subs = append(s.subs, fn)
	return true
}
