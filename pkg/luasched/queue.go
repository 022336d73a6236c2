package luasched

import lua "github.com/yuin/gopher-lua"

// queuedThread is one pending resumption of a thread.
type queuedThread struct {
	id     ThreadID
	thread *Thread
	args   []lua.LValue
}

// threadQueue is a FIFO of pending resumptions. It is only touched by the
// goroutine that owns the Lua state.
type threadQueue struct {
	items []queuedThread
}

func (q *threadQueue) push(t queuedThread) {
	q.items = append(q.items, t)
}

func (q *threadQueue) pop() (queuedThread, bool) {
	if len(q.items) == 0 {
		return queuedThread{}, false
	}
	t := q.items[0]
	q.items[0] = queuedThread{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return t, true
}

// take removes and returns everything queued so far.
func (q *threadQueue) take() []queuedThread {
	items := q.items
	q.items = nil
	return items
}

// requeue puts items back at the head, ahead of anything pushed since take.
func (q *threadQueue) requeue(items []queuedThread) {
	if len(items) == 0 {
		return
	}
	q.items = append(append(make([]queuedThread, 0, len(items)+len(q.items)), items...), q.items...)
}

func (q *threadQueue) len() int {
	return len(q.items)
}

func (q *threadQueue) clear() {
	q.items = nil
}
