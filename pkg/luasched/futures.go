package luasched

import (
	"errors"
	"sync"
)

var errFuturesClosed = errors.New("luasched: futures queue is closed")

// Future is a unit of thread-affine work. Poll runs on the scheduler
// goroutine and reports whether the future has completed. A future that
// returns false is polled again only after its Waker is woken.
type Future interface {
	Poll(w *Waker) bool
}

// FutureFunc adapts a function to Future.
type FutureFunc func(w *Waker) bool

func (f FutureFunc) Poll(w *Waker) bool { return f(w) }

// Waker reschedules a pending future. Wake is safe from any goroutine and
// may be called any number of times.
type Waker struct {
	q  *FuturesQueue
	id uint64
}

func (w *Waker) Wake() {
	w.q.wake(w.id)
}

type futureEntry struct {
	future Future
	waker  *Waker
	woken  bool
}

// FuturesQueue holds futures polled on the scheduler goroutine. Woken
// futures are polled in the order they were woken.
type FuturesQueue struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*futureEntry
	woken   []uint64
	closed  bool
	notify  func()
}

func newFuturesQueue(notify func()) *FuturesQueue {
	return &FuturesQueue{
		entries: make(map[uint64]*futureEntry),
		notify:  notify,
	}
}

// Push adds f to the queue. It is polled on the next poll step.
func (q *FuturesQueue) Push(f Future) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errFuturesClosed
	}
	q.nextID++
	id := q.nextID
	q.entries[id] = &futureEntry{
		future: f,
		waker:  &Waker{q: q, id: id},
		woken:  true,
	}
	q.woken = append(q.woken, id)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Len returns the number of futures that have not completed.
func (q *FuturesQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *FuturesQueue) hasWoken() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.woken) > 0
}

func (q *FuturesQueue) wake(id uint64) {
	q.mu.Lock()
	e, ok := q.entries[id]
	if !ok || e.woken {
		q.mu.Unlock()
		return
	}
	e.woken = true
	q.woken = append(q.woken, id)
	q.mu.Unlock()

	q.signal()
}

// poll polls every future woken before the call once. Futures woken while
// the batch runs are left for the next call. It returns the number of
// futures polled.
func (q *FuturesQueue) poll() int {
	q.mu.Lock()
	ids := q.woken
	q.woken = nil
	batch := make([]*futureEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := q.entries[id]; ok {
			e.woken = false
			batch = append(batch, e)
		}
	}
	q.mu.Unlock()

	for _, e := range batch {
		if !e.future.Poll(e.waker) {
			continue
		}
		q.mu.Lock()
		delete(q.entries, e.waker.id)
		q.mu.Unlock()
	}
	return len(batch)
}

// close drops every pending future and refuses new ones.
func (q *FuturesQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.entries = make(map[uint64]*futureEntry)
	q.woken = nil
	q.mu.Unlock()
}

func (q *FuturesQueue) signal() {
	if q.notify != nil {
		q.notify()
	}
}
