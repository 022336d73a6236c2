package luasched

import "sync"

// ExitCode is the process-style status a Runtime finishes with.
type ExitCode int

const (
	ExitSuccess ExitCode = 0
	ExitFailure ExitCode = 1
)

// Exit is the shared exit-code cell. The last write wins.
type Exit struct {
	mu     sync.Mutex
	code   ExitCode
	set    bool
	notify func()
}

func newExit(notify func()) *Exit {
	return &Exit{notify: notify}
}

// Set records code and wakes the scheduler.
func (e *Exit) Set(code ExitCode) {
	e.mu.Lock()
	e.code = code
	e.set = true
	e.mu.Unlock()
	if e.notify != nil {
		e.notify()
	}
}

// Get returns the recorded code and whether one was set.
func (e *Exit) Get() (ExitCode, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.code, e.set
}

func (e *Exit) isSet() bool {
	_, ok := e.Get()
	return ok
}
