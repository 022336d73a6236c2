package luasched

import (
	"math"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// builtinSleep implements sleep(seconds) -> elapsed
// The delay is clamped to the configured floor. The thread resumes with the
// seconds that actually passed, which is never less than the clamped delay.
func (h Handle) builtinSleep(L *lua.LState) int {
	rt := h.mustRuntime(L, "sleep")
	d := rt.clampSleep(float64(L.OptNumber(1, 0)))
	start := time.Now()
	deadline := start.Add(d)

	done := make(chan struct{})
	return rt.yieldUntil(L, "sleep", done, func(wake func()) {
		time.AfterFunc(time.Until(deadline), func() {
			close(done)
			wake()
		})
	}, func() []lua.LValue {
		return []lua.LValue{lua.LNumber(time.Since(start).Seconds())}
	})
}

// clampSleep converts seconds to a delay no shorter than the floor.
// Delays too long for a time.Duration saturate.
func (rt *Runtime) clampSleep(seconds float64) time.Duration {
	floor := rt.cfg.sleepFloor()
	ns := seconds * float64(time.Second)
	switch {
	case math.IsNaN(ns) || ns < float64(floor):
		return floor
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
