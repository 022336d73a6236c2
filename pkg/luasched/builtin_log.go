package luasched

import (
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// builtinLog implements log(level, msg, key, value, ...)
// level is one of "debug", "info", "warn" or "error". Remaining arguments
// are key/value pairs.
func (h Handle) builtinLog(L *lua.LState) int {
	rt := h.mustRuntime(L, "log")
	level := parseLevel(L.CheckString(1))
	msg := L.OptString(2, "")

	attrs := make([]any, 0, L.GetTop())
	if cur := rt.current; cur != nil {
		attrs = append(attrs, "thread", cur.id.String())
	}
	for i := 3; i <= L.GetTop(); i += 2 {
		key := lua.LVAsString(L.Get(i))
		if key == "" {
			key = "!BADKEY"
		}
		v, err := luaToGo(L.Get(i + 1))
		if err != nil {
			L.RaiseError("log: %s: %v", key, err)
		}
		attrs = append(attrs, key, v)
	}
	rt.logger.Log(rt.exec.ctx, level, msg, attrs...)
	return 0
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
