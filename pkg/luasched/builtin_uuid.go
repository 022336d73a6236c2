package luasched

import (
	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

// builtinUUID implements uuid() -> string
func builtinUUID(L *lua.LState) int {
	L.Push(lua.LString(uuid.NewString()))
	return 1
}
