package luasched

import (
	"errors"
	"fmt"
	"math"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// errCyclicTable is returned when a table contains itself.
var errCyclicTable = errors.New("cyclic table")

// luaToGo converts a Lua value to a plain Go value. Tables with keys 1..n
// become []any, other tables map[string]any. Functions, threads and
// userdata become nil. Tables that reference themselves are rejected.
func luaToGo(v lua.LValue) (any, error) {
	return convertValue(v, make(map[*lua.LTable]bool))
}

func convertValue(v lua.LValue, path map[*lua.LTable]bool) (any, error) {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		if path[v] {
			return nil, errCyclicTable
		}
		path[v] = true
		out, err := convertTable(v, path)
		delete(path, v)
		return out, err
	default:
		return nil, nil
	}
}

func convertTable(t *lua.LTable, path map[*lua.LTable]bool) (any, error) {
	isArray := true
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		n, ok := k.(lua.LNumber)
		if !ok || float64(n) != math.Trunc(float64(n)) || n < 1 {
			isArray = false
		}
	})

	if isArray && count > 0 && count == t.MaxN() {
		arr := make([]any, count)
		for i := 1; i <= count; i++ {
			v, err := convertValue(t.RawGetInt(i), path)
			if err != nil {
				return nil, err
			}
			arr[i-1] = v
		}
		return arr, nil
	}

	m := make(map[string]any, count)
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		var key string
		switch k := k.(type) {
		case lua.LString:
			key = string(k)
		case lua.LNumber:
			if f := float64(k); f == math.Trunc(f) {
				key = fmt.Sprintf("%d", int64(f))
			} else {
				key = fmt.Sprintf("%g", f)
			}
		default:
			return
		}
		m[key], err = convertValue(v, path)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// goToLua converts a Go value produced by luaToGo, a decoder or a host
// function to a Lua value. Unsupported types become nil.
func goToLua(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case []byte:
		return lua.LString(v)
	case float64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case int8:
		return lua.LNumber(v)
	case int16:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint:
		return lua.LNumber(v)
	case uint8:
		return lua.LNumber(v)
	case uint16:
		return lua.LNumber(v)
	case uint32:
		return lua.LNumber(v)
	case uint64:
		return lua.LNumber(v)
	case []any:
		t := L.CreateTable(len(v), 0)
		for i, item := range v {
			t.RawSetInt(i+1, goToLua(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, goToLua(L, v[k]))
		}
		return t
	case map[any]any:
		t := L.CreateTable(0, len(v))
		for k, item := range v {
			if key := goToLua(L, k); key != lua.LNil {
				t.RawSet(key, goToLua(L, item))
			}
		}
		return t
	default:
		return lua.LNil
	}
}
