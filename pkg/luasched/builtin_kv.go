package luasched

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	lua "github.com/yuin/gopher-lua"

	"github.com/haivivi/luasched/pkg/kv"
)

// kvStore resolves the runtime and its store. Values stored by the kv
// builtins are msgpack-encoded, so tables come back as arrays or
// string-keyed maps.
func (h Handle) kvStore(L *lua.LState, op string) (*Runtime, kv.Store) {
	rt := h.mustRuntime(L, op)
	if rt.store == nil {
		L.RaiseError("%s: no kv store configured", op)
	}
	rt.running(L, op)
	return rt, rt.store
}

// builtinKVGet implements kv_get(key) -> value
// Missing keys return nil. Errors return nil, message.
func (h Handle) builtinKVGet(L *lua.LState) int {
	rt, store := h.kvStore(L, "kv_get")
	key := L.CheckString(1)
	task, err := SpawnBlocking(rt.Spawner(), func() ([]any, error) {
		data, err := store.Get(rt.exec.ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			return []any{nil}, nil
		}
		if err != nil {
			return nil, err
		}
		var v any
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return []any{v}, nil
	})
	if err != nil {
		L.RaiseError("%v", err)
	}
	return rt.awaitTask(L, "kv_get", task)
}

// builtinKVSet implements kv_set(key, value) -> true
func (h Handle) builtinKVSet(L *lua.LState) int {
	rt, store := h.kvStore(L, "kv_set")
	key := L.CheckString(1)
	v, err := luaToGo(L.Get(2))
	if err != nil {
		L.RaiseError("kv_set: encode %s: %v", key, err)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		L.RaiseError("kv_set: encode %s: %v", key, err)
	}
	task, err := SpawnBlocking(rt.Spawner(), func() ([]any, error) {
		if err := store.Set(rt.exec.ctx, key, data); err != nil {
			return nil, err
		}
		return []any{true}, nil
	})
	if err != nil {
		L.RaiseError("%v", err)
	}
	return rt.awaitTask(L, "kv_set", task)
}

// builtinKVDel implements kv_del(key) -> true
func (h Handle) builtinKVDel(L *lua.LState) int {
	rt, store := h.kvStore(L, "kv_del")
	key := L.CheckString(1)
	task, err := SpawnBlocking(rt.Spawner(), func() ([]any, error) {
		if err := store.Delete(rt.exec.ctx, key); err != nil {
			return nil, err
		}
		return []any{true}, nil
	})
	if err != nil {
		L.RaiseError("%v", err)
	}
	return rt.awaitTask(L, "kv_del", task)
}

// builtinKVKeys implements kv_keys(prefix) -> {key, ...}
func (h Handle) builtinKVKeys(L *lua.LState) int {
	rt, store := h.kvStore(L, "kv_keys")
	prefix := L.OptString(1, "")
	task, err := SpawnBlocking(rt.Spawner(), func() ([]any, error) {
		keys := []any{}
		for e, err := range store.List(rt.exec.ctx, prefix) {
			if err != nil {
				return nil, err
			}
			keys = append(keys, e.Key)
		}
		return []any{keys}, nil
	})
	if err != nil {
		L.RaiseError("%v", err)
	}
	return rt.awaitTask(L, "kv_keys", task)
}
