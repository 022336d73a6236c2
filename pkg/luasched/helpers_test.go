package luasched

import (
	"context"
	"log/slog"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	rt := New(nil, opts...)
	rt.RegisterBuiltins()
	t.Cleanup(func() { rt.Close() })
	return rt
}

func spawnChunk(t *testing.T, rt *Runtime, src string) ThreadID {
	t.Helper()
	id, err := rt.SpawnThread(Chunk{Name: t.Name(), Source: src})
	if err != nil {
		t.Fatalf("SpawnThread failed: %v", err)
	}
	return id
}

func runWithTimeout(t *testing.T, rt *Runtime) ExitCode {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := rt.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return code
}

// outList returns the global table "out" as strings.
func outList(t *testing.T, rt *Runtime) []string {
	t.Helper()
	tbl, ok := rt.L.GetGlobal("out").(*lua.LTable)
	if !ok {
		t.Fatalf("global out is not a table")
	}
	var out []string
	for i := 1; i <= tbl.Len(); i++ {
		out = append(out, tbl.RawGetInt(i).String())
	}
	return out
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
