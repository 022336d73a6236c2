package luasched

import (
	"context"
	"errors"
	"testing"
)

func TestZeroHandleIsContractViolation(t *testing.T) {
	var h Handle
	if _, err := h.SpawnThread(Chunk{Source: "x = 1"}); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("SpawnThread = %v", err)
	}
	if _, err := h.DeferThread(Chunk{Source: "x = 1"}); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("DeferThread = %v", err)
	}
	if err := h.SetExitCode(1); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("SetExitCode = %v", err)
	}
	if err := h.TrackThread(1); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("TrackThread = %v", err)
	}
	if _, _, err := h.ThreadResult(1); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("ThreadResult = %v", err)
	}
	if err := h.WaitForThread(context.Background(), 1); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("WaitForThread = %v", err)
	}
	if _, err := Spawn(h.Spawner(), func(context.Context) (int, error) { return 0, nil }); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("Spawn through zero handle = %v", err)
	}
}

func TestHandleDrivesRuntime(t *testing.T) {
	rt := newTestRuntime(t)
	h := rt.Handle()

	id, err := h.SpawnThread(Chunk{Source: "return 'ok'"})
	if err != nil {
		t.Fatalf("SpawnThread failed: %v", err)
	}
	if err := h.TrackThread(id); err != nil {
		t.Fatalf("TrackThread failed: %v", err)
	}
	runWithTimeout(t, rt)

	r, ok, err := h.ThreadResult(id)
	if err != nil || !ok || r.Values[0].String() != "ok" {
		t.Fatalf("ThreadResult = %v, %v, %v", r, ok, err)
	}
	if err := h.SetExitCode(4); err != nil {
		t.Fatalf("SetExitCode failed: %v", err)
	}
	if code, _ := rt.ExitCode(); code != 4 {
		t.Fatalf("ExitCode = %d", code)
	}
}
