package ffi

import (
	"testing"
	"unsafe"

	"crux/internal/types"
	"crux/internal/value"
)

func ptrTo(b []byte) unsafe.Pointer { return unsafe.Pointer(&b[0]) }

func TestTrampolineCallsRegisteredFunc(t *testing.T) {
	in := types.NewInterner()
	i64 := in.GetNumeric(types.I64)
	argsT := in.GetTuple([]*types.Type{i64, i64})
	fnT := in.GetProcedure(argsT, i64, types.Cdecl, false, true)

	addr := Register(func(a, b int64) int64 { return a + b })

	tr := NewTrampoline()

	argBuf := make([]byte, argsT.Size())
	args := value.Value{Data: ptrTo(argBuf), Type: argsT}
	args.Field(0).SetInt64(20)
	args.Field(1).SetInt64(22)

	retBuf := make([]byte, i64.Size())
	ret := value.Value{Data: ptrTo(retBuf), Type: i64}

	if err := tr.Call(fnT, addr, args, ret); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := ret.Int64(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
