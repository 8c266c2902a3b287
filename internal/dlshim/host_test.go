package dlshim

import (
	"testing"

	"crux/internal/types"
)

func TestResolveFromRegisteredModule(t *testing.T) {
	h := NewHost()
	h.RegisterModule("libm", LibmModule())

	in := types.NewInterner()
	f64 := in.GetNumeric(types.F64)
	argsT := in.GetTuple([]*types.Type{f64})
	procT := in.GetProcedure(argsT, f64, types.Cdecl, false, false)

	addr, err := h.Resolve("libm", "sqrt", procT)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr == nil {
		t.Fatal("expected a non-nil address")
	}
}

func TestResolveUnknownSymbolFails(t *testing.T) {
	h := NewHost()
	h.RegisterModule("libm", LibmModule())

	in := types.NewInterner()
	f64 := in.GetNumeric(types.F64)
	argsT := in.GetTuple([]*types.Type{f64})
	procT := in.GetProcedure(argsT, f64, types.Cdecl, false, false)

	if _, err := h.Resolve("libm", "frobnicate", procT); err == nil {
		t.Fatal("expected an error resolving an unknown symbol")
	}
}
