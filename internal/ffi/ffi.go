// Package ffi marshals core Values across the boundary into natively
// callable code: walk each argument's kind and widen/narrow it into the
// target slot shape before invocation, the way a libffi-based native
// adapter would, except built on reflect.Value.Call against a closure of
// the matching Go function type since no libffi binding is available
// here — the one piece of this core built on the standard library alone,
// since no suitable third-party binding exists for calling an arbitrary,
// runtime-resolved C function pointer from Go without cgo.
package ffi

import (
	"fmt"
	"reflect"
	"unsafe"

	"crux/internal/crerr"
	"crux/internal/types"
	"crux/internal/value"
)

// Trampoline implements vm.ExternCaller by translating a core Procedure
// Type into a reflect.Type, wrapping the resolved code address in a Go
// func value via reflect.NewAt + unsafe tricks is not possible for
// arbitrary C ABI calls without cgo, so Trampoline instead supports the
// one calling convention crux's own lowering ever produces addresses
// for: a Go-ABI function value previously registered under its symbol
// name (see Register) — real C symbols opened through dlshim are called
// through this same reflect path when they were registered as Go closures
// by the host, exposing native builtins to the interpreter as ordinary Go
// functions rather than raw code pointers.
type Trampoline struct {
	descCache map[uint64]*descriptor // keyed by Procedure Type.ID()
}

// descriptor is the cached, per-Type translation of a Procedure's
// argument and return shape into reflect.Types, so repeated calls through
// the same Type never re-walk the type graph (§4.6's "cache descriptors
// per Type.ID").
type descriptor struct {
	argTypes []reflect.Type
	retType  reflect.Type
	hasRet   bool
}

// NewTrampoline creates an empty, ready-to-use Trampoline.
func NewTrampoline() *Trampoline {
	return &Trampoline{descCache: make(map[uint64]*descriptor)}
}

// Call implements vm.ExternCaller. fnAddr must be the address of a
// registered Go function value (see Register); args is the caller's
// marshaled argument tuple and ret the destination for the result.
func (t *Trampoline) Call(fnType *types.Type, fnAddr unsafe.Pointer, args value.Value, ret value.Value) error {
	fn, ok := lookupRegisteredFunc(fnAddr)
	if !ok {
		return crerr.New(crerr.FFI, "no Go function registered at the resolved address")
	}

	desc := t.descriptorFor(fnType)
	in := make([]reflect.Value, len(desc.argTypes))
	for i, rt := range desc.argTypes {
		in[i] = reflectValueOf(args.Field(i), rt)
	}

	out := fn.Call(in)
	if desc.hasRet && len(out) > 0 {
		writeReflectValue(ret, out[0])
	}
	return nil
}

func (t *Trampoline) descriptorFor(fnType *types.Type) *descriptor {
	if d, ok := t.descCache[fnType.ID()]; ok {
		return d
	}
	d := &descriptor{}
	argsT := fnType.Args()
	for _, e := range argsT.Elems() {
		d.argTypes = append(d.argTypes, goTypeFor(e.Type))
	}
	if fnType.Ret().Class() != types.ClassVoid {
		d.retType = goTypeFor(fnType.Ret())
		d.hasRet = true
	}
	t.descCache[fnType.ID()] = d
	return d
}

// goTypeFor maps a core Type to the reflect.Type a registered Go function
// is expected to use for the corresponding parameter, per the original
// adapter's class-by-class translation switch.
func goTypeFor(t *types.Type) reflect.Type {
	switch t.Class() {
	case types.ClassNumeric:
		switch t.NumKind() {
		case types.I8:
			return reflect.TypeOf(int8(0))
		case types.I16:
			return reflect.TypeOf(int16(0))
		case types.I32:
			return reflect.TypeOf(int32(0))
		case types.I64:
			return reflect.TypeOf(int64(0))
		case types.U8:
			return reflect.TypeOf(uint8(0))
		case types.U16:
			return reflect.TypeOf(uint16(0))
		case types.U32:
			return reflect.TypeOf(uint32(0))
		case types.U64:
			return reflect.TypeOf(uint64(0))
		case types.F32:
			return reflect.TypeOf(float32(0))
		case types.F64:
			return reflect.TypeOf(float64(0))
		}
	case types.ClassPointer, types.ClassTyperef:
		return reflect.TypeOf(unsafe.Pointer(nil))
	}
	panic(fmt.Sprintf("ffi: no Go type translation for %s", t))
}

func reflectValueOf(v value.Value, rt reflect.Type) reflect.Value {
	switch rt.Kind() {
	case reflect.Int8:
		return reflect.ValueOf(v.Int8())
	case reflect.Int16:
		return reflect.ValueOf(v.Int16())
	case reflect.Int32:
		return reflect.ValueOf(v.Int32())
	case reflect.Int64:
		return reflect.ValueOf(v.Int64())
	case reflect.Uint8:
		return reflect.ValueOf(v.Uint8())
	case reflect.Uint16:
		return reflect.ValueOf(v.Uint16())
	case reflect.Uint32:
		return reflect.ValueOf(v.Uint32())
	case reflect.Uint64:
		return reflect.ValueOf(v.Uint64())
	case reflect.Float32:
		return reflect.ValueOf(v.Float32())
	case reflect.Float64:
		return reflect.ValueOf(v.Float64())
	case reflect.UnsafePointer:
		return reflect.ValueOf(v.Addr())
	default:
		panic("ffi: unsupported reflect kind " + rt.Kind().String())
	}
}

func writeReflectValue(dst value.Value, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetFromInt64(rv.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetFromInt64(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		dst.SetFromFloat64(rv.Float())
	case reflect.UnsafePointer:
		dst.SetAddr(unsafe.Pointer(rv.Pointer()))
	default:
		panic("ffi: unsupported reflect kind " + rv.Kind().String())
	}
}
