// Package value implements the core value representation: an untyped data
// address paired with the Type that explains how to interpret the bytes at
// that address. Every accessor is polymorphic over Type; the package is
// the one place in the core allowed to do raw pointer arithmetic, per the
// "isolate the untyped byte pointer + type value model behind accessors"
// design note — callers elsewhere work only through Value's methods.
package value

import (
	"math"
	"unsafe"

	"crux/internal/types"
)

// Value is the pair (data address, Type) that every other subsystem
// builds on: IR references resolve to a Value, the interpreter's
// registers and frame slots are Values, and FFI arguments are Values.
// The bytes at Data are always valid for Type.Size() bytes, aligned to
// Type.Align(), for as long as the Value is reachable — ownership of that
// memory belongs to whatever arena or stack allocation produced it.
type Value struct {
	Data unsafe.Pointer
	Type *types.Type
}

// Nil reports whether the value has no backing address — the only state
// in which a Value of non-zero-size Type would be invalid to read.
func (v Value) Nil() bool { return v.Data == nil }

// Bytes returns the raw bytes backing v, aliasing its storage.
func (v Value) Bytes() []byte {
	if v.Data == nil || v.Type.Size() == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(v.Data), int(v.Type.Size()))
}

// addr returns v.Data shifted by off bytes.
func (v Value) addr(off uint64) unsafe.Pointer {
	return unsafe.Add(v.Data, uintptr(off))
}

// Field returns the child Value at tuple/aggregate index i: the element's
// Type at Data + elems[i].Offset.
func (v Value) Field(i int) Value {
	elems := v.Type.Elems()
	e := elems[i]
	return Value{Data: v.addr(e.Offset), Type: e.Type}
}

// NumField returns the number of tuple/aggregate fields.
func (v Value) NumField() int { return len(v.Type.Elems()) }

// Index returns the child Value at array index i: the element Type at
// Data + elem.Size()*i.
func (v Value) Index(i uint64) Value {
	elem := v.Type.Elem()
	return Value{Data: v.addr(elem.Size() * i), Type: elem}
}

// Reinterpret returns a Value over the same address with a different
// Type of equal size, per §3.2's "reinterpretation with a new Type of
// equal size is permitted and changes only type".
func (v Value) Reinterpret(t *types.Type) Value {
	if t.Size() != v.Type.Size() {
		panic("value: Reinterpret requires a Type of equal size")
	}
	return Value{Data: v.Data, Type: t}
}

// CopyFrom bytewise-copies src's bytes into v. Both must share the same
// Type size; used by the interpreter's generic mov and by call argument
// marshaling.
func (v Value) CopyFrom(src Value) {
	dst := v.Bytes()
	s := src.Bytes()
	copy(dst, s)
}

// --- scalar accessors -------------------------------------------------
//
// These assume v.Type is Numeric, Pointer, or Typeref of the matching
// width; the interpreter only calls them after opcode specialization has
// already established the operand's static type.

func (v Value) Int8() int8     { return *(*int8)(v.Data) }
func (v Value) Int16() int16   { return *(*int16)(v.Data) }
func (v Value) Int32() int32   { return *(*int32)(v.Data) }
func (v Value) Int64() int64   { return *(*int64)(v.Data) }
func (v Value) Uint8() uint8   { return *(*uint8)(v.Data) }
func (v Value) Uint16() uint16 { return *(*uint16)(v.Data) }
func (v Value) Uint32() uint32 { return *(*uint32)(v.Data) }
func (v Value) Uint64() uint64 { return *(*uint64)(v.Data) }
func (v Value) Float32() float32 { return *(*float32)(v.Data) }
func (v Value) Float64() float64 { return *(*float64)(v.Data) }

// Addr reads v's bytes as a pointer-width address — used for the
// indirection step of IR-reference resolution (§3.4) and for reading a
// Pointer/Typeref-typed value.
func (v Value) Addr() unsafe.Pointer { return *(*unsafe.Pointer)(v.Data) }

func (v Value) SetInt8(x int8)     { *(*int8)(v.Data) = x }
func (v Value) SetInt16(x int16)   { *(*int16)(v.Data) = x }
func (v Value) SetInt32(x int32)   { *(*int32)(v.Data) = x }
func (v Value) SetInt64(x int64)   { *(*int64)(v.Data) = x }
func (v Value) SetUint8(x uint8)   { *(*uint8)(v.Data) = x }
func (v Value) SetUint16(x uint16) { *(*uint16)(v.Data) = x }
func (v Value) SetUint32(x uint32) { *(*uint32)(v.Data) = x }
func (v Value) SetUint64(x uint64) { *(*uint64)(v.Data) = x }
func (v Value) SetFloat32(x float32) { *(*float32)(v.Data) = x }
func (v Value) SetFloat64(x float64) { *(*float64)(v.Data) = x }
func (v Value) SetAddr(p unsafe.Pointer) { *(*unsafe.Pointer)(v.Data) = p }

// AsInt64 widens any integer Numeric kind to a signed int64, sign- or
// zero-extending as appropriate. Used by specialized arithmetic handlers
// that share one Go operator across several bit widths. v.Type must be
// ClassNumeric; Pointer and Typeref values read as u64 through AsWord
// instead, since NumKind() is meaningless outside ClassNumeric and its
// zero value happens to alias I8.
func (v Value) AsInt64() int64 {
	if v.Type.Class() != types.ClassNumeric {
		panic("value: AsInt64 on non-numeric type " + v.Type.String())
	}
	switch v.Type.NumKind() {
	case types.I8:
		return int64(v.Int8())
	case types.I16:
		return int64(v.Int16())
	case types.I32:
		return int64(v.Int32())
	case types.I64:
		return v.Int64()
	case types.U8:
		return int64(v.Uint8())
	case types.U16:
		return int64(v.Uint16())
	case types.U32:
		return int64(v.Uint32())
	case types.U64:
		return int64(v.Uint64())
	default:
		panic("value: AsInt64 on non-integer type")
	}
}

// AsFloat64 widens either float Numeric kind to float64. v.Type must be
// ClassNumeric.
func (v Value) AsFloat64() float64 {
	if v.Type.Class() != types.ClassNumeric {
		panic("value: AsFloat64 on non-numeric type " + v.Type.String())
	}
	switch v.Type.NumKind() {
	case types.F32:
		return float64(v.Float32())
	case types.F64:
		return v.Float64()
	default:
		panic("value: AsFloat64 on non-float type")
	}
}

// AsWord reads v as the general-purpose integer bit pattern arithmetic and
// comparison opcodes operate on: an integer Numeric kind widens through
// AsInt64, while a Pointer or Typeref value reads its address as a u64 bit
// pattern, per "pointer operands are treated as u64".
func (v Value) AsWord() int64 {
	switch v.Type.Class() {
	case types.ClassPointer, types.ClassTyperef:
		return int64(uintptr(v.Addr()))
	default:
		return v.AsInt64()
	}
}

// SetFromInt64 narrows x into v's integer Numeric kind with C-style
// truncation, writing the result. A Pointer or Typeref destination (the
// result of pointer arithmetic, specialized as u64) writes x as an address
// instead of falling through to NumKind's meaningless zero value.
func (v Value) SetFromInt64(x int64) {
	switch v.Type.Class() {
	case types.ClassPointer, types.ClassTyperef:
		v.SetAddr(unsafe.Pointer(uintptr(x)))
		return
	}
	switch v.Type.NumKind() {
	case types.I8, types.U8:
		v.SetUint8(uint8(x))
	case types.I16, types.U16:
		v.SetUint16(uint16(x))
	case types.I32, types.U32:
		v.SetUint32(uint32(x))
	case types.I64, types.U64:
		v.SetUint64(uint64(x))
	default:
		panic("value: SetFromInt64 on non-integer type")
	}
}

// SetFromFloat64 narrows x into v's float Numeric kind.
func (v Value) SetFromFloat64(x float64) {
	switch v.Type.NumKind() {
	case types.F32:
		v.SetFloat32(float32(x))
	case types.F64:
		v.SetFloat64(x)
	default:
		panic("value: SetFromFloat64 on non-float type")
	}
}

// Bool reads a single byte comparison result (0 or 1), as written by eq/ne/
// lt/le/gt/ge opcodes.
func (v Value) Bool() bool { return v.Uint8() != 0 }

// SetBool writes a single byte comparison result.
func (v Value) SetBool(b bool) {
	if b {
		v.SetUint8(1)
	} else {
		v.SetUint8(0)
	}
}

// IsNaN reports whether a float Value holds NaN, used by comparison
// handlers that must special-case IEEE-754 ordering.
func (v Value) IsNaN() bool {
	switch v.Type.NumKind() {
	case types.F32:
		return math.IsNaN(float64(v.Float32()))
	case types.F64:
		return math.IsNaN(v.Float64())
	default:
		return false
	}
}
