package types

import (
	"encoding/binary"
	"sync"
)

// Interner is the process-wide structural-equality cache. The zero value
// is not ready to use; call NewInterner. A single process normally only
// ever needs Default(), but tests construct independent interners so one
// test's types can't leak pointer identity into another's assertions.
type Interner struct {
	mu     sync.Mutex
	byFP   map[string]*Type
	nextID uint64

	voidT *Type
}

// NewInterner creates an empty interner with its own id space, starting at 1.
func NewInterner() *Interner {
	return &Interner{byFP: make(map[string]*Type), nextID: 1}
}

var defaultInterner = NewInterner()

// Default returns the process-wide interner used by callers that don't
// need an isolated type universe (the common case: one interner per
// process, per spec §3.5).
func Default() *Interner { return defaultInterner }

// intern looks fp up in the cache; on miss it calls build to materialize a
// *Type, assigns it the next id, and inserts it. The mutex is held across
// both the lookup and the insertion so two goroutines racing to build the
// same fingerprint can never produce two distinct Types for it.
func (in *Interner) intern(fp []byte, build func(id uint64) *Type) *Type {
	key := string(fp)

	in.mu.Lock()
	defer in.mu.Unlock()

	if t, ok := in.byFP[key]; ok {
		return t
	}
	t := build(in.nextID)
	in.nextID++
	in.byFP[key] = t
	return t
}

// GetVoid returns the singleton Void type: size 0, alignment 1.
func (in *Interner) GetVoid() *Type {
	fp := []byte{byte(ClassVoid)}
	return in.intern(fp, func(id uint64) *Type {
		return &Type{id: id, class: ClassVoid, size: 0, align: 1}
	})
}

// GetNumeric returns the Type for a scalar numeric kind.
func (in *Interner) GetNumeric(k NumKind) *Type {
	fp := []byte{byte(ClassNumeric), byte(k)}
	return in.intern(fp, func(id uint64) *Type {
		sz := k.Size()
		return &Type{id: id, class: ClassNumeric, num: k, size: sz, align: sz}
	})
}

// GetPointer returns the Type for a pointer to target.
func (in *Interner) GetPointer(target *Type) *Type {
	fp := make([]byte, 0, 9)
	fp = append(fp, byte(ClassPointer))
	fp = appendUint64(fp, target.ID())
	return in.intern(fp, func(id uint64) *Type {
		return &Type{id: id, class: ClassPointer, target: target, size: WordSize, align: WordSize}
	})
}

// GetArray returns the Type for count contiguous elements of elem.
func (in *Interner) GetArray(elem *Type, count uint64) *Type {
	fp := make([]byte, 0, 17)
	fp = append(fp, byte(ClassArray))
	fp = appendUint64(fp, elem.ID())
	fp = appendUint64(fp, count)
	return in.intern(fp, func(id uint64) *Type {
		return &Type{
			id: id, class: ClassArray, elem: elem, count: count,
			size: elem.Size() * count, align: elem.Align(),
		}
	})
}

// GetTuple returns the Type laying out elems in declaration order per the
// tuple-layout algorithm (§4.1). Each element's implicit repetition count
// is 1.
func (in *Interner) GetTuple(elems []*Type) *Type {
	members := make([]layoutMember, len(elems))
	for i, e := range elems {
		members[i] = layoutMember{Type: e, Count: 1}
	}

	fp := make([]byte, 0, 1+8+8*len(elems))
	fp = append(fp, byte(ClassTuple))
	fp = appendUint64(fp, uint64(len(elems)))
	for _, e := range elems {
		fp = appendUint64(fp, e.ID())
	}

	return in.intern(fp, func(id uint64) *Type {
		lay := layoutOf(members)
		return &Type{id: id, class: ClassTuple, elems: lay.elems, size: lay.size, align: lay.align}
	})
}

// AggregateElem is one input element of GetAggregate: a member Type and
// how many repetitions of it occupy the member's data area.
type AggregateElem struct {
	Type  *Type
	Count uint64
}

// GetAggregate returns the Type laying out elemsWithCounts per the same
// algorithm as GetTuple, but where each element may repeat Count times
// (used to express arrays-within-structs uniformly with tuple fields).
func (in *Interner) GetAggregate(elemsWithCounts []AggregateElem) *Type {
	members := make([]layoutMember, len(elemsWithCounts))
	for i, e := range elemsWithCounts {
		members[i] = layoutMember{Type: e.Type, Count: e.Count}
	}

	fp := make([]byte, 0, 1+8+16*len(elemsWithCounts))
	fp = append(fp, byte(ClassAggregate))
	fp = appendUint64(fp, uint64(len(elemsWithCounts)))
	for _, e := range elemsWithCounts {
		fp = appendUint64(fp, e.Type.ID())
		fp = appendUint64(fp, e.Count)
	}

	return in.intern(fp, func(id uint64) *Type {
		lay := layoutOf(members)
		return &Type{id: id, class: ClassAggregate, elems: lay.elems, size: lay.size, align: lay.align}
	})
}

// GetProcedure returns the Type for a procedure with the given argument
// tuple, return type, calling convention, and variadic-ness. addressable
// selects whether the type is sized/aligned like a function pointer
// (Native/Cdecl values held in a Pointer or Reg slot) or like a
// non-addressable function symbol (size 0, alignment 1) — the Procedure
// Type of an extern-proc declaration itself uses the latter.
func (in *Interner) GetProcedure(args *Type, ret *Type, cc CallConv, variadic bool, addressable bool) *Type {
	fp := make([]byte, 0, 32)
	fp = append(fp, byte(ClassProcedure))
	fp = appendUint64(fp, args.ID())
	fp = appendUint64(fp, ret.ID())
	fp = append(fp, byte(cc))
	flags := byte(0)
	if variadic {
		flags |= 1
	}
	if addressable {
		flags |= 2
	}
	fp = append(fp, flags)

	return in.intern(fp, func(id uint64) *Type {
		size, align := uint64(0), uint64(1)
		if addressable {
			size, align = WordSize, WordSize
		}
		return &Type{
			id: id, class: ClassProcedure, args: args, ret: ret,
			callConv: cc, variadic: variadic, addressable: addressable,
			size: size, align: align,
		}
	})
}

// GetTyperef returns the singleton Type for a value that is itself a
// pointer to a Type descriptor.
func (in *Interner) GetTyperef() *Type {
	fp := []byte{byte(ClassTyperef)}
	return in.intern(fp, func(id uint64) *Type {
		return &Type{id: id, class: ClassTyperef, size: WordSize, align: WordSize}
	})
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
