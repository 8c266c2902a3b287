package types

import "testing"

func TestInterningIsStructural(t *testing.T) {
	in := NewInterner()

	i32a := in.GetNumeric(I32)
	i32b := in.GetNumeric(I32)
	if i32a != i32b {
		t.Fatalf("expected two identical Numeric(i32) calls to return the same pointer")
	}

	pa := in.GetPointer(i32a)
	pb := in.GetPointer(i32b)
	if pa != pb {
		t.Fatalf("expected two identical Pointer(i32) calls to return the same pointer")
	}

	tupA := in.GetTuple([]*Type{i32a, pa})
	tupB := in.GetTuple([]*Type{i32b, pb})
	if tupA != tupB {
		t.Fatalf("expected Tuple(i32, *i32) built via independent call chains to be pointer-equal")
	}
	if tupA.ID() != tupB.ID() {
		t.Fatalf("expected equal ids for structurally equal tuples")
	}

	i64 := in.GetNumeric(I64)
	tupC := in.GetTuple([]*Type{i64, pa})
	if tupA == tupC || tupA.ID() == tupC.ID() {
		t.Fatalf("expected Tuple(i64, *i32) to differ from Tuple(i32, *i32)")
	}
}

func TestVoidTuple(t *testing.T) {
	in := NewInterner()
	empty := in.GetTuple(nil)
	if empty.Size() != 0 || empty.Align() != 1 {
		t.Fatalf("empty tuple should have size 0 align 1, got size=%d align=%d", empty.Size(), empty.Align())
	}
	if len(empty.Elems()) != 0 {
		t.Fatalf("empty tuple should have no element offsets")
	}
}

func TestAggregateLayout(t *testing.T) {
	in := NewInterner()
	i8 := in.GetNumeric(I8)
	i64 := in.GetNumeric(I64)

	agg := in.GetAggregate([]AggregateElem{
		{Type: i8, Count: 1},
		{Type: i64, Count: 1},
		{Type: i8, Count: 3},
	})

	wantOffsets := []uint64{0, 8, 16}
	for i, e := range agg.Elems() {
		if e.Offset != wantOffsets[i] {
			t.Errorf("elem %d: offset = %d, want %d", i, e.Offset, wantOffsets[i])
		}
	}
	if agg.Size() != 24 {
		t.Errorf("aggregate size = %d, want 24", agg.Size())
	}
	if agg.Align() != 8 {
		t.Errorf("aggregate align = %d, want 8", agg.Align())
	}
}

func TestTupleOffsetsRespectAlignment(t *testing.T) {
	in := NewInterner()
	i8 := in.GetNumeric(I8)
	i32 := in.GetNumeric(I32)
	ptr := in.GetPointer(i32)

	tup := in.GetTuple([]*Type{i8, i32, ptr})
	for _, e := range tup.Elems() {
		if e.Offset%e.Type.Align() != 0 {
			t.Errorf("offset %d is not a multiple of alignment %d for %s", e.Offset, e.Type.Align(), e.Type)
		}
	}
	if tup.Size()%tup.Align() != 0 {
		t.Errorf("tuple size %d is not a multiple of tuple alignment %d", tup.Size(), tup.Align())
	}
}

func TestProcedureType(t *testing.T) {
	in := NewInterner()
	i64 := in.GetNumeric(I64)
	args := in.GetTuple([]*Type{i64, i64})
	fn := in.GetProcedure(args, i64, Native, false, true)
	if fn.Size() != WordSize || fn.Align() != WordSize {
		t.Fatalf("addressable procedure type should be word-sized/aligned")
	}
	fn2 := in.GetProcedure(args, i64, Native, false, false)
	if fn2.Size() != 0 || fn2.Align() != 1 {
		t.Fatalf("non-addressable procedure type should be size 0 align 1")
	}
	if fn == fn2 {
		t.Fatalf("addressable and non-addressable procedure types must not intern to the same Type")
	}
}
