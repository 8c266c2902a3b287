// Package arena implements the bump allocator and chunked growable buffer
// used by an IrProgram: its arena holds constants, materialized globals,
// and extern-procedure cells, and its functions, blocks, and instructions
// live in Sequences. The type interner (a Go map) and internal/vm's call
// stack (a fixed byte slice) do not allocate from an Arena. Chunk growth is delegated to modernc.org/memory.Allocator, the
// same arena allocator a cgo-free modernc.org/sqlite driver keeps
// underneath it elsewhere in this dependency graph — crux is simply the
// first package in this tree to call it directly instead of only linking
// it in transitively.
package arena

import (
	"sync"
	"unsafe"

	"modernc.org/memory"
)

// defaultChunkSize is the minimum size of a freshly grown chunk. A single
// allocation larger than this gets its own dedicated chunk.
const defaultChunkSize = 64 * 1024

type chunk struct {
	buf []byte
	off int
}

// Arena is a bump allocator: Alloc hands out aligned regions from a
// current chunk and grows a new chunk, via modernc.org/memory, whenever
// the current one can't satisfy a request. It never reclaims memory for
// individual allocations — the whole Arena is freed as a unit, per §3.5's
// "IrProgram owns an arena feeding all its blocks, instructions, constants,
// and lowered bytecode; freed as a unit."
type Arena struct {
	mu         sync.Mutex
	backing    memory.Allocator
	chunks     []*chunk
	chunkSize  int
	used, cap_ uint64 // stats, for cmd/crux's introspection output
}

// New creates an empty Arena that grows in defaultChunkSize increments.
func New() *Arena { return &Arena{chunkSize: defaultChunkSize} }

// NewSized creates an empty Arena whose chunks grow in the given
// increment, useful for arenas expected to hold many small allocations
// (the type interner) versus few large ones (a program's constant pool).
func NewSized(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Arena{chunkSize: chunkSize}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// Alloc returns zero-initialized, aligned memory of the given size. A
// zero-size request still returns a valid, non-nil, 1-byte-backed pointer
// so callers never have to special-case "Void" storage.
func (a *Arena) Alloc(size, align int) unsafe.Pointer {
	if size <= 0 {
		size = 1
	}
	if align <= 0 {
		align = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.chunks); n > 0 {
		c := a.chunks[n-1]
		start := roundUp(c.off, align)
		if start+size <= len(c.buf) {
			c.off = start + size
			a.used += uint64(size)
			return unsafe.Pointer(&c.buf[start])
		}
	}

	grow := a.chunkSize
	if size > grow {
		grow = size
	}
	buf, err := a.backing.Calloc(grow)
	if err != nil {
		panic("arena: allocator exhausted: " + err.Error())
	}
	c := &chunk{buf: buf}
	a.chunks = append(a.chunks, c)
	a.cap_ += uint64(grow)

	start := roundUp(0, align) // always 0 for a fresh chunk
	c.off = start + size
	a.used += uint64(size)
	return unsafe.Pointer(&c.buf[start])
}

// AllocBytes copies src into a fresh arena allocation and returns its address.
func (a *Arena) AllocBytes(src []byte) unsafe.Pointer {
	p := a.Alloc(len(src), 1)
	if len(src) > 0 {
		copy(unsafe.Slice((*byte)(p), len(src)), src)
	}
	return p
}

// Stats reports the arena's current usage, for cmd/crux's "stats" command.
func (a *Arena) Stats() (used, capacity uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used, a.cap_
}

// Free releases every chunk back to the backing allocator. The Arena must
// not be used afterward.
func (a *Arena) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.chunks {
		_ = a.backing.Free(c.buf)
	}
	a.chunks = nil
	a.used, a.cap_ = 0, 0
}
