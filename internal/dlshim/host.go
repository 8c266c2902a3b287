// Package dlshim resolves the shared-object symbols an ir.Program
// declares into callable addresses: a name-keyed cache guarded by a
// mutex, with golang.org/x/sync/singleflight collapsing concurrent
// first-opens of the same shared object into one real open — the same
// shape a module loader uses to dedupe concurrent first-imports of the
// same module.
package dlshim

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sync/singleflight"

	"crux/internal/crerr"
	"crux/internal/ffi"
	"crux/internal/types"
)

// HostModule is a shared-object stand-in implemented entirely in Go:
// named symbols registered as ordinary Go functions or data cells,
// resolved the same way a real dlopen'd library's symbols would be
// (§3.3's "dynamic-symbol shim: lazy shared-object open, symbol
// resolution, cached per program"). crux has no cgo bridge to invoke an
// arbitrary foreign code address (see internal/ffi's doc comment), so
// this is the path that actually backs calls; resolveReal (dlopen_linux.go)
// is wired for resolution and introspection but its resolved addresses
// cannot be invoked without cgo.
type HostModule struct {
	Procs map[string]any            // name -> Go func value, passed to ffi.Register
	Data  map[string]unsafe.Pointer // name -> address of a Go-owned data cell
}

// Host is the process-wide symbol resolver. One Host is normally shared
// by every Program a process lowers, so a shared object opened for one
// program is not reopened for the next.
type Host struct {
	mu      sync.Mutex
	modules map[string]*HostModule // registered host modules, by so name
	opened  map[string]*openSO     // real-dlopen'd handles, by so name
	group   singleflight.Group
}

type openSO struct {
	handle  uintptr
	symbols map[string]unsafe.Pointer
}

// NewHost creates an empty Host.
func NewHost() *Host {
	return &Host{
		modules: make(map[string]*HostModule),
		opened:  make(map[string]*openSO),
	}
}

// RegisterModule installs mod as the host implementation behind shared
// object name so — e.g. RegisterModule("libm", LibmModule()) lets IR that
// declared an extern from "libm" resolve against Go's math package
// instead of a real libm.so.
func (h *Host) RegisterModule(so string, mod *HostModule) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.modules[so] = mod
}

// Resolve implements bytecode.ExternResolver: it looks name up in so's
// registered HostModule first, falling back to a real dlopen/dlsym for
// shared objects with no host module registered.
func (h *Host) Resolve(so string, name string, t *types.Type) (unsafe.Pointer, error) {
	h.mu.Lock()
	mod, ok := h.modules[so]
	h.mu.Unlock()

	if ok {
		return h.resolveFromModule(mod, so, name, t)
	}
	return h.resolveReal(so, name)
}

func (h *Host) resolveFromModule(mod *HostModule, so, name string, t *types.Type) (unsafe.Pointer, error) {
	if t.Class() == types.ClassProcedure {
		fn, ok := mod.Procs[name]
		if !ok {
			return nil, crerr.New(crerr.FFI, fmt.Sprintf("%s: no such procedure %q", so, name))
		}
		return ffi.Register(fn), nil
	}
	addr, ok := mod.Data[name]
	if !ok {
		return nil, crerr.New(crerr.FFI, fmt.Sprintf("%s: no such symbol %q", so, name))
	}
	return addr, nil
}
