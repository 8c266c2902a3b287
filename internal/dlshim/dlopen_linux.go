//go:build linux

package dlshim

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"

	"crux/internal/crerr"
)

// rtldNow mirrors RTLD_NOW from dlfcn.h; modernc.org/libc's generated
// binaries resolve symbols lazily by default, but extern procs in crux
// are always called shortly after resolution, so eagerly binding avoids
// surprising a caller with a resolution failure from inside a hot loop.
const rtldNow = 0x00002

// resolveReal opens so (a real shared-object path or soname) and resolves
// name within it via modernc.org/libc's dlopen/dlsym bindings, the same
// cgo-free dynamic loader a modernc.org/sqlite dependency closure already
// carries elsewhere. Concurrent first-opens of the same so are collapsed
// by a singleflight.Group so a library is only ever dlopen'd once per
// process.
//
// The returned address is a real code or data pointer in the opened
// library's address space; crux has no cgo bridge to invoke an arbitrary
// foreign address from pure Go, so only data symbols resolved this way
// can be read directly — resolving a procedure here is useful for
// existence/address-identity checks, not for calling it (see
// internal/ffi's doc comment).
func (h *Host) resolveReal(so, name string) (unsafe.Pointer, error) {
	v, err, _ := h.group.Do(so, func() (any, error) {
		h.mu.Lock()
		if o, ok := h.opened[so]; ok {
			h.mu.Unlock()
			return o, nil
		}
		h.mu.Unlock()

		tls := libc.NewTLS()
		cpath, err := libc.CString(so)
		if err != nil {
			return nil, crerr.Wrap(crerr.FFI, err, fmt.Sprintf("allocating path for %q", so))
		}
		handle := libc.Xdlopen(tls, cpath, rtldNow)
		if handle == 0 {
			return nil, crerr.New(crerr.FFI, fmt.Sprintf("dlopen %q failed", so))
		}

		o := &openSO{handle: uintptr(handle), symbols: make(map[string]unsafe.Pointer)}
		h.mu.Lock()
		h.opened[so] = o
		h.mu.Unlock()
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	o := v.(*openSO)

	h.mu.Lock()
	if addr, ok := o.symbols[name]; ok {
		h.mu.Unlock()
		return addr, nil
	}
	h.mu.Unlock()

	tls := libc.NewTLS()
	csym, err := libc.CString(name)
	if err != nil {
		return nil, crerr.Wrap(crerr.FFI, err, fmt.Sprintf("allocating symbol name %q", name))
	}
	sym := libc.Xdlsym(tls, uintptr(o.handle), csym)
	if sym == 0 {
		return nil, crerr.New(crerr.FFI, fmt.Sprintf("%s: no such symbol %q", so, name))
	}

	addr := unsafe.Pointer(uintptr(sym))
	h.mu.Lock()
	o.symbols[name] = addr
	h.mu.Unlock()
	return addr, nil
}
