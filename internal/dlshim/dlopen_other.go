//go:build !linux

package dlshim

import (
	"fmt"
	"unsafe"

	"crux/internal/crerr"
)

// resolveReal has no real-dlopen backend outside linux; crux's host
// modules (see HostModule) cover every extern this core actually needs
// to call, so this path only matters for a program that declares a
// shared object with no registered host module on a non-linux target.
func (h *Host) resolveReal(so, name string) (unsafe.Pointer, error) {
	return nil, crerr.New(crerr.FFI, fmt.Sprintf("no dynamic loader backend on this platform to resolve %s:%s", so, name))
}
