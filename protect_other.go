//go:build !windows

package interpose

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Protection values are PROT_* bit masks off Windows.
const (
	ProtectReadOnly         Protection = unix.PROT_READ
	ProtectReadWrite        Protection = unix.PROT_READ | unix.PROT_WRITE
	ProtectExecuteRead      Protection = unix.PROT_READ | unix.PROT_EXEC
	ProtectExecuteReadWrite Protection = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

var pageSize = uintptr(os.Getpagesize())

type unixProtector struct{}

// Protect rounds the range out to page boundaries for mprotect. The kernel
// cannot report the previous protection, so restore falls back to
// read+execute, the mode every region this package touches started in.
func (unixProtector) Protect(addr, length uintptr, mode Protection) (Protection, error) {
	start := pageSize * (addr / pageSize)
	n := pageSize * ((addr + length + pageSize - 1 - start) / pageSize)
	region := unsafe.Slice((*byte)(unsafe.Pointer(start)), n)
	if err := unix.Mprotect(region, int(mode)); err != nil {
		return 0, err
	}
	return ProtectExecuteRead, nil
}
