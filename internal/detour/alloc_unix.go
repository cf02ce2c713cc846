//go:build !windows && amd64

package detour

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

var pageSize = uintptr(os.Getpagesize())

func allocExec(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
}

func sealExec(b []byte) error {
	return unix.Mprotect(b, unix.PROT_READ|unix.PROT_EXEC)
}

func freeExec(b []byte) error {
	return unix.Munmap(b)
}

// writeCode opens the pages covering addr for writing, copies the patch
// and re-protects them read+execute.
func writeCode(addr uintptr, data []byte) error {
	start := pageSize * (addr / pageSize)
	length := pageSize * ((addr + uintptr(len(data)) + pageSize - 1 - start) / pageSize)
	region := unsafe.Slice((*byte)(unsafe.Pointer(start)), length)
	if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data)), data)
	return unix.Mprotect(region, unix.PROT_READ|unix.PROT_EXEC)
}
