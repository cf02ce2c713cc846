//go:build windows && amd64

package detour

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func allocExec(n int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(n),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

func sealExec(b []byte) error {
	var old uint32
	return windows.VirtualProtect(uintptr(unsafe.Pointer(&b[0])),
		uintptr(len(b)), windows.PAGE_EXECUTE_READ, &old)
}

func freeExec(b []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&b[0])), 0, windows.MEM_RELEASE)
}

func writeCode(addr uintptr, data []byte) error {
	var old uint32
	if err := windows.VirtualProtect(addr, uintptr(len(data)),
		windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data)), data)
	var prev uint32
	return windows.VirtualProtect(addr, uintptr(len(data)), old, &prev)
}
