//go:build windows

package interpose

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// watchReplacements returns the native callback stubs installed over
// LoadLibraryA and LoadLibraryW. Created once per manager; NewCallback
// allocations are never released by the runtime.
func (m *Manager) watchReplacements() (uintptr, uintptr) {
	if m.cbA == 0 {
		m.cbA = syscall.NewCallback(m.loadLibraryA)
		m.cbW = syscall.NewCallback(m.loadLibraryW)
	}
	return m.cbA, m.cbW
}

func (m *Manager) loadLibraryA(name *byte) uintptr {
	tramp := m.Call(m.cbA)
	if tramp == 0 {
		return 0
	}
	handle, _, _ := syscall.SyscallN(tramp, uintptr(unsafe.Pointer(name)))
	if handle == 0 {
		return 0
	}
	m.onLibraryLoaded(windows.BytePtrToString(name), Handle(handle))
	return handle
}

func (m *Manager) loadLibraryW(name *uint16) uintptr {
	if m.watchSuspended.Load() {
		// The lock is held by the Call that is loading the export
		// module; go straight through the trampoline.
		tramp := m.watchTrampW.Load()
		if tramp == 0 {
			return 0
		}
		handle, _, _ := syscall.SyscallN(tramp, uintptr(unsafe.Pointer(name)))
		return handle
	}
	tramp := m.Call(m.cbW)
	if tramp == 0 {
		return 0
	}
	handle, _, _ := syscall.SyscallN(tramp, uintptr(unsafe.Pointer(name)))
	if handle == 0 {
		return 0
	}
	m.onLibraryLoaded(windows.UTF16PtrToString(name), Handle(handle))
	return handle
}
