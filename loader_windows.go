//go:build windows

package interpose

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	getModuleHandleExUnchangedRefcount = 0x1
	getModuleHandleExFromAddress       = 0x4
)

var kernel32 = windows.NewLazySystemDLL("kernel32.dll")

// winLoader backs ModuleLoader with the Windows loader.
type winLoader struct{}

func (winLoader) Load(path string) (Handle, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (winLoader) Loaded(path string) Handle {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(getModuleHandleExUnchangedRefcount, name, &h); err != nil {
		return 0
	}
	return Handle(h)
}

func (winLoader) Containing(addr uintptr) Handle {
	var h windows.Handle
	err := windows.GetModuleHandleEx(
		getModuleHandleExFromAddress|getModuleHandleExUnchangedRefcount,
		(*uint16)(unsafe.Pointer(addr)), &h)
	if err != nil {
		return 0
	}
	return Handle(h)
}

func (winLoader) Path(h Handle) string {
	var buf [windows.MAX_PATH]uint16
	n, err := windows.GetModuleFileName(windows.Handle(h), &buf[0], uint32(len(buf)))
	if err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func (winLoader) Free(h Handle) {
	_ = windows.FreeLibrary(windows.Handle(h))
}

func (winLoader) EntryPoints() (uintptr, uintptr) {
	return kernel32.NewProc("LoadLibraryA").Addr(),
		kernel32.NewProc("LoadLibraryW").Addr()
}
