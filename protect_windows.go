//go:build windows

package interpose

import "golang.org/x/sys/windows"

// Protection values are PAGE_* constants on Windows.
const (
	ProtectReadOnly         Protection = windows.PAGE_READONLY
	ProtectReadWrite        Protection = windows.PAGE_READWRITE
	ProtectExecuteRead      Protection = windows.PAGE_EXECUTE_READ
	ProtectExecuteReadWrite Protection = windows.PAGE_EXECUTE_READWRITE
)

type winProtector struct{}

func (winProtector) Protect(addr, length uintptr, mode Protection) (Protection, error) {
	var old uint32
	if err := windows.VirtualProtect(addr, length, uint32(mode), &old); err != nil {
		return 0, err
	}
	return Protection(old), nil
}
