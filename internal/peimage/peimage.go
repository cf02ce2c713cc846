// Package peimage reads the export directory of a PE module image that is
// already mapped into the process, addressed by its base. A module without
// an export directory, or with an inconsistent header, yields an empty
// result rather than an error: callers treat both the same way and skip
// the module.
package peimage

import "unsafe"

// Export is one named symbol of a module's export directory. It is
// produced fresh on every read and never cached; the export table is
// immutable for one load of a module but differs across reloads.
type Export struct {
	Addr    uintptr
	Name    string
	Ordinal uint16
}

const (
	dosMagic      = 0x5a4d     // "MZ"
	ntMagic       = 0x00004550 // "PE\0\0"
	pe32Magic     = 0x10b
	pe32PlusMagic = 0x20b

	maxLfanew = 0x1000
	maxNames  = 1 << 16
	maxName   = 4096
)

// Exports walks the image headers at base and returns the named exports
// in export-table order. Safe to call repeatedly; there is no shared
// state.
func Exports(base uintptr) []Export {
	if base == 0 || read16(base, 0) != dosMagic {
		return nil
	}
	ntOff := uintptr(read32(base, 0x3c))
	if ntOff == 0 || ntOff > maxLfanew {
		return nil
	}
	if read32(base, ntOff) != ntMagic {
		return nil
	}

	// Signature + file header, then the optional header whose magic
	// decides where the data directory sits.
	opt := ntOff + 24
	var dirOff uintptr
	switch read16(base, opt) {
	case pe32Magic:
		dirOff = opt + 96
	case pe32PlusMagic:
		dirOff = opt + 112
	default:
		return nil
	}
	if read32(base, dirOff-4) == 0 { // NumberOfRvaAndSizes
		return nil
	}
	dirRVA := read32(base, dirOff)
	dirSize := read32(base, dirOff+4)
	if dirRVA == 0 || dirSize == 0 {
		return nil
	}

	dir := uintptr(dirRVA)
	ordinalBase := read32(base, dir+16)
	numFuncs := read32(base, dir+20)
	numNames := read32(base, dir+24)
	funcTable := uintptr(read32(base, dir+28))
	nameTable := uintptr(read32(base, dir+32))
	ordTable := uintptr(read32(base, dir+36))
	if numNames == 0 || numNames > maxNames {
		return nil
	}

	exports := make([]Export, 0, numNames)
	for i := uintptr(0); i < uintptr(numNames); i++ {
		ordinal := read16(base, ordTable+2*i)
		sym := Export{
			Name:    cstring(base + uintptr(read32(base, nameTable+4*i))),
			Ordinal: uint16(uint32(ordinal) + ordinalBase),
		}
		if numFuncs > 0 && uint32(ordinal) < numFuncs {
			if rva := read32(base, funcTable+4*uintptr(ordinal)); rva != 0 {
				sym.Addr = base + uintptr(rva)
			}
		}
		exports = append(exports, sym)
	}
	return exports
}

func read16(base, off uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(base + off))
}

func read32(base, off uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(base + off))
}

func cstring(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := uintptr(0)
	for n < maxName && *(*byte)(unsafe.Pointer(p + n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}
