// Package peimagetest synthesizes minimal PE module images in byte
// buffers, for tests that need an export directory without a real module
// on disk.
package peimagetest

import (
	"encoding/binary"
	"unsafe"
)

// Symbol is one export of a synthesized image. RVA is relative to the
// image base, like a real export address table entry.
type Symbol struct {
	Name string
	RVA  uint32
}

const (
	ntOff   = 0x80
	dirOff  = 0x200
	funcOff = 0x240
	nameOff = 0x300
	ordOff  = 0x380
	strOff  = 0x400

	// OrdinalBase biases the ordinals of every synthesized image.
	OrdinalBase = 1
)

// Build returns an image exporting the given symbols, in the given order.
// At most 32 symbols fit which is plenty for tests.
func Build(syms []Symbol) []byte {
	img := buildHeaders()
	put32(img, dirOff+0x10, OrdinalBase)
	put32(img, dirOff+0x14, uint32(len(syms))) // NumberOfFunctions
	put32(img, dirOff+0x18, uint32(len(syms))) // NumberOfNames
	put32(img, dirOff+0x1c, funcOff)
	put32(img, dirOff+0x20, nameOff)
	put32(img, dirOff+0x24, ordOff)

	for i, s := range syms {
		put32(img, funcOff+4*i, s.RVA)
		put16(img, ordOff+2*i, uint16(i))
		put32(img, nameOff+4*i, uint32(len(img)))
		img = append(img, s.Name...)
		img = append(img, 0)
	}
	return img
}

// BuildNoExports returns a well-formed image without an export directory.
func BuildNoExports() []byte {
	img := buildHeaders()
	put32(img, ntOff+24+112, 0) // export directory RVA
	put32(img, ntOff+24+116, 0) // export directory size
	return img
}

// Base returns the address the image is mapped at. The caller must keep
// the slice alive while addresses derived from it are in use.
func Base(img []byte) uintptr {
	return uintptr(unsafe.Pointer(&img[0]))
}

func buildHeaders() []byte {
	img := make([]byte, strOff)
	put16(img, 0, 0x5a4d)       // MZ
	put32(img, 0x3c, ntOff)     // e_lfanew
	put32(img, ntOff, 0x4550)   // PE\0\0
	put16(img, ntOff+24, 0x20b) // PE32+
	put32(img, ntOff+24+108, 16)
	put32(img, ntOff+24+112, dirOff)
	put32(img, ntOff+24+116, 40)
	return img
}

func put16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:], v)
}

func put32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}
