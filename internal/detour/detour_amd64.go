package detour

import (
	"encoding/binary"
	"strings"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

const (
	// near jmp rel32
	jmpLen = 5
	// ff 25 00 00 00 00 + 8-byte absolute destination
	absJmpLen = 14
	// longest read needed to cover jmpLen on instruction boundaries
	prologueWindow = 32
)

// Install patches target with a near jump to replacement and returns the
// trampoline address. The displaced prologue is copied, on instruction
// boundaries, into an executable block that ends with an absolute jump
// back to the rest of the target.
func (p *Patcher) Install(target, replacement uintptr) (uintptr, error) {
	code := readMemory(target, prologueWindow)
	n, err := prologueLength(code, jmpLen)
	if err != nil {
		return 0, err
	}

	rel := int64(replacement) - int64(target) - jmpLen
	if rel != int64(int32(rel)) {
		return 0, ErrOffsetRange
	}

	block, err := allocExec(n + absJmpLen)
	if err != nil {
		return 0, err
	}
	copy(block, code[:n])
	putAbsJump(block[n:], target+uintptr(n))
	if err := sealExec(block); err != nil {
		_ = freeExec(block)
		return 0, err
	}

	var jmp [jmpLen]byte
	jmp[0] = 0xe9
	binary.LittleEndian.PutUint32(jmp[1:], uint32(rel))
	if err := writeCode(target, jmp[:]); err != nil {
		_ = freeExec(block)
		return 0, err
	}

	tramp := uintptr(unsafe.Pointer(&block[0]))
	saved := append([]byte(nil), code[:jmpLen]...)
	p.mu.Lock()
	p.live[tramp] = &patch{target: target, saved: saved, block: block}
	p.mu.Unlock()
	return tramp, nil
}

// Remove restores the patched bytes and releases the trampoline block.
func (p *Patcher) Remove(trampoline uintptr) error {
	p.mu.Lock()
	pa, ok := p.live[trampoline]
	if ok {
		delete(p.live, trampoline)
	}
	p.mu.Unlock()
	if !ok {
		return ErrUnknownTrampoline
	}
	if err := writeCode(pa.target, pa.saved); err != nil {
		return err
	}
	return freeExec(pa.block)
}

// prologueLength decodes instructions until at least min bytes are
// covered. Branches inside the patch area cannot be displaced into the
// trampoline, so they abort the install.
func prologueLength(code []byte, min int) (int, error) {
	n := 0
	for n < min {
		inst, err := x86asm.Decode(code[n:], 64)
		if err != nil {
			return 0, err
		}
		if isBranch(inst) {
			return 0, ErrUnsafePrologue
		}
		n += inst.Len
	}
	return n, nil
}

func isBranch(inst x86asm.Inst) bool {
	op := inst.Op.String()
	return strings.HasPrefix(op, "J") ||
		strings.HasPrefix(op, "CALL") ||
		strings.HasPrefix(op, "RET") ||
		strings.HasPrefix(op, "LOOP")
}

func putAbsJump(b []byte, dest uintptr) {
	b[0], b[1] = 0xff, 0x25
	binary.LittleEndian.PutUint32(b[2:], 0)
	binary.LittleEndian.PutUint64(b[6:], uint64(dest))
}

func readMemory(addr, n uintptr) []byte {
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
	return out
}
