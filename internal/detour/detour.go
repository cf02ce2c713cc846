// Package detour is an inline trampoline patcher: it redirects control
// flow at a function's entry with a near jump and produces a trampoline
// holding the displaced prologue, so the original behavior stays
// callable. The code rewriting is x86-64 only.
package detour

import (
	"errors"
	"sync"
)

var (
	// ErrUnsafePrologue means a branch was found inside the patch area
	ErrUnsafePrologue = errors.New("branch instruction inside patch area")
	// ErrOffsetRange means the replacement is out of 32-bit relative reach
	ErrOffsetRange = errors.New("target out of 32-bit relative range")
	// ErrUnknownTrampoline means the address was not produced by Install
	ErrUnknownTrampoline = errors.New("unknown trampoline address")
	// ErrUnsupported means this architecture cannot be patched
	ErrUnsupported = errors.New("unsupported architecture")
)

// patch remembers everything needed to reverse one installed detour.
type patch struct {
	target uintptr
	saved  []byte
	block  []byte
}

// Patcher tracks live detours by trampoline address.
type Patcher struct {
	mu   sync.Mutex
	live map[uintptr]*patch
}

func New() *Patcher {
	return &Patcher{live: make(map[uintptr]*patch)}
}
