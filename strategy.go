package interpose

import (
	"fmt"
	"unsafe"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Strategy performs the actual redirection for one target/replacement
// pair and can reverse it later. The three implementations are the only
// code in this package that dereferences raw addresses.
type Strategy interface {
	name() string
	install(m *Manager, target, replacement uintptr) (trampoline uintptr, err error)
	uninstall(m *Manager, h *Hook) error
}

var (
	// StrategyExport trusts the replacement module's exports to stand in
	// for the target module as a whole; nothing is patched.
	StrategyExport Strategy = exportStrategy{}
	// StrategyFunction redirects control flow at the target through the
	// trampoline patcher.
	StrategyFunction Strategy = functionStrategy{}
	// StrategyVTable overwrites a previously captured vtable slot.
	StrategyVTable Strategy = vtableStrategy{}
)

type exportStrategy struct{}

func (exportStrategy) name() string { return "export" }

func (exportStrategy) install(*Manager, uintptr, uintptr) (uintptr, error) {
	return 0, nil
}

func (exportStrategy) uninstall(*Manager, *Hook) error {
	return nil
}

type functionStrategy struct{}

func (functionStrategy) name() string { return "function" }

func (functionStrategy) install(m *Manager, target, replacement uintptr) (uintptr, error) {
	tramp, err := m.patcher.Install(target, replacement)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPatchFailed, err)
	}
	return tramp, nil
}

func (functionStrategy) uninstall(m *Manager, h *Hook) error {
	if err := m.patcher.Remove(h.Trampoline); err != nil {
		return fmt.Errorf("%w: %v", ErrPatchFailed, err)
	}
	return nil
}

type vtableStrategy struct{}

func (vtableStrategy) name() string { return "vtable" }

func (vtableStrategy) install(m *Manager, target, replacement uintptr) (uintptr, error) {
	slot, ok := m.slots.get(target)
	if !ok {
		return 0, ErrHookNotFound
	}
	guard, err := m.protectRange(slot, ptrSize, ProtectReadWrite)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMemoryProtection, err)
	}
	defer guard.restore()
	*(*uintptr)(unsafe.Pointer(slot)) = replacement
	return 0, nil
}

func (vtableStrategy) uninstall(m *Manager, h *Hook) error {
	slot, ok := m.slots.get(h.Target)
	if !ok {
		return ErrHookNotFound
	}
	guard, err := m.protectRange(slot, ptrSize, ProtectReadWrite)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryProtection, err)
	}
	defer guard.restore()
	*(*uintptr)(unsafe.Pointer(slot)) = h.Target
	m.slots.remove(h.Target)
	return nil
}
