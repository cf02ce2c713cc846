package interpose

import (
	"fmt"
	"unsafe"

	"github.com/emirpasic/gods/trees/redblacktree"
	"go.uber.org/zap"
)

// slotTable maps an original function pointer to the writable vtable slot
// it was read from. The table is keyed solely on the pointer value: two
// vtables whose slot holds the same original pointer cannot be told apart,
// so the second capture is reported as a conflict. The manager's mutex
// guards all access.
type slotTable struct {
	rbt *redblacktree.Tree
}

type slotInsert int

const (
	slotNew slotInsert = iota
	slotDuplicateMatch
	slotConflict
)

func newSlotTable() *slotTable {
	return &slotTable{rbt: redblacktree.NewWith(func(a, b interface{}) int {
		x, y := a.(uintptr), b.(uintptr)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	})}
}

// insert records original -> slot, first writer wins. It distinguishes a
// fresh capture, an idempotent re-registration of the same slot and a
// conflicting capture of the same pointer from a different slot.
func (t *slotTable) insert(original, slot uintptr) slotInsert {
	if v, ok := t.rbt.Get(original); ok {
		if v.(uintptr) == slot {
			return slotDuplicateMatch
		}
		return slotConflict
	}
	t.rbt.Put(original, slot)
	return slotNew
}

func (t *slotTable) get(original uintptr) (uintptr, bool) {
	v, ok := t.rbt.Get(original)
	if !ok {
		return 0, false
	}
	return v.(uintptr), true
}

func (t *slotTable) remove(original uintptr) {
	t.rbt.Remove(original)
}

func (t *slotTable) size() int {
	return t.rbt.Size()
}

// RegisterVTableSlot captures the function pointer currently stored at
// vtable[index] and redirects the slot to replacement. Re-registering the
// same slot succeeds without reinstalling; capturing a slot whose pointer
// is already tracked for a different slot fails with ErrSlotConflict, and
// a slot that already points at the replacement is declined with
// ErrAlreadyHooked.
func (m *Manager) RegisterVTableSlot(vtable uintptr, index uint32, replacement uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := vtable + uintptr(index)*ptrSize

	// Read the current pointer under a read-only probe; a slot we cannot
	// even read is not worth capturing.
	guard, err := m.protectRange(slot, ptrSize, ProtectReadOnly)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryProtection, err)
	}
	target := *(*uintptr)(unsafe.Pointer(slot))
	guard.restore()

	switch m.slots.insert(target, slot) {
	case slotDuplicateMatch:
		return nil
	case slotConflict:
		m.log.Warn("vtable slot already captured",
			zap.Uintptr("original", target), zap.Uintptr("slot", slot))
		return ErrSlotConflict
	}

	if target == replacement {
		m.slots.remove(target)
		return ErrAlreadyHooked
	}
	if err := m.installOneLocked(target, replacement, StrategyVTable); err != nil {
		m.slots.remove(target)
		return err
	}
	return nil
}
