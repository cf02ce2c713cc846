package interpose

import "go.uber.org/zap"

// Protection is a memory protection mode. The value is the raw mode of the
// underlying OS primitive, so a previous protection reported by a
// MemoryProtector can be passed back unchanged on restore. The named
// constants cover the modes this package itself requests; they are defined
// per platform.
type Protection uint32

// protectGuard reinstates the protection a range had before apply. Every
// code path that toggles protection must restore through the guard,
// including failure paths.
type protectGuard struct {
	mem  MemoryProtector
	log  *zap.Logger
	addr uintptr
	n    uintptr
	prev Protection
}

func (m *Manager) protectRange(addr, n uintptr, mode Protection) (*protectGuard, error) {
	prev, err := m.mem.Protect(addr, n, mode)
	if err != nil {
		return nil, err
	}
	return &protectGuard{mem: m.mem, log: m.log, addr: addr, n: n, prev: prev}, nil
}

func (g *protectGuard) restore() {
	if _, err := g.mem.Protect(g.addr, g.n, g.prev); err != nil {
		g.log.Warn("failed to restore memory protection",
			zap.Uintptr("addr", g.addr), zap.Error(err))
	}
}
