package interpose

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Register requests hooking of the module named by targetPath against the
// module this package lives in. If the target is already loaded the hooks
// go in immediately; if not, the path is queued and installed once the
// load-watch hooks see a matching module come in. A target path whose
// stem names this module itself is remembered as the deferred export
// module, resolved lazily on the first Call.
func (m *Manager) Register(targetPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loader == nil {
		return fmt.Errorf("%w: no module loader available", ErrModuleLoad)
	}
	m.ensureLoadWatchLocked()

	m.log.Info("registering hooks", zap.String("path", targetPath))

	self := m.selfModuleLocked()
	selfPath := m.loader.Path(self)

	if strings.EqualFold(stem(targetPath), stem(selfPath)) {
		// Hooking this module against itself is meaningless; keep the
		// path for the export strategy instead.
		m.log.Info("delayed until first call", zap.String("path", targetPath))
		m.exportPath = targetPath
		return nil
	}

	if h := m.loader.Loaded(targetPath); h != 0 {
		m.log.Info("target already loaded", zap.String("path", targetPath))
		m.installPairLocked(h, self, StrategyFunction)
		return nil
	}

	m.log.Info("delayed until load", zap.String("path", targetPath))
	m.pending = append(m.pending, targetPath)
	return nil
}

// ensureLoadWatchLocked installs the two permanent hooks on the ANSI and
// wide module-loading entry points. Runs on every Register and relies on
// install idempotency; only the first call actually patches anything.
func (m *Manager) ensureLoadWatchLocked() {
	ansi, wide := m.loader.EntryPoints()
	replA, replW := m.watchReplacements()

	if err := m.installOneLocked(ansi, replA, StrategyFunction); err != nil {
		m.log.Error("failed to hook ANSI loader entry point", zap.Error(err))
	} else {
		m.watchA = watchRef{target: ansi, replacement: replA}
		m.watchTrampA.Store(m.findLocked(replA).Trampoline)
	}
	if err := m.installOneLocked(wide, replW, StrategyFunction); err != nil {
		m.log.Error("failed to hook wide loader entry point", zap.Error(err))
	} else {
		m.watchW = watchRef{target: wide, replacement: replW}
		m.watchTrampW.Store(m.findLocked(replW).Trampoline)
	}
}

// onLibraryLoaded runs after the real loader call has returned a non-null
// handle. The pending list is only touched here, strictly after the inner
// load, so the non-reentrant lock is never re-acquired on the same thread.
func (m *Manager) onLibraryLoaded(path string, handle Handle) {
	if handle == 0 || m.watchSuspended.Load() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.pending {
		if !strings.EqualFold(stem(p), stem(path)) {
			continue
		}
		m.log.Info("installing delayed hooks",
			zap.String("registered", p), zap.String("loaded", path))
		// Zero installs may mean the wrong variant of a same-named
		// module loaded; keep the entry for a future load.
		if m.installPairLocked(handle, m.selfModuleLocked(), StrategyFunction) > 0 {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
		}
		return
	}
}

// resolveExportModuleLocked loads the deferred export module, if one is
// pending, and installs it with the export strategy. The wide load-watch
// hook is suspended around the load so the load performed here cannot
// trigger it. On failure the path stays set and is retried on a future
// Call.
func (m *Manager) resolveExportModuleLocked() {
	if m.exportPath == "" {
		return
	}
	m.log.Info("installing delayed export hooks", zap.String("path", m.exportPath))

	m.watchSuspended.Store(true)
	m.setEnabledLocked(m.watchW.replacement, false)
	handle, err := m.loader.Load(m.exportPath)
	m.setEnabledLocked(m.watchW.replacement, true)
	m.watchSuspended.Store(false)

	if err != nil || handle == 0 {
		m.log.Error("failed to load export module",
			zap.String("path", m.exportPath), zap.Error(err))
		return
	}
	m.exportModule = handle
	m.exportPath = ""
	m.installPairLocked(handle, m.selfModuleLocked(), StrategyExport)
}
