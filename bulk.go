package interpose

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hexellate/interpose/internal/peimage"
)

// Diagnostic and reporting entry points that are unsafe or meaningless to
// intercept; always skipped even when the replacement exports them.
var exportDenylist = []string{
	"DXGIReportAdapterConfiguration",
	"DXGIDumpJournal",
}

const exportDenyPrefix = "DXGID3D10"

func denied(name string) bool {
	for _, d := range exportDenylist {
		if name == d {
			return true
		}
	}
	return strings.HasPrefix(name, exportDenyPrefix)
}

// InstallModulePair hooks every export of the target module that the
// replacement module exports under the same name, using the given
// strategy, and returns the number of hooks installed. An empty target
// export table is not an error. Individual install failures do not abort
// the batch.
func (m *Manager) InstallModulePair(target, replacement Handle, strat Strategy) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installPairLocked(target, replacement, strat)
}

func (m *Manager) installPairLocked(target, replacement Handle, strat Strategy) int {
	targetExports := peimage.Exports(uintptr(target))
	replacementExports := peimage.Exports(uintptr(replacement))

	if len(targetExports) == 0 {
		m.log.Info("empty export table, skipped", zap.Uintptr("module", uintptr(target)))
		return 0
	}

	installed := 0
	for _, sym := range targetExports {
		if sym.Name == "" || sym.Addr == 0 {
			continue
		}
		match, ok := findExport(replacementExports, sym.Name)
		if !ok || denied(sym.Name) {
			m.log.Debug("skipping export",
				zap.String("name", sym.Name),
				zap.Uint16("ordinal", sym.Ordinal))
			continue
		}
		m.log.Debug("matched export",
			zap.String("name", sym.Name),
			zap.Uint16("ordinal", sym.Ordinal),
			zap.Uintptr("address", sym.Addr))
		if err := m.installOneLocked(sym.Addr, match.Addr, strat); err != nil {
			continue
		}
		installed++
	}

	if installed != 0 {
		m.log.Info("installed hooks", zap.Int("count", installed))
	} else {
		m.log.Warn("installed 0 hooks")
	}
	return installed
}

func findExport(exports []peimage.Export, name string) (peimage.Export, bool) {
	for _, e := range exports {
		if e.Name == name {
			return e, true
		}
	}
	return peimage.Export{}, false
}
