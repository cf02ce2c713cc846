//go:build !windows

package interpose

import "unsafe"

// Off Windows there are no native loader stubs; the anchors give the
// load-watch hooks stable, distinct replacement addresses so the registry
// bookkeeping behaves the same everywhere.
var (
	loadWatchAnchorA byte
	loadWatchAnchorW byte
)

func (m *Manager) watchReplacements() (uintptr, uintptr) {
	return uintptr(unsafe.Pointer(&loadWatchAnchorA)),
		uintptr(unsafe.Pointer(&loadWatchAnchorW))
}
