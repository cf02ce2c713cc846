package interpose

// Hook describes one tracked redirection. Target is the address that was
// originally called, Replacement the address installed in its place and
// Trampoline the address to call to reach the original behavior. The zero
// Hook is what Find returns when nothing is tracked for an address.
type Hook struct {
	Target      uintptr
	Replacement uintptr
	Trampoline  uintptr
	Enabled     bool
}

// IsValid reports whether the hook describes a real redirection.
func (h Hook) IsValid() bool {
	return h.Target != 0 && h.Replacement != 0
}

// IsInstalled reports whether the redirection is currently in place.
// An uninstalled hook has no trampoline.
func (h Hook) IsInstalled() bool {
	return h.Trampoline != 0
}

// trackedHook pairs a hook with the strategy that installed it, so the
// same strategy can reverse it later.
type trackedHook struct {
	hook  Hook
	strat Strategy
}
