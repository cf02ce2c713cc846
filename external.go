package interpose

// Handle is an opaque module handle. On Windows this is the module base
// address (HMODULE).
type Handle uintptr

// TrampolinePatcher rewrites machine code at a target address so that
// control flow reaches the replacement, and produces a trampoline that
// still reaches the original behavior. The manager treats it as an opaque
// service and only distinguishes success from failure.
type TrampolinePatcher interface {
	Install(target, replacement uintptr) (trampoline uintptr, err error)
	Remove(trampoline uintptr) error
}

// MemoryProtector changes the protection of a memory range and reports the
// previous protection so it can be restored.
type MemoryProtector interface {
	Protect(addr, length uintptr, mode Protection) (previous Protection, err error)
}

// ModuleLoader provides the handful of module primitives the manager
// needs from the OS loader.
type ModuleLoader interface {
	// Load loads the module at path into the process.
	Load(path string) (Handle, error)
	// Loaded returns the handle of an already loaded module, or zero.
	Loaded(path string) Handle
	// Containing returns the handle of the module containing addr.
	Containing(addr uintptr) Handle
	// Path returns the file path of a module handle.
	Path(h Handle) string
	// Free releases a handle obtained from Load.
	Free(h Handle)
	// EntryPoints returns the addresses of the ANSI and wide-string
	// module-loading entry points, the targets of the load-watch hooks.
	EntryPoints() (ansi, wide uintptr)
}
