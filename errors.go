package interpose

import "errors"

var (
	// ErrSelfHook means target and replacement are the same address
	ErrSelfHook = errors.New("target and replacement are the same address")
	// ErrAlreadyHooked means the target location is already redirected
	ErrAlreadyHooked = errors.New("already hooked")
	// ErrHookConflict means the replacement is bound to a different target
	ErrHookConflict = errors.New("replacement bound to a different target")
	// ErrSlotConflict means another vtable slot holds the same original pointer
	ErrSlotConflict = errors.New("vtable slot captured for a different location")
	// ErrHookNotFound means no hook is tracked for the given address
	ErrHookNotFound = errors.New("hook not found")
	// ErrMemoryProtection means the OS refused a protection change
	ErrMemoryProtection = errors.New("memory protection change failed")
	// ErrPatchFailed means the trampoline patcher refused the redirection
	ErrPatchFailed = errors.New("trampoline patch failed")
	// ErrModuleLoad means a deferred module could not be loaded
	ErrModuleLoad = errors.New("module load failed")
)
