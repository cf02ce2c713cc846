// Package interpose manages runtime code interception inside the host
// process: it installs hooks on exported functions and vtable slots of
// other loaded modules, keeps a registry of every active redirection and
// hands intercepted code the trampoline that reaches the original
// behavior. Hooking a module that is not loaded yet is deferred until the
// loader brings it in.
package interpose

import (
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// selfAnchor exists so the module containing this package can be resolved
// through ModuleLoader.Containing.
var selfAnchor byte

// watchRef remembers where a load-watch hook was installed.
type watchRef struct {
	target      uintptr
	replacement uintptr
}

// Manager owns all process-wide interception state: the hook table, the
// captured vtable slots, the pending module paths awaiting load and the
// deferred export-module path. One mutex guards all of it; the lock is
// never reentrant, so internal helpers with the Locked suffix assume the
// caller already holds it.
type Manager struct {
	log     *zap.Logger
	patcher TrampolinePatcher
	mem     MemoryProtector
	loader  ModuleLoader

	mu           sync.Mutex
	hooks        []trackedHook
	slots        *slotTable
	pending      []string
	exportPath   string
	exportModule Handle

	watchA watchRef
	watchW watchRef

	// watchSuspended gates the wide load-watch replacement while the
	// deferred export module is being loaded, so the load it performs
	// cannot trigger the watch again.
	watchSuspended atomic.Bool
	watchTrampA    atomic.Uintptr
	watchTrampW    atomic.Uintptr

	// callback addresses of the native load-watch stubs, created once
	cbA uintptr
	cbW uintptr
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostics sink.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithPatcher replaces the default trampoline patcher.
func WithPatcher(p TrampolinePatcher) Option {
	return func(m *Manager) { m.patcher = p }
}

// WithProtector replaces the default memory permission primitive.
func WithProtector(mem MemoryProtector) Option {
	return func(m *Manager) { m.mem = mem }
}

// WithLoader replaces the default module loader.
func WithLoader(l ModuleLoader) Option {
	return func(m *Manager) { m.loader = l }
}

// New creates a hook manager. Defaults: a no-op logger, the built-in
// detour patcher and the platform loader and protector.
func New(opts ...Option) *Manager {
	m := &Manager{
		log:     zap.NewNop(),
		patcher: defaultPatcher(),
		mem:     defaultProtector(),
		loader:  defaultLoader(),
		slots:   newSlotTable(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Install redirects target to replacement with a function hook. A second
// install of the same pair succeeds without a new table entry; installing
// a replacement that is already bound to a different target fails with
// ErrHookConflict and leaves the existing hook untouched.
func (m *Manager) Install(target, replacement uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installOneLocked(target, replacement, StrategyFunction)
}

// installOneLocked applies the per-pair rules shared by Install and the
// bulk installer, then hands the pair to the strategy.
func (m *Manager) installOneLocked(target, replacement uintptr, strat Strategy) error {
	if target == replacement {
		return ErrSelfHook
	}
	if existing := m.findLocked(replacement); existing.IsValid() {
		if existing.Target == target {
			return nil
		}
		return ErrHookConflict
	}
	if m.findByTargetLocked(target).IsValid() {
		return ErrAlreadyHooked
	}

	m.log.Debug("installing hook",
		zap.Uintptr("target", target),
		zap.Uintptr("replacement", replacement),
		zap.String("method", strat.name()))

	// By convention the trampoline starts out equal to the target; a
	// strategy that produces a real trampoline overrides it.
	h := Hook{Target: target, Replacement: replacement, Trampoline: target, Enabled: true}
	tramp, err := strat.install(m, target, replacement)
	if err != nil {
		m.log.Error("failed to install hook",
			zap.Uintptr("target", target),
			zap.String("method", strat.name()),
			zap.Error(err))
		return err
	}
	if tramp != 0 {
		h.Trampoline = tramp
	}
	m.hooks = append(m.hooks, trackedHook{hook: h, strat: strat})
	return nil
}

// Uninstall tears down every tracked hook, best effort, and clears the
// table. The lazily loaded export module is released. Calling it again is
// a no-op.
func (m *Manager) Uninstall() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Info("uninstalling hooks", zap.Int("count", len(m.hooks)))

	var errs error
	for i := range m.hooks {
		if err := m.uninstallOneLocked(&m.hooks[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	m.hooks = nil
	m.pending = nil
	m.exportPath = ""
	m.watchA = watchRef{}
	m.watchW = watchRef{}

	if m.exportModule != 0 {
		if m.loader != nil {
			m.loader.Free(m.exportModule)
		}
		m.exportModule = 0
	}
	if errs != nil {
		m.log.Warn("some hooks failed to uninstall", zap.Error(errs))
	}
}

func (m *Manager) uninstallOneLocked(th *trackedHook) error {
	m.log.Debug("uninstalling hook",
		zap.Uintptr("target", th.hook.Target),
		zap.String("method", th.strat.name()))

	if !th.hook.IsInstalled() {
		return nil
	}
	if th.strat == StrategyExport {
		// The replacement module stands in as a whole, there is no
		// redirection to reverse.
		return nil
	}
	if err := th.strat.uninstall(m, &th.hook); err != nil {
		m.log.Warn("failed to uninstall hook",
			zap.Uintptr("target", th.hook.Target),
			zap.Error(err))
		return err
	}
	th.hook.Trampoline = 0
	th.hook.Enabled = false
	return nil
}

// Find returns the tracked hook whose replacement equals the argument, or
// the zero Hook.
func (m *Manager) Find(replacement uintptr) Hook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(replacement)
}

func (m *Manager) findLocked(replacement uintptr) Hook {
	for i := range m.hooks {
		if m.hooks[i].hook.Replacement == replacement {
			return m.hooks[i].hook
		}
	}
	return Hook{}
}

func (m *Manager) findByTargetLocked(target uintptr) Hook {
	for i := range m.hooks {
		if m.hooks[i].hook.Target == target {
			return m.hooks[i].hook
		}
	}
	return Hook{}
}

func (m *Manager) setEnabledLocked(replacement uintptr, enabled bool) {
	for i := range m.hooks {
		if m.hooks[i].hook.Replacement == replacement {
			m.hooks[i].hook.Enabled = enabled
			return
		}
	}
}

// Call returns the trampoline behind a replacement, or zero when the call
// cannot be forwarded. The very first call through any export-hooked
// function also resolves the deferred export module.
func (m *Manager) Call(replacement uintptr) uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolveExportModuleLocked()

	h := m.findLocked(replacement)
	if !h.IsValid() || !h.IsInstalled() {
		m.log.Error("unable to resolve hook", zap.Uintptr("replacement", replacement))
		return 0
	}
	return h.Trampoline
}

func (m *Manager) selfModuleLocked() Handle {
	return m.loader.Containing(uintptr(unsafe.Pointer(&selfAnchor)))
}

// stem returns the file name without directory and extension. Load-time
// paths can differ from registration-time paths, so pending modules are
// matched by stem, case-insensitively.
func stem(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		path = path[:i]
	}
	return path
}
