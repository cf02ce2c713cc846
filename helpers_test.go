package interpose

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// offset a fake trampoline sits at from its target
const trampolineOffset = 0x10000

type installRecord struct {
	target      uintptr
	replacement uintptr
}

type fakePatcher struct {
	installs   []installRecord
	removed    []uintptr
	failFor    map[uintptr]bool // install failures by target
	failRemove map[uintptr]bool // removal failures by trampoline
}

func newFakePatcher() *fakePatcher {
	return &fakePatcher{
		failFor:    make(map[uintptr]bool),
		failRemove: make(map[uintptr]bool),
	}
}

func (p *fakePatcher) Install(target, replacement uintptr) (uintptr, error) {
	if p.failFor[target] {
		return 0, errors.New("patch refused")
	}
	p.installs = append(p.installs, installRecord{target: target, replacement: replacement})
	return target + trampolineOffset, nil
}

func (p *fakePatcher) Remove(trampoline uintptr) error {
	if p.failRemove[trampoline] {
		return errors.New("remove refused")
	}
	p.removed = append(p.removed, trampoline)
	return nil
}

type protCall struct {
	addr uintptr
	n    uintptr
	mode Protection
}

type fakeProtector struct {
	calls  []protCall
	failOn func(addr uintptr, mode Protection) bool
}

func (p *fakeProtector) Protect(addr, n uintptr, mode Protection) (Protection, error) {
	if p.failOn != nil && p.failOn(addr, mode) {
		return 0, errors.New("protect refused")
	}
	p.calls = append(p.calls, protCall{addr: addr, n: n, mode: mode})
	return ProtectExecuteRead, nil
}

type fakeLoader struct {
	modules map[string]Handle // keyed by lower-cased stem
	paths   map[Handle]string
	self    Handle
	entryA  uintptr
	entryW  uintptr
	loadFn  func(path string) (Handle, error)
	freed   []Handle
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		modules: make(map[string]Handle),
		paths:   make(map[Handle]string),
		entryA:  0x111000,
		entryW:  0x222000,
	}
}

func (l *fakeLoader) Load(path string) (Handle, error) {
	if l.loadFn != nil {
		return l.loadFn(path)
	}
	return 0, errors.New("load failed")
}

func (l *fakeLoader) Loaded(path string) Handle {
	return l.modules[strings.ToLower(stem(path))]
}

func (l *fakeLoader) Containing(addr uintptr) Handle { return l.self }

func (l *fakeLoader) Path(h Handle) string { return l.paths[h] }

func (l *fakeLoader) Free(h Handle) { l.freed = append(l.freed, h) }

func (l *fakeLoader) EntryPoints() (uintptr, uintptr) { return l.entryA, l.entryW }

func newTestManager(opts ...Option) (*Manager, *fakePatcher) {
	p := newFakePatcher()
	opts = append([]Option{
		WithLogger(zap.NewNop()),
		WithPatcher(p),
		WithProtector(&fakeProtector{}),
	}, opts...)
	return New(opts...), p
}
