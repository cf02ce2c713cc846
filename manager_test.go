package interpose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallAndFind(t *testing.T) {
	m, patcher := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))

	h := m.Find(0x900)
	require.True(t, h.IsValid())
	assert.Equal(t, uintptr(0x100), h.Target)
	assert.Equal(t, uintptr(0x900), h.Replacement)
	assert.True(t, h.IsInstalled())
	assert.Equal(t, uintptr(0x100)+trampolineOffset, h.Trampoline)
	require.Len(t, patcher.installs, 1)
	assert.Equal(t, installRecord{target: 0x100, replacement: 0x900}, patcher.installs[0])
}

func TestInstallRejectsSelfHook(t *testing.T) {
	m, patcher := newTestManager()

	err := m.Install(0x100, 0x100)
	assert.ErrorIs(t, err, ErrSelfHook)
	assert.Empty(t, m.hooks)
	assert.Empty(t, patcher.installs)
}

func TestInstallIdempotent(t *testing.T) {
	m, patcher := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))
	require.NoError(t, m.Install(0x100, 0x900))

	assert.Len(t, m.hooks, 1)
	assert.Len(t, patcher.installs, 1)
}

func TestInstallConflictingReplacement(t *testing.T) {
	m, _ := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))

	err := m.Install(0x200, 0x900)
	assert.ErrorIs(t, err, ErrHookConflict)

	h := m.Find(0x900)
	assert.Equal(t, uintptr(0x100), h.Target)
	assert.Len(t, m.hooks, 1)
}

func TestInstallDuplicateTarget(t *testing.T) {
	m, _ := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))

	err := m.Install(0x100, 0x910)
	assert.ErrorIs(t, err, ErrAlreadyHooked)
	assert.Len(t, m.hooks, 1)
}

func TestInstallPatcherFailure(t *testing.T) {
	m, patcher := newTestManager()
	patcher.failFor[0x100] = true

	err := m.Install(0x100, 0x900)
	assert.ErrorIs(t, err, ErrPatchFailed)
	assert.Empty(t, m.hooks)
	assert.False(t, m.Find(0x900).IsValid())
}

func TestFindUnknownReturnsZeroHook(t *testing.T) {
	m, _ := newTestManager()

	h := m.Find(0xdead)
	assert.False(t, h.IsValid())
	assert.False(t, h.IsInstalled())
	assert.Equal(t, Hook{}, h)
}

func TestCallReturnsTrampoline(t *testing.T) {
	m, _ := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))
	assert.Equal(t, uintptr(0x100)+trampolineOffset, m.Call(0x900))
}

func TestCallUnknownReturnsZero(t *testing.T) {
	m, _ := newTestManager()

	assert.Equal(t, uintptr(0), m.Call(0x900))
}

func TestUninstallClearsTable(t *testing.T) {
	m, patcher := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))
	require.NoError(t, m.Install(0x200, 0x910))

	m.Uninstall()

	assert.Empty(t, m.hooks)
	assert.False(t, m.Find(0x900).IsValid())
	assert.False(t, m.Find(0x910).IsValid())
	assert.ElementsMatch(t, []uintptr{
		0x100 + trampolineOffset,
		0x200 + trampolineOffset,
	}, patcher.removed)

	// second teardown is a no-op
	m.Uninstall()
	assert.Len(t, patcher.removed, 2)
}

func TestUninstallBestEffort(t *testing.T) {
	m, patcher := newTestManager()

	require.NoError(t, m.Install(0x100, 0x900))
	require.NoError(t, m.Install(0x200, 0x910))
	patcher.failRemove[0x100+trampolineOffset] = true

	m.Uninstall()

	// the failing hook did not stop the rest of the teardown
	assert.Empty(t, m.hooks)
	assert.Equal(t, []uintptr{0x200 + trampolineOffset}, patcher.removed)
}
