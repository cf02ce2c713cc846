package detour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrologueLengthCoversPatchArea(t *testing.T) {
	// mov rax, 0x1 (7 bytes)
	code := []byte{0x48, 0xc7, 0xc0, 0x01, 0x00, 0x00, 0x00, 0x90, 0x90}

	n, err := prologueLength(code, jmpLen)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestPrologueLengthStopsOnBoundary(t *testing.T) {
	// push rbp; mov rbp, rsp; nop...
	code := []byte{0x55, 0x48, 0x89, 0xe5, 0x90, 0x90, 0x90, 0x90}

	n, err := prologueLength(code, jmpLen)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPrologueLengthRejectsBranches(t *testing.T) {
	cases := map[string][]byte{
		"jmp rel32":  {0xe9, 0x00, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90},
		"jmp rel8":   {0xeb, 0x10, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90},
		"call rel32": {0xe8, 0x00, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90},
		"ret":        {0xc3, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90},
	}
	for name, code := range cases {
		_, err := prologueLength(code, jmpLen)
		assert.ErrorIs(t, err, ErrUnsafePrologue, name)
	}
}

func TestPutAbsJumpLayout(t *testing.T) {
	b := make([]byte, absJmpLen)
	putAbsJump(b, 0x1122334455667788)

	assert.Equal(t, []byte{0xff, 0x25, 0x00, 0x00, 0x00, 0x00}, b[:6])
	assert.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, b[6:])
}

func TestRemoveUnknownTrampoline(t *testing.T) {
	p := New()
	assert.ErrorIs(t, p.Remove(0xdead), ErrUnknownTrampoline)
}
