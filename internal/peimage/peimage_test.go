package peimage

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexellate/interpose/internal/peimage/peimagetest"
)

func TestExportsResolvesNamesOrdinalsAddresses(t *testing.T) {
	img := peimagetest.Build([]peimagetest.Symbol{
		{Name: "Alpha", RVA: 0x1000},
		{Name: "Beta", RVA: 0x1010},
		{Name: "Gamma", RVA: 0x1020},
	})
	base := peimagetest.Base(img)

	exports := Exports(base)

	require.Len(t, exports, 3)
	// export-table order is preserved
	assert.Equal(t, "Alpha", exports[0].Name)
	assert.Equal(t, "Beta", exports[1].Name)
	assert.Equal(t, "Gamma", exports[2].Name)
	for i, e := range exports {
		assert.Equal(t, uint16(i)+peimagetest.OrdinalBase, e.Ordinal)
	}
	assert.Equal(t, base+0x1000, exports[0].Addr)
	assert.Equal(t, base+0x1010, exports[1].Addr)
	assert.Equal(t, base+0x1020, exports[2].Addr)

	runtime.KeepAlive(img)
}

func TestExportsNoExportDirectory(t *testing.T) {
	img := peimagetest.BuildNoExports()

	assert.Empty(t, Exports(peimagetest.Base(img)))

	runtime.KeepAlive(img)
}

func TestExportsMalformedHeader(t *testing.T) {
	img := peimagetest.Build([]peimagetest.Symbol{{Name: "Alpha", RVA: 0x1000}})

	// break the DOS signature; a corrupt header reads as "no exports"
	img[0] = 0
	assert.Empty(t, Exports(peimagetest.Base(img)))

	runtime.KeepAlive(img)
}

func TestExportsNilBase(t *testing.T) {
	assert.Empty(t, Exports(0))
}

func TestExportsRereadIsStable(t *testing.T) {
	img := peimagetest.Build([]peimagetest.Symbol{{Name: "Alpha", RVA: 0x1000}})
	base := peimagetest.Base(img)

	first := Exports(base)
	second := Exports(base)
	assert.Equal(t, first, second)

	runtime.KeepAlive(img)
}
