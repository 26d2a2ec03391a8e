package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 256, alignUp(200, 256))
	assert.Equal(t, 256, alignUp(256, 256))
	assert.Equal(t, 512, alignUp(257, 256))
}

func TestUniformBuffer_CellOffsetsAreStrideMultiples(t *testing.T) {
	u := NewUniformBuffer(80, 256, 4)
	assert.Equal(t, 256, u.CellStride())
	assert.Equal(t, uint64(0), u.Offset(0))
	assert.Equal(t, uint64(256), u.Offset(1))
	assert.Equal(t, uint64(768), u.Offset(3))
}

func TestUniformBuffer_WriteWithinCellDoesNotLeakIntoNextCell(t *testing.T) {
	u := NewUniformBuffer(16, 256, 2)
	u.BeginCell(0)
	u.Write([]byte{1, 2, 3, 4})
	u.BeginCell(1)
	u.Write([]byte{9, 9, 9, 9})

	assert.Equal(t, byte(1), u.Bytes()[0])
	assert.Equal(t, byte(9), u.Bytes()[256])
	assert.Equal(t, byte(0), u.Bytes()[4])
}

func TestUniformBuffer_OverflowPanics(t *testing.T) {
	u := NewUniformBuffer(4, 4, 1)
	u.BeginCell(0)
	assert.Panics(t, func() {
		u.Write([]byte{1, 2, 3, 4, 5})
	})
}

func TestPutGetFloat32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	PutFloat32(buf, 3.14159)
	assert.InDelta(t, float32(3.14159), GetFloat32(buf), 1e-5)
}

func TestPutGetUint32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	PutUint32(buf, 0xdeadbeef)
	assert.Equal(t, uint32(0xdeadbeef), GetUint32(buf))
}
