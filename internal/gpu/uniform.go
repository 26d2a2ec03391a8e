package gpu

// UniformBuffer is the spec's "cell-aligned uniform buffer": a host-side
// CPU mirror divided into N cells of at least cellSize bytes, each
// aligned to the device's minimum uniform buffer alignment, with a
// per-cell cursor that lets callers append typed data. Grounded on the
// fixed-size byte-buffer writes of rt/gpu/manager.go's UpdateCamera
// (which hand-rolls a single 256-byte cell); this generalizes that to N
// dynamically-offset cells for per-material/per-instance data (spec §4.3).
type UniformBuffer struct {
	cellSize   int // requested payload size per cell
	alignment  int // device minUniformBufferOffsetAlignment
	cellStride int // align_up(cellSize, alignment)
	data       []byte
	cursor     int // write cursor within the current cell, relative to its start
	cell       int // index of the cell currently being written
}

// NewUniformBuffer allocates numCells cells, each at least cellSize bytes,
// padded up to alignment per spec §4.3's dynamic_alignment formula.
func NewUniformBuffer(cellSize, alignment, numCells int) *UniformBuffer {
	stride := alignUp(cellSize, alignment)
	return &UniformBuffer{
		cellSize:   cellSize,
		alignment:  alignment,
		cellStride: stride,
		data:       make([]byte, stride*numCells),
	}
}

func alignUp(size, alignment int) int {
	if alignment <= 0 {
		return size
	}
	rem := size % alignment
	if rem == 0 {
		return size
	}
	return size + (alignment - rem)
}

// BeginCell selects cell for the next sequence of Write calls and resets
// its write cursor to the cell's start.
func (u *UniformBuffer) BeginCell(cell int) {
	u.cell = cell
	u.cursor = 0
}

// Write appends bytes at the current cursor within the current cell and
// advances the cursor. Panics if it would overflow the cell — a
// BufferSizeMismatch per spec §7, a programmer error rather than a
// recoverable condition.
func (u *UniformBuffer) Write(b []byte) {
	if u.cursor+len(b) > u.cellStride {
		panic("gpu: uniform buffer cell overflow")
	}
	start := u.cell*u.cellStride + u.cursor
	copy(u.data[start:], b)
	u.cursor += len(b)
}

// Offset returns the dynamic offset for cell, i.e. cell * dynamic_alignment.
func (u *UniformBuffer) Offset(cell int) uint64 {
	return uint64(cell * u.cellStride)
}

// Bytes returns the full CPU mirror, ready for a wholesale upload
// (spec: "a mirrored GPU buffer is updated wholesale in upload").
func (u *UniformBuffer) Bytes() []byte {
	return u.data
}

func (u *UniformBuffer) CellStride() int {
	return u.cellStride
}
