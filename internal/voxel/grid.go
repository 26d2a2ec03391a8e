// Package voxel implements the dense logical voxel grid and the
// hashed-index math of spec §3 "Voxelization grid": side V, hashed index
// h = x*V^2 + y*V + z, a packed occupancy bitset, and the
// world<->voxel coordinate round trip used by every downstream
// technique. Grounded on the bit-packed occupancy style of
// rt/volume/xbrickmap.go's Brick.OccupancyMask64, generalized from a
// fixed 4^3 brick to an arbitrary side V.
package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const MaxU32 = math.MaxUint32

// Grid is the dense logical V x V x V space. It does not itself hold GPU
// buffers (that is internal/voxelization's job); it is the pure host-side
// coordinate/hash math shared by voxelization, clusterization and
// lighting.
type Grid struct {
	Side   int     // V
	Origin mgl32.Vec3
	Extent float32 // world-space size of one grid side
}

func NewGrid(side int, origin mgl32.Vec3, extent float32) Grid {
	return Grid{Side: side, Origin: origin, Extent: extent}
}

func (g Grid) cellSize() float32 {
	return g.Extent / float32(g.Side)
}

// Hash computes h = x*V^2 + y*V + z per spec §3. Coordinates must already
// be in [0, V).
func (g Grid) Hash(x, y, z int) uint32 {
	v := g.Side
	return uint32(x*v*v + y*v + z)
}

// Unhash is the inverse of Hash.
func (g Grid) Unhash(h uint32) (x, y, z int) {
	v := g.Side
	idx := int(h)
	x = idx / (v * v)
	rem := idx % (v * v)
	y = rem / v
	z = rem % v
	return
}

// WorldToVoxel maps a world-space position to integer grid coordinates.
// Returns ok=false if the position falls outside the grid's AABB.
func (g Grid) WorldToVoxel(p mgl32.Vec3) (x, y, z int, ok bool) {
	cs := g.cellSize()
	local := p.Sub(g.Origin)
	fx := local.X() / cs
	fy := local.Y() / cs
	fz := local.Z() / cs
	x = int(math.Floor(float64(fx)))
	y = int(math.Floor(float64(fy)))
	z = int(math.Floor(float64(fz)))
	if x < 0 || y < 0 || z < 0 || x >= g.Side || y >= g.Side || z >= g.Side {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

// VoxelToWorld returns the world-space center of voxel (x,y,z).
func (g Grid) VoxelToWorld(x, y, z int) mgl32.Vec3 {
	cs := g.cellSize()
	return mgl32.Vec3{
		g.Origin.X() + (float32(x)+0.5)*cs,
		g.Origin.Y() + (float32(y)+0.5)*cs,
		g.Origin.Z() + (float32(z)+0.5)*cs,
	}
}

// OccupancyBits is the packed `occupied_bits` bitset of spec §3: one bit
// per voxel, 32 bits per word.
type OccupancyBits struct {
	Words []uint32
	Count int // total bit capacity (V^3)
}

func NewOccupancyBits(count int) *OccupancyBits {
	return &OccupancyBits{
		Words: make([]uint32, (count+31)/32),
		Count: count,
	}
}

func (o *OccupancyBits) Set(h uint32) {
	o.Words[h/32] |= 1 << (h % 32)
}

func (o *OccupancyBits) IsSet(h uint32) bool {
	return o.Words[h/32]&(1<<(h%32)) != 0
}

// BitCount is popcount over all words, used by the §8 invariant
// bitcount(occupied_bits) == first_index_occupied_element.
func (o *OccupancyBits) BitCount() int {
	n := 0
	for _, w := range o.Words {
		n += popcount32(w)
	}
	return n
}

func popcount32(w uint32) int {
	n := 0
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}
