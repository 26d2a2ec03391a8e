// Package scene implements spec §3's Scene record: an ordered list of
// nodes with meshType flags, AABBs refreshed when a node moves, name
// lookup, a scene camera reference and the set of cameras (main +
// emitter + per-light). It also keeps the CPU-side frustum-culling step
// SPEC_FULL.md's Supplemented features section describes — the teacher
// runs an equivalent cull on the CPU in rt/core/scene.go's Commit
// before handing the visible set to the GPU-side technique graph.
//
// Grounded on rt/core/scene.go's VoxelObject/Scene/Commit/AABBInFrustum,
// generalized from a single voxel-brick object kind to the spec's
// meshType-tagged node list.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelgi/pipeline/internal/camera"
)

// MeshType tags what a Node represents, per spec §3.
type MeshType int

const (
	MeshRenderModel MeshType = iota
	MeshEmitterModel
	MeshLightVolume
	MeshDebug
)

func (m MeshType) String() string {
	switch m {
	case MeshRenderModel:
		return "render-model"
	case MeshEmitterModel:
		return "emitter-model"
	case MeshLightVolume:
		return "light-volume"
	case MeshDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// AABB is a min/max box in world space.
type AABB struct {
	Min, Max mgl32.Vec3
}

func (b AABB) valid() bool {
	return b.Min.X() <= b.Max.X() && b.Min.Y() <= b.Max.Y() && b.Min.Z() <= b.Max.Z()
}

// Node is one entry of the scene's ordered node list.
type Node struct {
	Name     string
	Kind     MeshType
	Position mgl32.Vec3
	Scale    mgl32.Vec3

	localMin, localMax mgl32.Vec3 // object-space bounds, set at load time

	aabb  AABB
	dirty bool
}

// NewNode builds a node with unit scale and an object-space box given by
// localMin/localMax (e.g. a voxelized model's brick-map extent).
func NewNode(name string, kind MeshType, localMin, localMax mgl32.Vec3) *Node {
	n := &Node{
		Name:     name,
		Kind:     kind,
		Scale:    mgl32.Vec3{1, 1, 1},
		localMin: localMin,
		localMax: localMax,
		dirty:    true,
	}
	return n
}

// MoveTo repositions the node and marks its AABB stale, per spec §3's
// "an AABB updated when a node moves."
func (n *Node) MoveTo(position mgl32.Vec3) {
	n.Position = position
	n.dirty = true
}

// Rescale mirrors rt/core/scene.go's RescaleObject: the teacher keeps the
// object visually stable in world space by shifting position by the
// object-space minimum corner scaled by the delta, rather than rescaling
// about the origin.
func (n *Node) Rescale(scale mgl32.Vec3) {
	shift := mgl32.Vec3{
		n.localMin.X() * (n.Scale.X() - scale.X()),
		n.localMin.Y() * (n.Scale.Y() - scale.Y()),
		n.localMin.Z() * (n.Scale.Z() - scale.Z()),
	}
	n.Position = n.Position.Add(shift)
	n.Scale = scale
	n.dirty = true
}

// AABB returns the node's current world-space bounds, refreshing them
// first if MoveTo/Rescale left them stale.
func (n *Node) AABB() AABB {
	if n.dirty {
		n.refreshAABB()
	}
	return n.aabb
}

func (n *Node) refreshAABB() {
	corners := [8]mgl32.Vec3{
		{n.localMin.X(), n.localMin.Y(), n.localMin.Z()},
		{n.localMax.X(), n.localMin.Y(), n.localMin.Z()},
		{n.localMin.X(), n.localMax.Y(), n.localMin.Z()},
		{n.localMax.X(), n.localMax.Y(), n.localMin.Z()},
		{n.localMin.X(), n.localMin.Y(), n.localMax.Z()},
		{n.localMax.X(), n.localMin.Y(), n.localMax.Z()},
		{n.localMin.X(), n.localMax.Y(), n.localMax.Z()},
		{n.localMax.X(), n.localMax.Y(), n.localMax.Z()},
	}

	inf := float32(1e20)
	wMin := mgl32.Vec3{inf, inf, inf}
	wMax := mgl32.Vec3{-inf, -inf, -inf}

	for _, c := range corners {
		wc := mgl32.Vec3{
			c.X()*n.Scale.X() + n.Position.X(),
			c.Y()*n.Scale.Y() + n.Position.Y(),
			c.Z()*n.Scale.Z() + n.Position.Z(),
		}
		wMin = mgl32.Vec3{min32(wMin.X(), wc.X()), min32(wMin.Y(), wc.Y()), min32(wMin.Z(), wc.Z())}
		wMax = mgl32.Vec3{max32(wMax.X(), wc.X()), max32(wMax.Y(), wc.Y()), max32(wMax.Z(), wc.Z())}
	}

	n.aabb = AABB{Min: wMin, Max: wMax}
	n.dirty = false
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Scene is spec §3's Scene record.
type Scene struct {
	Nodes   []*Node
	byName  map[string]*Node
	Cameras *camera.Registry

	// SceneCamera names the Cameras entry driving the main view, per
	// spec §3's "a scene camera reference".
	SceneCamera string

	Visible []*Node
}

func New() *Scene {
	return &Scene{
		byName:  make(map[string]*Node),
		Cameras: camera.NewRegistry(),
	}
}

// AddNode appends a node and indexes it by name. Names must be unique;
// a duplicate replaces the lookup entry but not the ordered list, matching
// the teacher's append-only Objects slice in rt/core/scene.go.
func (s *Scene) AddNode(n *Node) {
	s.Nodes = append(s.Nodes, n)
	s.byName[n.Name] = n
}

// RemoveNode removes the first node matching n by identity, per
// rt/core/scene.go's RemoveObject.
func (s *Scene) RemoveNode(n *Node) {
	for i, o := range s.Nodes {
		if o == n {
			s.Nodes = append(s.Nodes[:i], s.Nodes[i+1:]...)
			break
		}
	}
	if s.byName[n.Name] == n {
		delete(s.byName, n.Name)
	}
}

// Lookup finds a node by name, per spec §3's "a lookup by name".
func (s *Scene) Lookup(name string) (*Node, bool) {
	n, ok := s.byName[name]
	return n, ok
}

// WorldAABB returns the union of every node's AABB, or ok=false if the
// scene has no nodes.
func (s *Scene) WorldAABB() (AABB, bool) {
	if len(s.Nodes) == 0 {
		return AABB{}, false
	}
	inf := float32(1e20)
	result := AABB{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
	for _, n := range s.Nodes {
		b := n.AABB()
		result.Min = mgl32.Vec3{min32(result.Min.X(), b.Min.X()), min32(result.Min.Y(), b.Min.Y()), min32(result.Min.Z(), b.Min.Z())}
		result.Max = mgl32.Vec3{max32(result.Max.X(), b.Max.X()), max32(result.Max.Y(), b.Max.Y()), max32(result.Max.Z(), b.Max.Z())}
	}
	return result, true
}

// Commit refreshes every node's AABB and repopulates Visible with the
// nodes surviving frustum culling against planes, mirroring
// rt/core/scene.go's Commit (minus the Hi-Z occlusion pass, which is a
// GPU-buffer concern out of this package's scope — frustum culling alone
// is what SPEC_FULL.md keeps CPU-side).
func (s *Scene) Commit(planes [6]mgl32.Vec4) {
	s.Visible = s.Visible[:0]
	for _, n := range s.Nodes {
		b := n.AABB()
		if !b.valid() {
			continue
		}
		if !AABBInFrustum(b, planes) {
			continue
		}
		s.Visible = append(s.Visible, n)
	}
}

// AABBInFrustum reports whether b has any extent inside the frustum
// defined by planes (Left/Right/Bottom/Top/Near/Far, inward normals per
// camera.ExtractFrustum), translated byte-for-byte from
// rt/core/scene.go's AABBInFrustum ("positive vertex" test).
func AABBInFrustum(b AABB, planes [6]mgl32.Vec4) bool {
	for i := 0; i < 6; i++ {
		p := planes[i]

		var positive mgl32.Vec3
		if p[0] > 0 {
			positive[0] = b.Max.X()
		} else {
			positive[0] = b.Min.X()
		}
		if p[1] > 0 {
			positive[1] = b.Max.Y()
		} else {
			positive[1] = b.Min.Y()
		}
		if p[2] > 0 {
			positive[2] = b.Max.Z()
		} else {
			positive[2] = b.Min.Z()
		}

		dist := p[0]*positive[0] + p[1]*positive[1] + p[2]*positive[2] + p[3]
		if dist < 0 {
			return false
		}
	}
	return true
}

func (s *Scene) String() string {
	return fmt.Sprintf("scene{nodes=%d visible=%d}", len(s.Nodes), len(s.Visible))
}
