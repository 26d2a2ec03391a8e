// Package camera implements spec §3's Camera/Scene camera set and §9's
// folded-in camera manager (originally camera/cameramanager.*): kind in
// {first-person, arc-ball}, dirty-signal semantics, and frustum-plane
// extraction. Grounded on rt/core/camera.go's CameraState
// (GetForward/GetRight/GetViewMatrix/ExtractFrustum), generalized with
// an arc-ball mode and the recorded-camera override spec §3/§6 describe.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelgi/pipeline/internal/registry"
)

// Kind selects the camera's control scheme, per spec §3.
type Kind int

const (
	FirstPerson Kind = iota
	ArcBall
)

// Recorded is one entry of the persisted recorded-camera format (spec §6):
// pos/lookAt/up/right plus the view/proj matrices captured at record time.
type Recorded struct {
	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	Right    mgl32.Vec3
	View     mgl32.Mat4
	Proj     mgl32.Mat4
}

// Camera is spec §3's Camera record. It embeds registry.Header so it can
// be stored in a registry.Registry[Camera] alongside every other named
// resource kind (spec §4.2's operations apply uniformly).
type Camera struct {
	registry.Header
	Kind Kind

	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	Right    mgl32.Vec3

	Yaw, Pitch float32

	FOV, Near, Far float32

	// Arc-ball specific state.
	ArcBallDistance float32
	ArcBallTarget   mgl32.Vec3

	RecordedOverride bool
	RecordedIndex    int
	Recordings       []Recorded

	AnimationActive bool
	AnimationElapsed float32

	prevPosition mgl32.Vec3
	prevLookAt   mgl32.Vec3

	Dirty *registry.Signal[*Camera]
}

func New(name string, kind Kind) *Camera {
	c := &Camera{
		Header: registry.NewHeader(name, "camera"),
		Kind:   kind,
		Up:     mgl32.Vec3{0, 0, 1},
		FOV:    60,
		Near:   0.1,
		Far:    1000,
		Dirty:  registry.NewSignal[*Camera](),
	}
	return c
}

// Forward mirrors CameraState.GetForward's Z-up convention exactly.
func (c *Camera) Forward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
	}
}

func (c *Camera) RightVec() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(-math.Sin(float64(c.Yaw))),
		float32(math.Cos(float64(c.Yaw))),
		0,
	}
}

// ViewMatrix returns the recorded override's view if RecordedOverride is
// set, otherwise derives it from the live camera kind.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	if c.RecordedOverride && c.RecordedIndex < len(c.Recordings) {
		return c.Recordings[c.RecordedIndex].View
	}
	switch c.Kind {
	case ArcBall:
		eye := c.ArcBallTarget.Add(c.Forward().Mul(-c.ArcBallDistance))
		return mgl32.LookAtV(eye, c.ArcBallTarget, mgl32.Vec3{0, 0, 1})
	default:
		eye := c.Position
		target := eye.Add(c.Forward())
		return mgl32.LookAtV(eye, target, mgl32.Vec3{0, 0, 1})
	}
}

// ProjMatrix returns the recorded override's projection if set, otherwise
// a perspective matrix from FOV/Near/Far at the given aspect ratio.
func (c *Camera) ProjMatrix(aspect float32) mgl32.Mat4 {
	if c.RecordedOverride && c.RecordedIndex < len(c.Recordings) {
		return c.Recordings[c.RecordedIndex].Proj
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// ViewProj is ViewMatrix and ProjMatrix combined, the form ExtractFrustum
// consumes.
func (c *Camera) ViewProj(aspect float32) mgl32.Mat4 {
	return c.ProjMatrix(aspect).Mul4(c.ViewMatrix())
}

// CommitFrame updates previous-position bookkeeping and fires Dirty if
// position or lookAt changed since the last call — spec §3: "a 'dirty'
// signal fires on any position/lookAt change."
func (c *Camera) CommitFrame() {
	lookAt := c.Position.Add(c.Forward())
	if c.prevPosition != c.Position || c.prevLookAt != lookAt {
		c.prevPosition = c.Position
		c.prevLookAt = lookAt
		c.Dirty.Emit(c)
	}
}

// ExtractFrustum derives the 6 unit-normalized frustum planes from vp,
// in order Left, Right, Bottom, Top, Near, Far — exactly
// rt/core/camera.go's ExtractFrustum, generalized off the CameraState
// receiver so any Camera kind can reuse it.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	planes[0] = mgl32.Vec4{vp.At(3, 0) + vp.At(0, 0), vp.At(3, 1) + vp.At(0, 1), vp.At(3, 2) + vp.At(0, 2), vp.At(3, 3) + vp.At(0, 3)}
	planes[1] = mgl32.Vec4{vp.At(3, 0) - vp.At(0, 0), vp.At(3, 1) - vp.At(0, 1), vp.At(3, 2) - vp.At(0, 2), vp.At(3, 3) - vp.At(0, 3)}
	planes[2] = mgl32.Vec4{vp.At(3, 0) + vp.At(1, 0), vp.At(3, 1) + vp.At(1, 1), vp.At(3, 2) + vp.At(1, 2), vp.At(3, 3) + vp.At(1, 3)}
	planes[3] = mgl32.Vec4{vp.At(3, 0) - vp.At(1, 0), vp.At(3, 1) - vp.At(1, 1), vp.At(3, 2) - vp.At(1, 2), vp.At(3, 3) - vp.At(1, 3)}
	planes[4] = mgl32.Vec4{vp.At(3, 0) + vp.At(2, 0), vp.At(3, 1) + vp.At(2, 1), vp.At(3, 2) + vp.At(2, 2), vp.At(3, 3) + vp.At(2, 3)}
	planes[5] = mgl32.Vec4{vp.At(3, 0) - vp.At(2, 0), vp.At(3, 1) - vp.At(2, 1), vp.At(3, 2) - vp.At(2, 2), vp.At(3, 3) - vp.At(2, 3)}

	for i := range planes {
		length := float32(math.Sqrt(float64(
			planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2],
		)))
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}

// Registry multiplexes several camera instances (main + per-emitter +
// recorded) through one named store, folding in the original's
// camera/cameramanager.* per spec's Supplemented features section.
type Registry = registry.Registry[Camera]

func NewRegistry() *Registry {
	return registry.NewRegistry(func(c *Camera) *registry.Header { return &c.Header })
}
