// Package voxelization implements the Voxelization Technique of spec
// §4.5, grounded field-for-field on
// original_source/include/rastertechnique/scenevoxelizationtechnique.h
// (SceneVoxelizationTechnique): two conservative-rasterization passes
// from the three principal axes — the first counts emitted fragments,
// the second stores per-fragment data once buffers are sized — driven by
// the VS_INIT -> VS_FIRST_CB_SUBMITTED -> VS_SECOND_CB_SUBMITTED steps
// named in spec §4.5.
package voxelization

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelgi/pipeline/internal/gpu"
	"github.com/voxelgi/pipeline/internal/technique"
	"github.com/voxelgi/pipeline/internal/voxel"
)

// Step mirrors VoxelizationStep, collapsed to the three transitions spec
// §4.5 actually names (the original's *_RECORDED/*_ACTION sub-states are
// internal bookkeeping the Go scheduler doesn't need to expose).
type Step int

const (
	StepInit Step = iota
	StepFirstSubmitted
	StepSecondSubmitted
	StepFinished
)

const MaxU32 = voxel.MaxU32

// PerFragmentData mirrors the original's PerFragmentData layout: position
// (xyz) + scene element index (w), normal (xyz) + emitted-fragment index
// (w), compressed reflectance/irradiance.
type PerFragmentData struct {
	Position         mgl32.Vec3
	SceneElementIndex uint32
	Normal           mgl32.Vec3
	FragmentIndex    uint32
	Reflectance      uint32
	AccumulatedIrradiance uint32
}

// Technique is SceneVoxelizationTechnique's Go counterpart.
type Technique struct {
	technique.Base

	Grid voxel.Grid

	VoxelizedSceneWidth  int
	VoxelizedSceneHeight int
	VoxelizedSceneDepth  int

	Projection mgl32.Mat4
	ViewX      mgl32.Mat4
	ViewY      mgl32.Mat4
	ViewZ      mgl32.Mat4

	VoxelOccupiedBuffer          gpu.Buffer
	VoxelFirstIndexBuffer        gpu.Buffer
	FragmentCounterBuffer        gpu.Buffer
	FragmentOccupiedCounterBuffer gpu.Buffer
	FragmentDataBuffer           gpu.Buffer
	FragmentIrradianceBuffer     gpu.Buffer
	NextFragmentIndexBuffer      gpu.Buffer
	EmitterBuffer                gpu.Buffer

	FragmentCounter         uint32
	FragmentOccupiedCounter uint32
	StoreInformation        float32 // 0 on pass 1, 1 on pass 2, per m_storeInformation

	CurrentStep Step

	// Injected dispatch/readback, mirroring internal/prefixsum's test seam.
	DispatchFirstPass  func()
	DispatchSecondPass func()
	ReadFragmentCounter func() (emitted, occupied uint32)
	ResizeFragmentBuffers func(fragmentCount uint32)
}

// NewTechnique builds the orthographic projection and three axis views
// enclosing sceneAABB, per spec §4.5 "Projection is an orthographic cube
// enclosing the scene AABB; three view matrices look along -X, -Y, -Z."
func NewTechnique(grid voxel.Grid, sceneMin, sceneMax mgl32.Vec3) *Technique {
	t := &Technique{Base: technique.NewBase("scene_voxelization"), Grid: grid}
	t.VoxelizedSceneWidth = grid.Side
	t.VoxelizedSceneHeight = grid.Side
	t.VoxelizedSceneDepth = grid.Side

	center := sceneMin.Add(sceneMax).Mul(0.5)
	half := sceneMax.Sub(sceneMin).Mul(0.5)
	extent := half.X()
	if half.Y() > extent {
		extent = half.Y()
	}
	if half.Z() > extent {
		extent = half.Z()
	}
	// Each eye sits 2*extent from center, so the AABB spans depths
	// [extent, 3*extent] along every view axis.
	t.Projection = mgl32.Ortho(-extent, extent, -extent, extent, extent, extent*3)
	t.ViewX = mgl32.LookAtV(center.Add(mgl32.Vec3{extent * 2, 0, 0}), center, mgl32.Vec3{0, 1, 0})
	t.ViewY = mgl32.LookAtV(center.Add(mgl32.Vec3{0, extent * 2, 0}), center, mgl32.Vec3{0, 0, 1})
	t.ViewZ = mgl32.LookAtV(center.Add(mgl32.Vec3{0, 0, extent * 2}), center, mgl32.Vec3{0, 1, 0})
	return t
}

func (t *Technique) Init(ctx *technique.Context) error {
	t.CurrentStep = StepInit
	t.Flags().Active = true
	t.Flags().NeedsToRecord = true
	return nil
}

func (t *Technique) Prepare(ctx *technique.Context, dt float32) {}

// Record advances exactly one pass per call. If the scene is empty the
// second pass is skipped and the complete signal still fires with 0
// fragments, per spec §4.5 failure behavior.
func (t *Technique) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	id := technique.NewCommandBufferID()
	switch t.CurrentStep {
	case StepInit:
		t.StoreInformation = 0
		if t.DispatchFirstPass != nil {
			t.DispatchFirstPass()
		}
		t.CurrentStep = StepFirstSubmitted
	case StepFirstSubmitted:
		if t.ReadFragmentCounter != nil {
			t.FragmentCounter, t.FragmentOccupiedCounter = t.ReadFragmentCounter()
		}
		if t.ResizeFragmentBuffers != nil {
			t.ResizeFragmentBuffers(t.FragmentCounter)
		}
		if t.FragmentCounter == 0 {
			t.CurrentStep = StepFinished
			t.Flags().NeedsToRecord = false
			ctx.Signals.Emit(technique.SignalVoxelizationComplete, uint32(0))
			break
		}
		t.StoreInformation = 1
		if t.DispatchSecondPass != nil {
			t.DispatchSecondPass()
		}
		t.CurrentStep = StepSecondSubmitted
	case StepSecondSubmitted:
		if t.ReadFragmentCounter != nil {
			_, t.FragmentOccupiedCounter = t.ReadFragmentCounter()
		}
		t.CurrentStep = StepFinished
		t.Flags().NeedsToRecord = false
		ctx.Signals.Emit(technique.SignalVoxelizationComplete, t.FragmentOccupiedCounter)
	case StepFinished:
		t.Flags().NeedsToRecord = false
	}
	return &technique.CommandBuffer{ID: id, Queue: technique.QueueGraphics}, nil
}

func (t *Technique) PostCommandSubmit(ctx *technique.Context) {}
