// Package cluster implements the four-stage Clusterization Pipeline of
// spec §4.6, grounded on
// original_source/source/rastertechnique/clusterizationtechnique.cpp
// (ClusterizationTechnique) and its companions
// clusterizationpreparetechnique.cpp / clusterizationcomputeneighbourtechnique.cpp:
// a k-means-like grouping of occupied voxels into K ~= (V^3/target)^(1/3)
// superpixel clusters, iterated CLUSTERIZATION_NUM_ITERATION times, then
// a bounded neighbor-graph pass.
package cluster

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelgi/pipeline/internal/gpu"
	"github.com/voxelgi/pipeline/internal/technique"
)

// MaxNeighbours bounds Cluster.NeighborIndices, per spec §3
// "neighbor_indices[MAX_N]".
const MaxNeighbours = 26

// Cluster mirrors spec §3's Cluster record exactly.
type Cluster struct {
	MinAABB        mgl32.Vec3
	MaxAABB        mgl32.Vec3
	CenterAABB     mgl32.Vec3 // w = voxel_count, tracked separately below
	VoxelCount     uint32
	MainDirection  mgl32.Vec3
	Index          int32
	NeighborCount  uint32
	NeighborIndices [MaxNeighbours]int32
}

// TargetClusterSize is the divisor used to derive K from V^3, per spec
// §4.6 "K ~= pow(V^3 / target, 1/3)". The original ties this to a material
// constant; kept as a tunable here since no config key names it explicitly.
const TargetClusterSize = 64

// ComputeK and ComputeStep implement spec §4.6's superpixel sizing math.
func ComputeK(voxelizationSize int) int {
	k := math.Cbrt(float64(voxelizationSize) / float64(TargetClusterSize))
	return int(math.Max(1, math.Round(k)))
}

func ComputeStep(voxelizationSize, k int) float64 {
	if k == 0 {
		return 0
	}
	return math.Cbrt(float64(voxelizationSize) / float64(k))
}

// PrepareTechnique is ClusterizationPrepareTechnique: per compacted voxel,
// a mean curvature estimate and mean normal, consumed by MainTechnique's
// distance metric.
type PrepareTechnique struct {
	technique.Base

	MeanCurvatureBuffer gpu.Buffer
	MeanNormalBuffer    gpu.Buffer

	Dispatch func(numOccupiedVoxels uint32)
}

func NewPrepareTechnique() *PrepareTechnique {
	return &PrepareTechnique{Base: technique.NewBase("clusterization_prepare")}
}

func (t *PrepareTechnique) Init(ctx *technique.Context) error {
	ctx.Signals.Connect(technique.SignalPrefixSumComplete, func(v any) {
		t.Flags().Active = true
		t.Flags().NeedsToRecord = true
	})
	return nil
}
func (t *PrepareTechnique) Prepare(ctx *technique.Context, dt float32) {}
func (t *PrepareTechnique) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	if t.Dispatch != nil {
		t.Dispatch(0)
	}
	t.Flags().NeedsToRecord = false
	return &technique.CommandBuffer{ID: technique.NewCommandBufferID(), Queue: technique.QueueCompute}, nil
}
func (t *PrepareTechnique) PostCommandSubmit(ctx *technique.Context) {
	ctx.Signals.Emit("clusterization_prepare_complete", nil)
}

// MainTechnique is ClusterizationTechnique's k-means-like loop: init
// distances to +inf, assign each voxel to its nearest center within a
// local window of size Step, accumulate positions/normals per cluster,
// recompute centers, for NumIterations push-constant-indexed passes.
type MainTechnique struct {
	technique.Base

	VoxelClusterOwnerIndexBuffer    gpu.Buffer // m_voxelClusterOwnerIndexBuffer
	VoxelClusterOwnerDistanceBuffer gpu.Buffer // m_voxelClusterOwnerDistanceBuffer
	ClusterizationCenterCoordinatesBuffer gpu.Buffer
	ClusterizationCenterCountsBuffer      gpu.Buffer

	K                int
	Step             float64
	NumIterations    int
	IterationCounter int

	DispatchInitDistance func()
	DispatchAssign       func(iteration int)
	DispatchAddUp        func()
	DispatchNewCenter    func(iteration int)
}

func NewMainTechnique(voxelizationSize, numIterations int) *MainTechnique {
	k := ComputeK(voxelizationSize)
	return &MainTechnique{
		Base:          technique.NewBase("clusterization_main"),
		K:             k,
		Step:          ComputeStep(voxelizationSize, k),
		NumIterations: numIterations,
	}
}

func (t *MainTechnique) Init(ctx *technique.Context) error {
	ctx.Signals.Connect("clusterization_prepare_complete", func(v any) {
		t.Flags().Active = true
		t.Flags().NeedsToRecord = true
		t.IterationCounter = 0
	})
	return nil
}
func (t *MainTechnique) Prepare(ctx *technique.Context, dt float32) {}

// Record dispatches exactly one k-means iteration per call: assign, add
// up, recompute centers. The first call also dispatches init-distance.
func (t *MainTechnique) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	if t.IterationCounter == 0 && t.DispatchInitDistance != nil {
		t.DispatchInitDistance()
	}
	if t.DispatchAssign != nil {
		t.DispatchAssign(t.IterationCounter)
	}
	if t.DispatchAddUp != nil {
		t.DispatchAddUp()
	}
	if t.DispatchNewCenter != nil {
		t.DispatchNewCenter(t.IterationCounter)
	}
	t.IterationCounter++
	if t.IterationCounter >= t.NumIterations {
		t.Flags().NeedsToRecord = false
	}
	return &technique.CommandBuffer{ID: technique.NewCommandBufferID(), Queue: technique.QueueCompute}, nil
}
func (t *MainTechnique) PostCommandSubmit(ctx *technique.Context) {
	if !t.Flags().NeedsToRecord {
		ctx.Signals.Emit("clusterization_main_complete", nil)
	}
}

// BuildFinalBufferTechnique emits the ClusterData array: AABB, center,
// voxel count, main direction, per spec §4.6 stage 3.
type BuildFinalBufferTechnique struct {
	technique.Base

	ClusterDataBuffer gpu.Buffer
	Clusters          []Cluster

	Dispatch func()
}

func NewBuildFinalBufferTechnique() *BuildFinalBufferTechnique {
	return &BuildFinalBufferTechnique{Base: technique.NewBase("clusterization_build_final_buffer")}
}

func (t *BuildFinalBufferTechnique) Init(ctx *technique.Context) error {
	ctx.Signals.Connect("clusterization_main_complete", func(v any) {
		t.Flags().Active = true
		t.Flags().NeedsToRecord = true
	})
	return nil
}
func (t *BuildFinalBufferTechnique) Prepare(ctx *technique.Context, dt float32) {}
func (t *BuildFinalBufferTechnique) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	if t.Dispatch != nil {
		t.Dispatch()
	}
	t.Flags().NeedsToRecord = false
	return &technique.CommandBuffer{ID: technique.NewCommandBufferID(), Queue: technique.QueueCompute}, nil
}
func (t *BuildFinalBufferTechnique) PostCommandSubmit(ctx *technique.Context) {
	ctx.Signals.Emit("clusterization_build_final_buffer_complete", t.Clusters)
}

// ComputeNeighboursTechnique is ClusterizationComputeNeighbourTechnique:
// for each compacted cluster, scan candidates whose AABBs overlap an
// expanded window and fill a bounded neighbor list.
type ComputeNeighboursTechnique struct {
	technique.Base

	ExpandFactor float32
	Dispatch     func()
}

func NewComputeNeighboursTechnique(expandFactor float32) *ComputeNeighboursTechnique {
	return &ComputeNeighboursTechnique{
		Base:         technique.NewBase("clusterization_compute_neighbours"),
		ExpandFactor: expandFactor,
	}
}

func (t *ComputeNeighboursTechnique) Init(ctx *technique.Context) error {
	ctx.Signals.Connect("clusterization_build_final_buffer_complete", func(v any) {
		t.Flags().Active = true
		t.Flags().NeedsToRecord = true
	})
	return nil
}
func (t *ComputeNeighboursTechnique) Prepare(ctx *technique.Context, dt float32) {}
func (t *ComputeNeighboursTechnique) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	if t.Dispatch != nil {
		t.Dispatch()
	}
	t.Flags().NeedsToRecord = false
	return &technique.CommandBuffer{ID: technique.NewCommandBufferID(), Queue: technique.QueueCompute}, nil
}
func (t *ComputeNeighboursTechnique) PostCommandSubmit(ctx *technique.Context) {
	ctx.Signals.Emit(technique.SignalClusterizationComplete, nil)
}

// AABBOverlaps reports whether two AABBs, expanded by factor around their
// centers, overlap — the candidate test ComputeNeighboursTechnique runs
// per cluster pair.
func AABBOverlaps(aMin, aMax, bMin, bMax mgl32.Vec3, factor float32) bool {
	expand := func(min, max mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
		center := min.Add(max).Mul(0.5)
		half := max.Sub(min).Mul(0.5 * factor)
		return center.Sub(half), center.Add(half)
	}
	aMin, aMax = expand(aMin, aMax)
	bMin, bMax = expand(bMin, bMax)
	return aMin.X() <= bMax.X() && aMax.X() >= bMin.X() &&
		aMin.Y() <= bMax.Y() && aMax.Y() >= bMin.Y() &&
		aMin.Z() <= bMax.Z() && aMax.Z() >= bMin.Z()
}
