// Package prefixsum implements the parallel prefix-sum / stream
// compaction engine of spec §4.4, grounded field-for-field on
// original_source/include/rastertechnique/bufferprefixsumtechnique.h
// (BufferPrefixSumTechnique): the REDUCTION -> SWEEPDOWN -> LAST_STEP ->
// FINISHED state machine over a base array sized V^3 / elementsPerThread,
// up to 5 reduction levels, with a small staged readback of the final
// level's accumulator.
package prefixsum

import (
	"github.com/voxelgi/pipeline/internal/gpu"
	"github.com/voxelgi/pipeline/internal/invariant"
	"github.com/voxelgi/pipeline/internal/technique"
)

// Step mirrors PrefixSumStep from the original C++ header exactly.
type Step int

const (
	StepReduction Step = iota
	StepSweepdown
	StepLastStep
	StepFinished
)

// ElementsPerThread is the base fan-in per reduction level (spec §4.4).
const ElementsPerThread = 128

// MaxLevels bounds the reduction tree depth (spec §4.4: "up to 5").
const MaxLevels = 5

// Engine is BufferPrefixSumTechnique's Go counterpart: one compaction
// pass over a voxelization's first_index buffer into the compacted
// arrays downstream lighting/clusterization consume.
type Engine struct {
	technique.Base

	// Buffers, named after the original fields 1:1.
	PlanarBuffer                       gpu.Buffer // m_prefixSumPlanarBuffer: all reduction levels concatenated
	VoxelFirstIndexBuffer              gpu.Buffer // m_voxelFirstIndexBuffer
	VoxelFirstIndexCompactedBuffer     gpu.Buffer // m_voxelFirstIndexCompactedBuffer
	VoxelHashedPositionCompactedBuffer gpu.Buffer // m_voxelHashedPositionCompactedBuffer
	VoxelFirstIndexEmitterCompactedBuffer gpu.Buffer
	IndirectionIndexBuffer gpu.Buffer
	IndirectionRankBuffer  gpu.Buffer

	LightBounceVoxelIrradianceBuffer         gpu.Buffer
	LightBounceVoxelFilteredIrradianceBuffer gpu.Buffer
	LightBounceProcessedVoxelBuffer          gpu.Buffer

	// Readback is the staged-map cycle over the final reduction level,
	// wired by the caller to PlanarBuffer. The engine never calls it: the
	// final count comes only from ReadFinalAccumulator, when that is set.
	Readback *gpu.Readback

	// Scalars, 1:1 with the original's uint fields.
	FirstIndexOccupiedElement  uint32 // m_firstIndexOccupiedElement
	FragmentOccupiedCounter    uint32 // m_fragmentOccupiedCounter
	VoxelizationSize           uint32 // m_voxelizationSize = width*height*depth
	PrefixSumPlanarBufferSize  uint32
	VectorPrefixSumNumElement  []uint32 // size of each level's array
	NumElementAnalyzedPerThread uint32
	CurrentStep                uint32
	NumberStepsReduce           uint32
	NumberStepsDownSweep        uint32
	FirstSetIsSingleElement     bool
	CompactionStepDone          bool
	IndirectionBufferRange      uint32
	VoxelizationWidth           uint32
	VoxelizationHeight          uint32
	VoxelizationDepth           uint32

	CurrentPhase Step

	// DispatchReduceLevel/DispatchSweepLevel/DispatchScatter and
	// ReadFinalAccumulator are injected so the engine can be driven and
	// unit tested without a live wgpu.Device; a nil closure is skipped.
	// cmd/voxelgi leaves all four nil.
	DispatchReduceLevel func(level int, numElements uint32)
	DispatchSweepLevel  func(level int, numElements uint32)
	DispatchScatter     func(numOccupied uint32)
	ReadFinalAccumulator func() uint32

	// ResizeDownstream is called once from PostCommandSubmit, before the
	// completion signal fires, with the final occupied-element count M.
	// Kept as a field rather than a PostCommandSubmit parameter so *Engine
	// satisfies technique.Technique directly.
	ResizeDownstream func(m uint32)
}

// NewEngine sizes the level array from the voxelization width/height/depth,
// mirroring the original's constructor-time level computation.
func NewEngine(width, height, depth uint32) *Engine {
	e := &Engine{Base: technique.NewBase("prefix_sum")}
	e.VoxelizationWidth = width
	e.VoxelizationHeight = height
	e.VoxelizationDepth = depth
	e.VoxelizationSize = width * height * depth
	e.NumElementAnalyzedPerThread = ElementsPerThread
	e.computeLevels()
	e.CurrentPhase = StepReduction
	return e
}

func (e *Engine) computeLevels() {
	size := (e.VoxelizationSize + ElementsPerThread - 1) / ElementsPerThread
	levels := make([]uint32, 0, MaxLevels)
	for size > 1 && len(levels) < MaxLevels {
		levels = append(levels, size)
		size = (size + ElementsPerThread - 1) / ElementsPerThread
	}
	levels = append(levels, size) // final, usually-1-or-few-cells level
	e.VectorPrefixSumNumElement = levels
	e.NumberStepsReduce = uint32(len(levels))
	e.NumberStepsDownSweep = uint32(len(levels))

	// Mirror slotVoxelizationComplete's trailing-singleton scan: walk the
	// levels from the end looking for the last one with more than one
	// element. If the level right after it holds exactly one element,
	// that trailing level is a trivial accumulator already reduced to a
	// single cell, and its down-sweep step can be skipped.
	posBig := -1
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i] > 1 {
			posBig = i
			break
		}
	}
	if posBig >= 0 && posBig+1 < len(levels) && levels[posBig+1] == 1 {
		e.FirstSetIsSingleElement = true
		e.NumberStepsDownSweep--
	}

	total := uint32(0)
	for _, l := range levels {
		total += l
	}
	e.PrefixSumPlanarBufferSize = total
}

// Init subscribes to the upstream voxelization_complete signal, per
// spec §4.4/§4.5: the engine only runs after voxelization finishes.
func (e *Engine) Init(ctx *technique.Context) error {
	ctx.Signals.Connect(technique.SignalVoxelizationComplete, func(any) {
		e.Flags().Active = true
		e.Flags().NeedsToRecord = true
		e.CurrentPhase = StepReduction
		e.CurrentStep = 0
	})
	return nil
}

func (e *Engine) Prepare(ctx *technique.Context, dt float32) {}

// Record advances the state machine by exactly one dispatch, matching
// the original's "no host-side loops inside the GPU work" contract: one
// call to Record corresponds to one level's reduce, sweep, or the single
// scatter dispatch.
func (e *Engine) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	id := technique.NewCommandBufferID()
	switch e.CurrentPhase {
	case StepReduction:
		level := int(e.CurrentStep)
		if e.DispatchReduceLevel != nil {
			e.DispatchReduceLevel(level, e.VectorPrefixSumNumElement[level])
		}
		e.CurrentStep++
		if e.CurrentStep >= e.NumberStepsReduce {
			e.advanceToSweepdown()
		}
	case StepSweepdown:
		level := int(e.NumberStepsDownSweep) - 1 - int(e.CurrentStep)
		if e.DispatchSweepLevel != nil {
			e.DispatchSweepLevel(level, e.VectorPrefixSumNumElement[level])
		}
		e.CurrentStep++
		if e.CurrentStep >= e.NumberStepsDownSweep {
			e.CurrentPhase = StepLastStep
			e.CurrentStep = 0
		}
	case StepLastStep:
		if e.DispatchScatter != nil {
			e.DispatchScatter(e.FirstIndexOccupiedElement)
		}
		e.CompactionStepDone = true
		e.CurrentPhase = StepFinished
	case StepFinished:
		e.Flags().NeedsToRecord = false
	}
	return &technique.CommandBuffer{ID: id, Queue: technique.QueueCompute}, nil
}

// advanceToSweepdown is the REDUCTION -> SWEEPDOWN transition of spec
// §4.4's table: read back the final level's accumulator to learn M,
// the total occupied count, before any down-sweep dispatch runs.
func (e *Engine) advanceToSweepdown() {
	if e.ReadFinalAccumulator != nil {
		e.FirstIndexOccupiedElement = e.ReadFinalAccumulator()
	}
	invariant.Check(e.FirstIndexOccupiedElement <= e.VoxelizationSize,
		"occupied element count %d exceeds voxelization size %d", e.FirstIndexOccupiedElement, e.VoxelizationSize)
	e.CurrentPhase = StepSweepdown
	e.CurrentStep = 0
}

// PostCommandSubmit resizes downstream buffers to M entries exactly once,
// before emitting prefix_sum_complete — spec §4.4's ordering guarantee
// ("the complete signal fires after downstream buffers have been resized").
func (e *Engine) PostCommandSubmit(ctx *technique.Context) {
	if e.CurrentPhase != StepFinished || !e.CompactionStepDone {
		return
	}
	if e.ResizeDownstream != nil {
		e.ResizeDownstream(e.FirstIndexOccupiedElement)
	}
	ctx.Signals.Emit(technique.SignalPrefixSumComplete, e.FirstIndexOccupiedElement)
	e.CompactionStepDone = false
}
