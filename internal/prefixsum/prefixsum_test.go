package prefixsum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelgi/pipeline/internal/technique"
)

func TestNewEngine_LevelsShrinkGeometrically(t *testing.T) {
	e := NewEngine(64, 64, 64)
	require.NotEmpty(t, e.VectorPrefixSumNumElement)
	for i := 1; i < len(e.VectorPrefixSumNumElement); i++ {
		assert.LessOrEqual(t, e.VectorPrefixSumNumElement[i], e.VectorPrefixSumNumElement[i-1])
	}
	assert.LessOrEqual(t, len(e.VectorPrefixSumNumElement), MaxLevels+1)
}

func TestEngine_FullPassVisitsEveryLevelExactlyOnce(t *testing.T) {
	e := NewEngine(64, 64, 64)
	ctx := technique.NewContext()
	require.NoError(t, e.Init(ctx))

	reduceCalls := 0
	sweepCalls := 0
	scattered := false
	completed := false

	e.DispatchReduceLevel = func(level int, n uint32) { reduceCalls++ }
	e.DispatchSweepLevel = func(level int, n uint32) { sweepCalls++ }
	e.DispatchScatter = func(m uint32) { scattered = true }
	e.ReadFinalAccumulator = func() uint32 { return 12345 }
	ctx.Signals.Connect(technique.SignalPrefixSumComplete, func(any) { completed = true })

	ctx.Signals.Emit(technique.SignalVoxelizationComplete, nil)
	require.True(t, e.Flags().NeedsToRecord)

	for e.Flags().NeedsToRecord {
		_, err := e.Record(ctx, 0)
		require.NoError(t, err)
	}

	assert.Equal(t, len(e.VectorPrefixSumNumElement), reduceCalls)
	assert.Equal(t, int(e.NumberStepsDownSweep), sweepCalls)
	assert.True(t, scattered)
	assert.Equal(t, StepFinished, e.CurrentPhase)
	assert.Equal(t, uint32(12345), e.FirstIndexOccupiedElement)

	resizedTo := uint32(0)
	e.ResizeDownstream = func(m uint32) { resizedTo = m }
	e.PostCommandSubmit(ctx)
	assert.True(t, completed)
	assert.Equal(t, uint32(12345), resizedTo)
}

func TestEngine_CompleteSignalFiresAfterResize(t *testing.T) {
	e := NewEngine(64, 64, 64)
	ctx := technique.NewContext()
	require.NoError(t, e.Init(ctx))
	e.ReadFinalAccumulator = func() uint32 { return 10 }

	resizedBeforeSignal := false
	ctx.Signals.Connect(technique.SignalPrefixSumComplete, func(any) {
		assert.True(t, resizedBeforeSignal, "downstream buffers must be resized before the complete signal fires")
	})

	ctx.Signals.Emit(technique.SignalVoxelizationComplete, nil)
	for e.Flags().NeedsToRecord {
		_, _ = e.Record(ctx, 0)
	}
	e.ResizeDownstream = func(m uint32) { resizedBeforeSignal = true }
	e.PostCommandSubmit(ctx)
}

// TestNewEngine_TrailingSingletonLevelSkipsTrivialDownSweep exercises
// spec scenario (f): a voxelization small enough that the first
// reduction level already collapses to a single accumulator cell on the
// very next level, so the final down-sweep step over that level is
// redundant and skipped, matching slotVoxelizationComplete's trailing
// scan in the original.
func TestNewEngine_TrailingSingletonLevelSkipsTrivialDownSweep(t *testing.T) {
	e := NewEngine(150, 1, 1) // 150/128 -> level0=2, level1=1
	require.Equal(t, []uint32{2, 1}, e.VectorPrefixSumNumElement)
	assert.True(t, e.FirstSetIsSingleElement)
	assert.Equal(t, uint32(2), e.NumberStepsReduce)
	assert.Equal(t, uint32(1), e.NumberStepsDownSweep, "the trailing singleton level's down-sweep is skipped")

	ctx := technique.NewContext()
	require.NoError(t, e.Init(ctx))
	sweepCalls := 0
	e.DispatchReduceLevel = func(level int, n uint32) {}
	e.DispatchSweepLevel = func(level int, n uint32) { sweepCalls++ }
	e.DispatchScatter = func(m uint32) {}
	e.ReadFinalAccumulator = func() uint32 { return 1 }

	ctx.Signals.Emit(technique.SignalVoxelizationComplete, nil)
	for e.Flags().NeedsToRecord {
		_, err := e.Record(ctx, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, sweepCalls)
}

// TestNewEngine_SingleLevelHasNoTrailingSingletonToSkip covers a
// voxelization so small it never exceeds ElementsPerThread in the first
// place: there is no level above 1 to check against, so the flag stays
// false and nothing is skipped.
func TestNewEngine_SingleLevelHasNoTrailingSingletonToSkip(t *testing.T) {
	e := NewEngine(10, 1, 1)
	require.Equal(t, []uint32{1}, e.VectorPrefixSumNumElement)
	assert.False(t, e.FirstSetIsSingleElement)
	assert.Equal(t, uint32(1), e.NumberStepsDownSweep)
}
