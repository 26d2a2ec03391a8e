package voxelization

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelgi/pipeline/internal/technique"
	"github.com/voxelgi/pipeline/internal/voxel"
)

func newTestTechnique() *Technique {
	grid := voxel.NewGrid(64, mgl32.Vec3{-32, -32, -32}, 64)
	return NewTechnique(grid, mgl32.Vec3{-10, -10, -10}, mgl32.Vec3{10, 10, 10})
}

func TestTechnique_EmptySceneSkipsSecondPassButStillCompletes(t *testing.T) {
	tq := newTestTechnique()
	ctx := technique.NewContext()
	require.NoError(t, tq.Init(ctx))

	secondPassRan := false
	tq.DispatchSecondPass = func() { secondPassRan = true }
	tq.ReadFragmentCounter = func() (uint32, uint32) { return 0, 0 }

	completedWith := uint32(99)
	ctx.Signals.Connect(technique.SignalVoxelizationComplete, func(v any) {
		completedWith = v.(uint32)
	})

	_, err := tq.Record(ctx, 0) // StepInit -> StepFirstSubmitted
	require.NoError(t, err)
	_, err = tq.Record(ctx, 0) // StepFirstSubmitted sees 0 fragments -> finishes
	require.NoError(t, err)

	assert.False(t, secondPassRan)
	assert.Equal(t, uint32(0), completedWith)
	assert.False(t, tq.Flags().NeedsToRecord)
}

func TestTechnique_NonEmptySceneRunsBothPasses(t *testing.T) {
	tq := newTestTechnique()
	ctx := technique.NewContext()
	require.NoError(t, tq.Init(ctx))

	firstPassRan, secondPassRan := false, false
	tq.DispatchFirstPass = func() { firstPassRan = true }
	tq.DispatchSecondPass = func() { secondPassRan = true }
	tq.ReadFragmentCounter = func() (uint32, uint32) { return 500, 120 }

	var completed uint32
	ctx.Signals.Connect(technique.SignalVoxelizationComplete, func(v any) { completed = v.(uint32) })

	for tq.Flags().NeedsToRecord {
		_, err := tq.Record(ctx, 0)
		require.NoError(t, err)
	}

	assert.True(t, firstPassRan)
	assert.True(t, secondPassRan)
	assert.Equal(t, uint32(120), completed)
	assert.Equal(t, StepFinished, tq.CurrentStep)
}

func TestNewTechnique_ViewsLookAlongDistinctAxes(t *testing.T) {
	tq := newTestTechnique()
	assert.NotEqual(t, tq.ViewX, tq.ViewY)
	assert.NotEqual(t, tq.ViewY, tq.ViewZ)
}
