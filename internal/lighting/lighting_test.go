package lighting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelgi/pipeline/internal/camera"
	"github.com/voxelgi/pipeline/internal/technique"
)

func TestShadowMapTechnique_RerecordsOnEmitterCameraDirty(t *testing.T) {
	emitter := camera.New("emitter", camera.FirstPerson)
	emitter.CommitFrame() // baseline: the first commit always reports dirty
	s := NewShadowMapTechnique(emitter)
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))
	assert.True(t, s.Flags().NeedsToRecord, "renders once on load")

	renders := 0
	s.DispatchRender = func() { renders++ }
	_, err := s.Record(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, renders)
	assert.False(t, s.Flags().NeedsToRecord)

	emitter.CommitFrame() // no change yet -> no dirty
	assert.False(t, s.Flags().NeedsToRecord)

	emitter.Position = emitter.Position.Add(emitter.RightVec())
	emitter.CommitFrame()
	assert.True(t, s.Flags().NeedsToRecord)
}

func TestLitClusterTechnique_RunsThreePassesThenCompletes(t *testing.T) {
	l := NewLitClusterTechnique()
	ctx := technique.NewContext()
	require.NoError(t, l.Init(ctx))

	completed := 0
	ctx.Signals.Connect(technique.SignalLitClusterComplete, func(any) { completed++ })

	ctx.Signals.Emit(technique.SignalPrefixSumComplete, nil)
	require.True(t, l.Flags().NeedsToRecord)

	var resets, tests, processes int
	l.DispatchReset = func() { resets++ }
	l.DispatchTestVoxels = func() { tests++ }
	l.DispatchProcessResults = func() { processes++ }
	l.ReadCounters = func() (uint32, uint32) { return 3, 1 }

	for l.Flags().NeedsToRecord {
		_, err := l.Record(ctx, 0)
		require.NoError(t, err)
		l.PostCommandSubmit(ctx)
	}

	assert.Equal(t, 1, resets)
	assert.Equal(t, 1, tests)
	assert.Equal(t, 1, processes)
	assert.Equal(t, 1, completed)
	assert.Equal(t, uint32(3), l.LitClusterCounterValue)
	assert.Equal(t, uint32(1), l.LitToRasterVisibleClusterCounterValue)
}

func TestClusterVisibilityTechnique_ResizesOnPrefixSumThenRecordsOnMergeComplete(t *testing.T) {
	cv := NewClusterVisibilityTechnique(true)
	ctx := technique.NewContext()
	require.NoError(t, cv.Init(ctx))

	var resizedTo uint32
	cv.ResizeBuffers = func(n uint32) { resizedTo = n }

	ctx.Signals.Emit(technique.SignalPrefixSumComplete, uint32(40))
	assert.Equal(t, uint32(40), cv.NumOccupiedVoxel)
	assert.Equal(t, uint32(40), resizedTo)
	assert.False(t, cv.Flags().NeedsToRecord, "merge hasn't completed yet")

	ctx.Signals.Emit("clusterization_build_final_buffer_complete", nil)
	assert.True(t, cv.Flags().NeedsToRecord)

	var gotUseShadowMap bool
	cv.DispatchTestVisibility = func(useShadowMap bool) []uint32 {
		gotUseShadowMap = useShadowMap
		return []uint32{5, ClusterVisibilityUnset, 2, ClusterVisibilityUnset, 9}
	}
	completed := 0
	ctx.Signals.Connect("cluster_visibility_complete", func(any) { completed++ })

	_, err := cv.Record(ctx, 0)
	require.NoError(t, err)
	cv.PostCommandSubmit(ctx)

	assert.True(t, gotUseShadowMap)
	assert.Equal(t, []uint32{5, 2, 9}, cv.Compacted)
	assert.Equal(t, 1, completed)
}

func TestClusterVisibilityTechnique_DoesNotArmBeforePrefixSumHasRun(t *testing.T) {
	cv := NewClusterVisibilityTechnique(false)
	ctx := technique.NewContext()
	require.NoError(t, cv.Init(ctx))

	ctx.Signals.Emit("clusterization_build_final_buffer_complete", nil)
	assert.False(t, cv.Flags().NeedsToRecord)
}

func TestCompactVisibility_DropsUnsetSentinelsKeepingOrder(t *testing.T) {
	raw := []uint32{ClusterVisibilityUnset, 1, 2, ClusterVisibilityUnset, ClusterVisibilityUnset, 3}
	assert.Equal(t, []uint32{1, 2, 3}, CompactVisibility(raw))
}

func TestCameraVisibleVoxelTechnique_DoesNotReemitPrefixSumSignal(t *testing.T) {
	c := NewCameraVisibleVoxelTechnique(8, 8, 8)
	ctx := technique.NewContext()
	require.NoError(t, c.Init(ctx))

	prefixSumFired := 0
	cameraVisibleFired := 0
	ctx.Signals.Connect(technique.SignalPrefixSumComplete, func(any) { prefixSumFired++ })
	ctx.Signals.Connect(technique.SignalCameraVisibleComplete, func(any) { cameraVisibleFired++ })

	c.Engine.ReadFinalAccumulator = func() uint32 { return 2 }
	resized := false
	c.ResizeDownstream = func(uint32) { resized = true }

	ctx.Signals.Emit(technique.SignalLitClusterComplete, nil)
	for c.Flags().NeedsToRecord {
		_, err := c.Record(ctx, 0)
		require.NoError(t, err)
		c.PostCommandSubmit(ctx)
	}

	assert.Equal(t, 0, prefixSumFired, "reusing the prefix-sum engine must not re-fire its original completion signal")
	assert.Equal(t, 1, cameraVisibleFired)
	assert.True(t, resized)
}

func TestLightBounceTechnique_GatherThenTwoFilterPassesThenComplete(t *testing.T) {
	lb := NewLightBounceTechnique(true)
	ctx := technique.NewContext()
	require.NoError(t, lb.Init(ctx))

	assert.Equal(t, FacePenaltyBias{0.05, 0.05, 0.05, 0.05, 0.05, 0.05}, lb.FacePenalty)

	ctx.Signals.Emit(technique.SignalCameraVisibleComplete, nil)

	var gathers, filters int
	lb.DispatchGather = func(FacePenaltyBias) { gathers++ }
	lb.DispatchFilter = func(pass int) { filters++ }

	completed := 0
	ctx.Signals.Connect(technique.SignalLightBounceComplete, func(any) { completed++ })

	for lb.Flags().NeedsToRecord {
		_, err := lb.Record(ctx, 0)
		require.NoError(t, err)
		lb.PostCommandSubmit(ctx)
	}

	assert.Equal(t, 1, gathers)
	assert.Equal(t, 2, filters)
	assert.Equal(t, 1, completed)
}

func TestComputeFacePenalty_ZeroWhenDisabled(t *testing.T) {
	assert.Equal(t, FacePenaltyBias{}, ComputeFacePenalty(false))
}

func TestSceneLightingTechnique_ShadesOnceLightBounceCompletes(t *testing.T) {
	s := NewSceneLightingTechnique()
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))

	ctx.Signals.Emit(technique.SignalLightBounceComplete, nil)
	require.True(t, s.Flags().NeedsToRecord)

	shaded := 0
	s.DispatchShade = func() { shaded++ }
	_, err := s.Record(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, shaded)
	assert.False(t, s.Flags().NeedsToRecord)
}

func TestAntialiasTechnique_InactiveWhenFXAADisabled(t *testing.T) {
	a := NewAntialiasTechnique(false)
	ctx := technique.NewContext()
	require.NoError(t, a.Init(ctx))

	ctx.Signals.Emit(technique.SignalLightBounceComplete, nil)
	assert.False(t, a.Flags().Active)
	assert.False(t, a.Flags().NeedsToRecord)
}

func TestAntialiasTechnique_RunsAfterLightBounceWhenEnabled(t *testing.T) {
	a := NewAntialiasTechnique(true)
	ctx := technique.NewContext()
	require.NoError(t, a.Init(ctx))

	ctx.Signals.Emit(technique.SignalLightBounceComplete, nil)
	assert.True(t, a.Flags().NeedsToRecord)

	resolved := 0
	a.DispatchResolve = func() { resolved++ }
	_, err := a.Record(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
}
