package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelgi/pipeline/internal/technique"
)

// fakeTechnique is a minimal technique.Technique for exercising the
// scheduler's ordering logic without a live wgpu.Device.
type fakeTechnique struct {
	technique.Base
	queue          technique.QueueKind
	recordCalls    int
	postSubmitCalls int
	prepareCalls   int
}

func newFake(name string, queue technique.QueueKind) *fakeTechnique {
	return &fakeTechnique{Base: technique.NewBase(name), queue: queue}
}

func (f *fakeTechnique) Init(ctx *technique.Context) error { return nil }
func (f *fakeTechnique) Prepare(ctx *technique.Context, dt float32) { f.prepareCalls++ }
func (f *fakeTechnique) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	f.recordCalls++
	f.Flags().NeedsToRecord = false
	return &technique.CommandBuffer{ID: technique.NewCommandBufferID(), Queue: f.queue}, nil
}
func (f *fakeTechnique) PostCommandSubmit(ctx *technique.Context) { f.postSubmitCalls++ }

func TestTick_InactiveTechniqueIsSkippedEntirely(t *testing.T) {
	f := newFake("idle", technique.QueueGraphics)
	s := New(nil, f)
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))

	require.NoError(t, s.Tick(ctx, 0.016, 0))
	assert.Equal(t, 0, f.prepareCalls, "inactive technique gets neither prepare nor record")
	assert.Equal(t, 0, f.recordCalls)
	assert.Equal(t, 0, f.postSubmitCalls)
}

func TestTick_ActiveNeedsRecordRunsFullLifecycle(t *testing.T) {
	f := newFake("gbuffer", technique.QueueCompute)
	f.Flags().Active = true
	f.Flags().NeedsToRecord = true
	s := New(nil, f)
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))

	var submittedCompute []*technique.CommandBuffer
	s.SubmitCompute = func(buffers []*technique.CommandBuffer) error {
		submittedCompute = buffers
		return nil
	}

	require.NoError(t, s.Tick(ctx, 0.016, 0))
	assert.Equal(t, 1, f.prepareCalls)
	assert.Equal(t, 1, f.recordCalls)
	assert.Equal(t, 1, f.postSubmitCalls)
	assert.Len(t, submittedCompute, 1)
}

func TestTick_TechniqueLockSkipsRerecording(t *testing.T) {
	f := newFake("locked", technique.QueueGraphics)
	f.Flags().Active = true
	f.Flags().NeedsToRecord = true
	f.Flags().TechniqueLock = true
	s := New(nil, f)
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))

	require.NoError(t, s.Tick(ctx, 0.016, 0))
	assert.Equal(t, 1, f.prepareCalls, "prepare still runs for an active technique")
	assert.Equal(t, 0, f.recordCalls, "locked technique is not re-recorded")
	assert.Equal(t, 0, f.postSubmitCalls, "never submitted, so never post-submitted")
}

func TestTick_PreservesDeclaredOrderInPostCommandSubmit(t *testing.T) {
	a := newFake("a", technique.QueueGraphics)
	b := newFake("b", technique.QueueGraphics)
	a.Flags().Active, a.Flags().NeedsToRecord = true, true
	b.Flags().Active, b.Flags().NeedsToRecord = true, true

	s := New(nil, a, b)
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))

	s.SubmitGraphics = func(buffers []*technique.CommandBuffer) error { return nil }
	require.NoError(t, s.Tick(ctx, 0.016, 0))

	submitted := s.LastTickSubmitted()
	require.Len(t, submitted, 2)
	assert.Equal(t, "a", submitted[0].Name())
	assert.Equal(t, "b", submitted[1].Name())
}

func TestTick_CallsCollectInputAndUpdateSceneBeforeTechniques(t *testing.T) {
	order := []string{}
	f := newFake("render", technique.QueueGraphics)
	s := New(nil, f)
	ctx := technique.NewContext()
	require.NoError(t, s.Init(ctx))

	s.CollectInput = func(dt float32) { order = append(order, "input") }
	s.UpdateScene = func(dt float32) { order = append(order, "scene") }

	require.NoError(t, s.Tick(ctx, 0.016, 0))
	assert.Equal(t, []string{"input", "scene"}, order)
}
