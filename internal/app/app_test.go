package app

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelgi/pipeline/internal/camera"
	"github.com/voxelgi/pipeline/internal/config"
	"github.com/voxelgi/pipeline/internal/scene"
	"github.com/voxelgi/pipeline/internal/technique"
)

func TestProfiler_BeginEndScopeTracksDuration(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("voxelize")
	time.Sleep(time.Millisecond)
	p.EndScope("voxelize")
	assert.Greater(t, p.Scopes["voxelize"], time.Duration(0))
	assert.Equal(t, []string{"voxelize"}, p.Order)
}

func TestProfiler_BeginScopeIsIdempotentInOrder(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("a")
	p.BeginScope("b")
	p.BeginScope("a")
	assert.Equal(t, []string{"a", "b"}, p.Order)
}

func TestProfiler_ResetClearsDurationsKeepsOrder(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("a")
	p.EndScope("a")
	p.Reset()
	assert.Equal(t, time.Duration(0), p.Scopes["a"])
	assert.Equal(t, []string{"a"}, p.Order)
}

func TestProfiler_GetStatsStringIncludesScopesAndCounters(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("render")
	p.EndScope("render")
	p.SetCount("draw_calls", 42)
	s := p.GetStatsString()
	assert.Contains(t, s, "render")
	assert.Contains(t, s, "draw_calls")
	assert.Contains(t, s, "42")
}

func TestApp_InitRunsTechniqueInitInOrder(t *testing.T) {
	a := New(config.Default(), nil)
	order := []string{}
	f1 := &fakeTech{Base: technique.NewBase("one"), onInit: func() { order = append(order, "one") }}
	f2 := &fakeTech{Base: technique.NewBase("two"), onInit: func() { order = append(order, "two") }}

	require.NoError(t, a.Init(f1, f2))
	assert.Equal(t, []string{"one", "two"}, order)
}

func TestApp_UpdateSceneCommitsVisibleSetFromMainCamera(t *testing.T) {
	a := New(config.Default(), nil)

	cam := camera.New("main", camera.FirstPerson)
	cam.Position = mgl32.Vec3{0, -10, 0}
	cam.Yaw = float32(math.Pi) // face +Y, toward the cube at the origin
	a.Cameras.Build("main", func() *camera.Camera { return cam })
	a.Scene.SceneCamera = "main"

	n := scene.NewNode("cube", scene.MeshRenderModel, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	n.MoveTo(mgl32.Vec3{0, 0, 0})
	a.Scene.AddNode(n)

	require.NoError(t, a.Init())
	require.NoError(t, a.Tick(0.016, 0))

	assert.Equal(t, 1, a.Profiler.Counts["scene_nodes"])
	assert.Equal(t, 1, a.Profiler.Counts["scene_visible"])
}

func TestApp_TickCountsSubmittedTechniques(t *testing.T) {
	a := New(config.Default(), nil)
	f := &fakeTech{Base: technique.NewBase("t")}
	f.Flags().Active = true
	f.Flags().NeedsToRecord = true
	f.onRecord = func() *technique.CommandBuffer {
		return &technique.CommandBuffer{ID: technique.NewCommandBufferID(), Queue: technique.QueueGraphics}
	}

	require.NoError(t, a.Init(f))
	require.NoError(t, a.Tick(0.016, 0))
	assert.Equal(t, 1, a.Profiler.Counts["techniques_submitted"])
}

// fakeTech is a minimal technique.Technique for app-level wiring tests.
type fakeTech struct {
	technique.Base
	onInit   func()
	onRecord func() *technique.CommandBuffer
}

func (f *fakeTech) Init(ctx *technique.Context) error {
	if f.onInit != nil {
		f.onInit()
	}
	return nil
}
func (f *fakeTech) Prepare(ctx *technique.Context, dt float32) {}
func (f *fakeTech) Record(ctx *technique.Context, currentImage uint32) (*technique.CommandBuffer, error) {
	f.Flags().NeedsToRecord = false
	if f.onRecord != nil {
		return f.onRecord(), nil
	}
	return nil, nil
}
func (f *fakeTech) PostCommandSubmit(ctx *technique.Context) {}
