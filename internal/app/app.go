// App bundles the EngineContext of spec §9's design notes: "Replace [the
// source's singletons] with an explicit EngineContext value passed
// through the technique API; each manager lives inside it, and signal
// handlers receive a non-owning context handle." Grounded on
// rt/app/app.go's App struct, which assembles the same set of managers
// (scene, camera, asset, material) plus a Profiler and drives them
// through one Render call per frame — generalized here from a fixed
// Render method into the declared Scheduler of internal/scheduler.
package app

import (
	"fmt"

	"github.com/voxelgi/pipeline/internal/camera"
	"github.com/voxelgi/pipeline/internal/config"
	"github.com/voxelgi/pipeline/internal/logx"
	"github.com/voxelgi/pipeline/internal/material"
	"github.com/voxelgi/pipeline/internal/scene"
	"github.com/voxelgi/pipeline/internal/scheduler"
	"github.com/voxelgi/pipeline/internal/technique"
)

// App is the non-owning EngineContext handle: every technique, signal
// handler and the scheduler itself reach scene/camera/material state
// only through a value like this one, never through a package-level
// singleton.
type App struct {
	Config    config.Config
	Log       logx.Logger
	Scene     *scene.Scene
	Cameras   *camera.Registry
	Materials *material.ClassRegistry
	Profiler  *Profiler
	Scheduler *scheduler.Scheduler

	// AspectRatio feeds the main camera's projection matrix; cmd/voxelgi
	// updates this on window resize.
	AspectRatio float32

	ctx *technique.Context
}

// New assembles a fresh App: empty scene, empty camera/material
// registries, a fresh profiler and a scheduler with no
// techniques yet added (callers Add their technique graph, then Init).
func New(cfg config.Config, log logx.Logger) *App {
	if log == nil {
		log = logx.Nop()
	}
	return &App{
		Config:    cfg,
		Log:       log,
		Scene:     scene.New(),
		Cameras:   camera.NewRegistry(),
		Materials: material.NewClassRegistry(),
		Profiler:    NewProfiler(),
		Scheduler:   scheduler.New(log),
		AspectRatio: 16.0 / 9.0,
		ctx:         technique.NewContext(),
	}
}

// Context returns the technique.Context shared by every technique this
// App schedules — the signal hub each lighting/voxelization/cluster
// stage connects its completion handlers on.
func (a *App) Context() *technique.Context {
	return a.ctx
}

// Init registers techniques in declared order and runs their one-time
// Init, per spec §4.1. Must be called once, after all techniques for
// this run have been added via Scheduler.Add or passed here.
func (a *App) Init(techniques ...technique.Technique) error {
	for _, t := range techniques {
		a.Scheduler.Add(t)
	}
	if a.Scheduler.UpdateScene == nil {
		a.Scheduler.UpdateScene = a.updateScene
	}
	if err := a.Scheduler.Init(a.ctx); err != nil {
		return fmt.Errorf("app: init: %w", err)
	}
	return nil
}

// updateScene is the scheduler's default step-2 hook (spec §4.8): refresh
// the active camera's view/projection-derived frustum and recommit the
// scene's visible set. Cameras not yet marked dirty by CollectInput still
// get their view matrix resolved here so Commit sees live frustum planes.
func (a *App) updateScene(dt float32) {
	mainCam, ok := a.Cameras.Get(a.Scene.SceneCamera)
	if !ok {
		return
	}
	mainCam.CommitFrame()
	vp := mainCam.ViewProj(a.AspectRatio)
	planes := camera.ExtractFrustum(vp)
	a.Scene.Commit(planes)
	a.Profiler.SetCount("scene_nodes", len(a.Scene.Nodes))
	a.Profiler.SetCount("scene_visible", len(a.Scene.Visible))
}

// Tick runs one frame: a Scheduler.Tick timed under the "frame" profiler
// scope, then the techniques_submitted count. It does not format the
// stats string; Stats does that on demand.
func (a *App) Tick(dt float32, currentImage uint32) error {
	a.Profiler.BeginScope("frame")
	defer a.Profiler.EndScope("frame")

	if err := a.Scheduler.Tick(a.ctx, dt, currentImage); err != nil {
		return fmt.Errorf("app: tick: %w", err)
	}
	a.Profiler.SetCount("techniques_submitted", len(a.Scheduler.LastTickSubmitted()))
	return nil
}

// Stats returns the profiler's formatted string, for a debug HUD; the
// caller is expected to gate calling this on Config.Debug.
func (a *App) Stats() string {
	return a.Profiler.GetStatsString()
}
