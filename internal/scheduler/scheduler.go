// Package scheduler implements the frame tick of spec §4.8: a stable
// technique order, each re-recorded only when active/needs_to_record,
// command buffers grouped per logical queue and submitted respecting
// technique_lock, then post_command_submit called in submission order,
// then present.
//
// Grounded on rt/app/app.go's Render: a fixed sequence of named passes
// (G-Buffer, Hi-Z, Shadows, Lighting, ...) recorded into one
// CommandEncoder per frame and submitted once, generalized from a fixed
// pass list into a declared, independently-flagged Technique slice
// (spec §9's central redesign away from the source's hardcoded frame
// function).
package scheduler

import (
	"fmt"

	"github.com/voxelgi/pipeline/internal/logx"
	"github.com/voxelgi/pipeline/internal/technique"
)

// Scheduler drives spec §4.8's tick over a fixed, declared technique
// order. It owns no GPU handles itself — SubmitGraphics/SubmitCompute/
// Present are injected so the scheduler's ordering logic is testable
// without a live wgpu.Device, consistent with every technique package's
// dispatch-closure pattern.
type Scheduler struct {
	Log        logx.Logger
	techniques []technique.Technique

	// CollectInput pumps keyboard/mouse/window events and drives
	// camera/input state, per §4.8 step 1.
	CollectInput func(dt float32)

	// UpdateScene propagates deltaTime and refreshes AABBs/visibility,
	// per §4.8 step 2.
	UpdateScene func(dt float32)

	SubmitGraphics func(buffers []*technique.CommandBuffer) error
	SubmitCompute  func(buffers []*technique.CommandBuffer) error
	Present        func() error

	// lastTick records, for introspection/testing, which techniques
	// recorded a command buffer on the most recent Tick, in submission
	// order — the set PostCommandSubmit is called over (§4.8 step 5).
	lastTick []technique.Technique
}

func New(log logx.Logger, techniques ...technique.Technique) *Scheduler {
	if log == nil {
		log = logx.Nop()
	}
	return &Scheduler{Log: log, techniques: techniques}
}

// Add appends a technique to the declared order. Techniques must be
// added before Init is called.
func (s *Scheduler) Add(t technique.Technique) {
	s.techniques = append(s.techniques, t)
}

// Techniques returns the declared order, for callers that need to
// inspect or re-home flags (e.g. releasing a technique_lock).
func (s *Scheduler) Techniques() []technique.Technique {
	return s.techniques
}

// Init calls Init on every technique in declared order, per spec §4.1:
// "new shaders/textures/etc initialization happens here."
func (s *Scheduler) Init(ctx *technique.Context) error {
	for _, t := range s.techniques {
		if err := t.Init(ctx); err != nil {
			return fmt.Errorf("scheduler: init %s: %w", t.Name(), err)
		}
	}
	return nil
}

// Tick runs exactly one frame of spec §4.8's 6-step loop. It never
// busy-waits: a technique whose upstream completion signal has not
// fired stays Active==false/NeedsToRecord==false and is skipped outright
// (the invariant of spec §4.8's closing paragraph).
func (s *Scheduler) Tick(ctx *technique.Context, dt float32, currentImage uint32) error {
	if s.CollectInput != nil {
		s.CollectInput(dt)
	}
	if s.UpdateScene != nil {
		s.UpdateScene(dt)
	}

	var graphicsBuffers, computeBuffers []*technique.CommandBuffer
	var submitted []technique.Technique

	for _, t := range s.techniques {
		flags := t.Flags()
		if !flags.Active {
			continue
		}
		t.Prepare(ctx, dt)

		if !flags.NeedsToRecord {
			continue
		}
		if flags.TechniqueLock {
			// Locked: already submitted, awaiting its consumer's release.
			// Per spec §4.8 step 4, skip re-recording until unlocked.
			continue
		}

		cb, err := t.Record(ctx, currentImage)
		if err != nil {
			return fmt.Errorf("scheduler: record %s: %w", t.Name(), err)
		}
		if cb == nil {
			continue
		}

		switch cb.Queue {
		case technique.QueueGraphics:
			graphicsBuffers = append(graphicsBuffers, cb)
		case technique.QueueCompute:
			computeBuffers = append(computeBuffers, cb)
		}
		t.RecordHistory(cb.ID)
		submitted = append(submitted, t)
	}

	if len(graphicsBuffers) > 0 && s.SubmitGraphics != nil {
		if err := s.SubmitGraphics(graphicsBuffers); err != nil {
			return fmt.Errorf("scheduler: submit graphics: %w", err)
		}
	}
	if len(computeBuffers) > 0 && s.SubmitCompute != nil {
		if err := s.SubmitCompute(computeBuffers); err != nil {
			return fmt.Errorf("scheduler: submit compute: %w", err)
		}
	}

	for _, t := range submitted {
		t.PostCommandSubmit(ctx)
	}
	s.lastTick = submitted

	if s.Present != nil {
		if err := s.Present(); err != nil {
			return fmt.Errorf("scheduler: present: %w", err)
		}
	}
	return nil
}

// LastTickSubmitted returns the techniques whose command buffers were
// recorded and submitted on the most recent Tick, in submission order.
func (s *Scheduler) LastTickSubmitted() []technique.Technique {
	return s.lastTick
}
