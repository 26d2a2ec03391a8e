// Package technique implements the Technique contract of spec §4.1/§9:
// a scheduled unit of GPU work with an init/prepare/record/post-submit
// lifecycle, a flag set replacing the source's bitfield, and an explicit
// EngineContext handle replacing the source's singleton managers.
// Grounded on the phase structure of rt/app/app.go's Render (a fixed
// ordered sequence of compute/render passes, each gated on whether its
// inputs are ready) generalized into named, independently-flagged units.
package technique

import (
	"github.com/google/uuid"

	"github.com/voxelgi/pipeline/internal/registry"
)

// QueueKind selects which logical GPU queue a recorded command buffer
// targets, per spec §5 "two logical queues exist: graphics and compute".
type QueueKind int

const (
	QueueGraphics QueueKind = iota
	QueueCompute
)

// RecordPolicy labels a technique as recording once or every frame, per
// spec §4.1. It is carried in Flags only: the scheduler decides whether
// to call Record from NeedsToRecord alone and does not read it.
type RecordPolicy int

const (
	RecordSingleTime RecordPolicy = iota
	RecordPerFrame
)

// Flags is the technique flag set of spec §9 design notes (the source's
// bitfield), modeled as discrete booleans for clarity.
type Flags struct {
	Active                 bool
	ExecuteCommand         bool
	NeedsToRecord          bool
	TechniqueLock          bool
	RecordPolicy           RecordPolicy
	ComputeHostSynchronize bool
}

// CommandBuffer is what record() hands back to the scheduler: an opaque
// id, the queue it targets, and a closure the scheduler invokes to
// actually submit (keeping GPU-type specifics out of this package).
type CommandBuffer struct {
	ID    string
	Queue QueueKind
	Submit func()
}

// Technique is the unit of scheduling. Every concrete technique
// (voxelization, prefix-sum, clusterization stages, lighting stages)
// embeds Base and implements these four methods.
type Technique interface {
	Name() string
	Flags() *Flags
	Init(ctx *Context) error
	Prepare(ctx *Context, dt float32)
	Record(ctx *Context, currentImage uint32) (*CommandBuffer, error)
	PostCommandSubmit(ctx *Context)
}

// Base carries the shared bookkeeping every Technique embeds: its flags,
// name, and the ordered history of command buffer ids it has submitted
// (useful for debugging technique_lock violations).
type Base struct {
	name    string
	flags   Flags
	history []string
}

func NewBase(name string) Base {
	return Base{name: name, flags: Flags{RecordPolicy: RecordSingleTime}}
}

func (b *Base) Name() string   { return b.name }
func (b *Base) Flags() *Flags  { return &b.flags }

func (b *Base) RecordHistory(id string) {
	b.history = append(b.history, id)
}

func (b *Base) History() []string { return b.history }

// NewCommandBufferID mints a fresh per-record id, grounded on the
// teacher's use of google/uuid for resource ids (mod_assets.go).
func NewCommandBufferID() string {
	return uuid.NewString()
}

// Context is the explicit, passed-by-pointer EngineContext of spec §9,
// replacing the source's global singleton managers. It carries no GPU
// handles itself — those live in internal/gpu and internal/scene — only
// the cross-cutting signal hub every technique subscribes completion
// signals on.
type Context struct {
	Signals *SignalHub
}

func NewContext() *Context {
	return &Context{Signals: NewSignalHub()}
}

// SignalHub names the well-known completion signals techniques
// subscribe/emit on, keyed by name so new techniques can add their own
// without changing this package. Delivery is synchronous per spec §5.
type SignalHub struct {
	signals map[string]*registry.Signal[any]
}

func NewSignalHub() *SignalHub {
	return &SignalHub{signals: make(map[string]*registry.Signal[any])}
}

func (h *SignalHub) signal(name string) *registry.Signal[any] {
	s, ok := h.signals[name]
	if !ok {
		s = registry.NewSignal[any]()
		h.signals[name] = s
	}
	return s
}

// Connect subscribes fn to name's signal, returning a disconnect token.
func (h *SignalHub) Connect(name string, fn func(any)) registry.Token {
	return h.signal(name).Connect(fn)
}

func (h *SignalHub) Disconnect(name string, tok registry.Token) {
	h.signal(name).Disconnect(tok)
}

// Emit fires name's signal synchronously with value.
func (h *SignalHub) Emit(name string, value any) {
	h.signal(name).Emit(value)
}

// Well-known signal names threaded through the technique graph.
const (
	SignalVoxelizationComplete = "voxelization_complete"
	SignalPrefixSumComplete    = "prefix_sum_complete"
	SignalClusterizationComplete = "clusterization_complete"
	SignalShadowMapDirty       = "shadow_map_dirty"
	SignalCameraDirty          = "camera_dirty"
	SignalLitClusterComplete   = "lit_cluster_complete"
	SignalCameraVisibleComplete = "camera_visible_complete"
	SignalLightBounceComplete  = "light_bounce_complete"
)
