// Package material implements spec §3's Material: a binding of
// {pipeline, descriptor-set-layout, pipeline-layout, bound resources,
// push-constant block, per-material uniform-buffer cell index, clear
// values, user-exposed parameters}, instantiated by class name +
// instance name + parameter map.
//
// Grounded on rt/core/material.go's plain shading-parameter struct
// (generalized here into the full pipeline-binding record spec §3
// describes) and mod_assets.go's class-template/instance/uuid pattern
// (LoadMaterial reading a class's shader source once, minting a fresh
// instance id per load) — ClassRegistry plays the role of AssetServer's
// materials map, and instance ids are minted with google/uuid exactly
// as makeAssetId does.
package material

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/voxelgi/pipeline/internal/registry"
	"github.com/voxelgi/pipeline/internal/shader"
)

// BoundResource is one entry of a Material's descriptor set: a binding
// slot paired with the name of the buffer/texture/sampler resource
// bound there (resolved against the relevant internal/gpu registry by
// the caller — this package stays GPU-handle-agnostic).
type BoundResource struct {
	Slot         uint32
	ResourceName string
}

// ClearValue is the per-attachment clear color/depth a material's render
// pass uses, when the material targets a render (not compute) pipeline.
type ClearValue struct {
	R, G, B, A float32
	Depth      float32
}

// Class is a material template: the reflected shader layout and default
// exposed parameters shared by every instance. Classes are registered
// once (spec §3: "instantiation compiles the reflected shader") and
// instantiated many times.
type Class struct {
	Name       string
	Reflection *shader.Reflection
	Defaults   map[string]float32
}

// Material is one instantiated material: a Class plus the concrete
// bound resources, push-constant values, clear color and the uniform
// buffer cell it has been assigned.
type Material struct {
	registry.Header

	ID    InstanceID
	Class *Class

	PipelineLabel       string // opaque name resolved to a *wgpu.RenderPipeline/ComputePipeline by internal/app
	DescriptorSetLayout string // opaque name resolved to a *wgpu.BindGroupLayout by internal/app
	BoundResources      []BoundResource
	PushConstants       *shader.PushConstantBlock
	UniformCellIndex    int
	Clear               ClearValue
	Params              map[string]float32
}

// InstanceID is the unique id minted for each Instantiate call, mirroring
// mod_assets.go's AssetId/makeAssetId.
type InstanceID string

func newInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}

// ClassRegistry holds material classes by name, keeping them alongside a
// free list of spent uniform buffer cells so successive instantiations
// of the same class reuse a freed cell index before growing the count.
type ClassRegistry struct {
	classes   map[string]*Class
	nextCell  int
	freeCells []int
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*Class)}
}

// RegisterClass compiles (declares, per this package's doc comment) a
// material class once. Registering the same name twice is a no-op,
// matching spec §4.2's registry "build on an existing name" semantics.
func (r *ClassRegistry) RegisterClass(name string, reflection *shader.Reflection, defaults map[string]float32) *Class {
	if existing, ok := r.classes[name]; ok {
		return existing
	}
	c := &Class{Name: name, Reflection: reflection, Defaults: defaults}
	r.classes[name] = c
	return c
}

func (r *ClassRegistry) allocCell() int {
	if n := len(r.freeCells); n > 0 {
		cell := r.freeCells[n-1]
		r.freeCells = r.freeCells[:n-1]
		return cell
	}
	cell := r.nextCell
	r.nextCell++
	return cell
}

func (r *ClassRegistry) freeCell(cell int) {
	r.freeCells = append(r.freeCells, cell)
}

// Instantiate builds a Material from a registered class, an instance
// name, and a parameter overlay (per spec §3: "instantiated by class
// name + instance name + parameter map"). Instantiating against an
// unknown class name is a recoverable error (spec §7), not a panic.
func (r *ClassRegistry) Instantiate(className, instanceName string, params map[string]float32) (*Material, error) {
	class, ok := r.classes[className]
	if !ok {
		return nil, fmt.Errorf("material: unknown class %q", className)
	}

	merged := make(map[string]float32, len(class.Defaults)+len(params))
	for k, v := range class.Defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	var push *shader.PushConstantBlock
	if class.Reflection != nil {
		push = class.Reflection.PushConstants
	}

	m := &Material{
		Header:           registry.NewHeader(instanceName, "material"),
		ID:               newInstanceID(),
		Class:            class,
		PushConstants:    push,
		UniformCellIndex: r.allocCell(),
		Params:           merged,
	}
	m.Ready = true
	return m, nil
}

// Release returns a material's uniform buffer cell to the free list, per
// spec §4.1's "materials are instantiated/destroyed alongside their
// owning technique or scene node."
func (r *ClassRegistry) Release(m *Material) {
	if m == nil {
		return
	}
	r.freeCell(m.UniformCellIndex)
	m.Ready = false
}
