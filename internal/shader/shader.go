// Package shader implements spec §4.3's shader reflection model: a
// description of a shader's samplers, storage images, uniform buffers
// (as an ExposedStructField list), push constants and storage buffers.
//
// Per spec §1's stated Non-goal ("shader source text treated as opaque
// blobs keyed by parameter substitution") there is no real SPIR-V/WGSL
// bytecode parser here — that would mean implementing a shader compiler
// front-end, squarely out of scope. Instead a Reflection is declared in
// Go (the same information a real reflection pass would have produced),
// and this package owns the part spec §4.3 actually specifies: per-field
// dirty tracking, cell-alignment layout, and packing into the byte blob
// internal/gpu.UniformBuffer uploads. internal/material's RegisterClass
// takes a Reflection built by its caller.
package shader

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelgi/pipeline/internal/gpu"
)

// FieldKind is the scalar/vector/matrix shape of one exposed field.
type FieldKind int

const (
	KindFloat32 FieldKind = iota
	KindVec2
	KindVec3
	KindVec4
	KindMat4
	KindInt32
	KindUint32
)

func (k FieldKind) Size() uint32 {
	switch k {
	case KindFloat32, KindInt32, KindUint32:
		return 4
	case KindVec2:
		return 8
	case KindVec3, KindVec4:
		return 16 // vec3 is padded to a vec4 slot, matching std140/WebGPU uniform layout
	case KindMat4:
		return 64
	default:
		return 0
	}
}

func (k FieldKind) align() uint32 {
	switch k {
	case KindVec3, KindVec4, KindMat4:
		return 16
	case KindVec2:
		return 8
	default:
		return 4
	}
}

// ExposedStructField is one field of a reflected uniform buffer struct:
// name, type, computed offset within the struct, and the CPU-side value
// plus a dirty bit so redundant GPU uploads can be skipped (spec §4.3).
type ExposedStructField struct {
	Name   string
	Kind   FieldKind
	Offset uint32
	Dirty  bool

	value [64]byte // largest case is a mat4; unused tail ignored per Kind.Size()
}

func newField(name string, kind FieldKind) *ExposedStructField {
	return &ExposedStructField{Name: name, Kind: kind}
}

func (f *ExposedStructField) SetFloat32(v float32) {
	gpu.PutFloat32(f.value[:4], v)
	f.Dirty = true
}

func (f *ExposedStructField) SetUint32(v uint32) {
	gpu.PutUint32(f.value[:4], v)
	f.Dirty = true
}

func (f *ExposedStructField) SetVec3Padded(x, y, z float32) {
	gpu.PutVec3Padded(f.value[:16], mgl32.Vec3{x, y, z})
	f.Dirty = true
}

func (f *ExposedStructField) SetVec4(x, y, z, w float32) {
	gpu.PutVec4(f.value[:16], mgl32.Vec4{x, y, z, w})
	f.Dirty = true
}

func (f *ExposedStructField) SetMat4(m mgl32.Mat4) {
	gpu.PutMat4(f.value[:64], m)
	f.Dirty = true
}

// Bytes returns the field's raw value of Kind.Size() bytes.
func (f *ExposedStructField) Bytes() []byte {
	return f.value[:f.Kind.Size()]
}

// UniformBlock is a reflected uniform buffer: a named struct of fields
// laid out contiguously per field alignment, per spec §4.3's
// "dynamic_alignment = align_up(max(field_offsets + sizes),
// min_uniform_buffer_alignment)".
type UniformBlock struct {
	Name             string
	Fields           []*ExposedStructField
	structSize       uint32
	DynamicAlignment uint32
}

// NewUniformBlock lays fields out in declaration order, each aligned per
// its Kind, then computes DynamicAlignment against minUniformAlignment.
func NewUniformBlock(name string, minUniformAlignment uint32, specs ...FieldSpec) *UniformBlock {
	b := &UniformBlock{Name: name}
	var cursor uint32
	for _, s := range specs {
		f := newField(s.Name, s.Kind)
		a := s.Kind.align()
		cursor = alignUp(cursor, a)
		f.Offset = cursor
		cursor += s.Kind.Size()
		b.Fields = append(b.Fields, f)
	}
	b.structSize = cursor
	b.DynamicAlignment = alignUp(cursor, minUniformAlignment)
	return b
}

// FieldSpec declares one field of a UniformBlock at construction time.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

func alignUp(v, a uint32) uint32 {
	if a == 0 {
		return v
	}
	return (v + a - 1) / a * a
}

// Field looks up a field by name.
func (b *UniformBlock) Field(name string) (*ExposedStructField, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// AnyDirty reports whether any field changed since the last Pack.
func (b *UniformBlock) AnyDirty() bool {
	for _, f := range b.Fields {
		if f.Dirty {
			return true
		}
	}
	return false
}

// Pack writes every field's current value into dst (which must be at
// least b.structSize bytes) at its computed offset, and clears dirty
// bits. This is what a material writes into its UniformBuffer cell.
func Pack(b *UniformBlock, dst []byte) error {
	if uint32(len(dst)) < b.structSize {
		return fmt.Errorf("shader: pack buffer too small for block %q: need %d, have %d", b.Name, b.structSize, len(dst))
	}
	for _, f := range b.Fields {
		copy(dst[f.Offset:f.Offset+f.Kind.Size()], f.Bytes())
		f.Dirty = false
	}
	return nil
}

// SamplerBinding, StorageImageBinding and StorageBufferBinding are
// reflected resource bindings carrying only what spec §4.3 names: a
// bind-group/set slot and a human name. The descriptor-set build itself
// lives in internal/material, which owns the actual GPU handles.
type SamplerBinding struct {
	Name string
	Slot uint32
}

type StorageImageBinding struct {
	Name string
	Slot uint32
}

type StorageBufferBinding struct {
	Name string
	Slot uint32
}

// PushConstantBlock mirrors UniformBlock's field list but has no cell
// alignment concept — push constants are a single small fixed-offset
// region updated directly on the command encoder.
type PushConstantBlock struct {
	Fields []*ExposedStructField
	Size   uint32
}

func NewPushConstantBlock(specs ...FieldSpec) *PushConstantBlock {
	p := &PushConstantBlock{}
	var cursor uint32
	for _, s := range specs {
		f := newField(s.Name, s.Kind)
		cursor = alignUp(cursor, s.Kind.align())
		f.Offset = cursor
		cursor += s.Kind.Size()
		p.Fields = append(p.Fields, f)
	}
	p.Size = cursor
	return p
}

// Reflection is everything spec §4.3 says reflection extracts from a
// compiled shader: samplers, storage images, uniform buffers, push
// constants, storage buffers.
type Reflection struct {
	Samplers       []SamplerBinding
	StorageImages  []StorageImageBinding
	UniformBuffers []*UniformBlock
	PushConstants  *PushConstantBlock
	StorageBuffers []StorageBufferBinding
}
