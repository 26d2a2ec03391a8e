// Package gpu wraps github.com/cogentcore/webgpu/wgpu resource types
// (Buffer, Texture, UniformBuffer) the way rt/gpu/manager.go does:
// named, growable allocations with geometric resize and async readback
// of small counters. Every technique records commands through these
// wrappers rather than touching *wgpu.Device directly.
package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// SafeBufferSizeLimit guards against runaway allocation requests, as in
// the teacher's manager.go.
const SafeBufferSizeLimit = 1 << 30 // 1 GiB

// Buffer is the spec §3 "Buffer": a name, the usage flags, and the
// underlying *wgpu.Buffer handle that holds the backing memory and size.
type Buffer struct {
	Name   string
	Usage  wgpu.BufferUsage
	Handle *wgpu.Buffer
}

// EnsureBuffer grounds the spec's `resize(new_data?, new_size)` /
// `set_content` contract on the teacher's ensureBuffer (manager.go):
// destroy-and-recreate with geometric 1.5x growth, preserving content via
// CopyBufferToBuffer when data is nil (a size-only resize), or
// overwriting wholesale when data is provided. Returns true if the
// underlying allocation was replaced.
func EnsureBuffer(device *wgpu.Device, b *Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := b.Handle
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	b.Usage = usage

	if current == nil || current.GetSize() < neededSize {
		newSize := neededSize
		if current != nil {
			growth := uint64(float64(current.GetSize()) * 1.5)
			if growth > newSize {
				newSize = growth
			}
		}
		if newSize > SafeBufferSizeLimit {
			panic("gpu: buffer " + b.Name + " allocation exceeds safety limit")
		}

		newBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            b.Name,
			Size:             newSize,
			Usage:            usage,
			MappedAtCreation: false,
		})
		if err != nil {
			panic(err)
		}

		if current != nil && data == nil {
			encoder, err := device.CreateCommandEncoder(nil)
			if err != nil {
				panic(err)
			}
			encoder.CopyBufferToBuffer(current, 0, newBuf, 0, current.GetSize())
			cmdBuf, err := encoder.Finish(nil)
			if err != nil {
				panic(err)
			}
			device.GetQueue().Submit(cmdBuf)
		}

		if current != nil {
			current.Release()
		}
		b.Handle = newBuf

		if len(data) > 0 {
			device.GetQueue().WriteBuffer(b.Handle, 0, data)
		}
		return true
	}

	if len(data) > 0 {
		device.GetQueue().WriteBuffer(b.Handle, 0, data)
	}
	return false
}

// SetContent is the spec's `set_content`: upload data into an existing
// buffer without a resize decision (caller already knows it fits).
func (b *Buffer) SetContent(device *wgpu.Device, data []byte) {
	if b.Handle == nil {
		panic("gpu: SetContent on unallocated buffer " + b.Name)
	}
	device.GetQueue().WriteBuffer(b.Handle, 0, data)
}

func (b *Buffer) Size() uint64 {
	if b.Handle == nil {
		return 0
	}
	return b.Handle.GetSize()
}

func (b *Buffer) Release() {
	if b.Handle != nil {
		b.Handle.Release()
		b.Handle = nil
	}
}
