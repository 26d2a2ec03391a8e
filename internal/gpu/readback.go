package gpu

import "github.com/cogentcore/webgpu/wgpu"

// Readback is the small-staging-buffer map/poll/read/unmap cycle used by
// every counter readback in the pipeline (prefix-sum's
// retrieve_accumulated_num_values, voxelization's fragment_occupied_counter).
// Grounded on rt/gpu/manager_hiz.go's ReadbackHiZ: MapAsync + Device.Poll
// + GetMappedRange + copy-out + Unmap, generalized to arbitrary byte
// readout instead of a fixed R32Float mip.
type Readback struct {
	buffer *Buffer
	mapped bool
}

func NewReadback(buffer *Buffer) *Readback {
	return &Readback{buffer: buffer}
}

// Read blocks on device.Poll until the staging buffer is mapped, copies
// out its bytes, and unmaps it. Per spec §5 this is one of the only host
// wait points ("staging-buffer maps during readback of small counters").
func (r *Readback) Read(device *wgpu.Device) []byte {
	handle := r.buffer.Handle
	if handle == nil {
		return nil
	}

	if !r.mapped {
		handle.MapAsync(wgpu.MapModeRead, 0, handle.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
			if status == wgpu.BufferMapAsyncStatusSuccess {
				r.mapped = true
			}
		})
	}

	for !r.mapped {
		device.Poll(true, nil)
	}

	size := handle.GetSize()
	mapped := handle.GetMappedRange(0, uint(size))
	out := make([]byte, len(mapped))
	copy(out, mapped)

	handle.Unmap()
	r.mapped = false
	return out
}
