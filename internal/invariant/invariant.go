// Package invariant holds the Check helper used to assert the core
// invariants of §8 (bit-count identities, compaction round trips,
// frustum normalization). A violated invariant here means a GPU readback
// or a host-side bookkeeping structure disagrees with itself, which the
// teacher treats the same way it treats an unrecoverable wgpu call
// failure: panic with a clear message rather than limp on with corrupt
// state (see every panic(err) in rt/gpu/manager.go).
package invariant

import "fmt"

// Check panics with a formatted message if cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("invariant violated: "+format, args...))
	}
}
