package registry

// Key is a precomputed parameter-map key, replacing the source's
// hard-coded hashed `extern const` attribute names (spec §9). Go has no
// general compile-time string-hashing construct, so instead of hashing at
// startup on first use, every well-known key is declared as a package
// variable computed once during package initialization (before main
// runs) via fnv1a — the closest equivalent Go offers to the source's
// "compute the hashes at compile time" intent.
type Key uint64

// fnv1a is the 64-bit FNV-1a hash, matching the source's choice of a
// cheap non-cryptographic string hash for parameter-map keys.
func fnv1a(s string) Key {
	const offset = 14695981039346656037
	const prime = 1099511628211
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return Key(h)
}

// NewKey hashes name into a Key. Prefer declaring well-known keys as
// package-level vars (see below) over calling this ad hoc.
func NewKey(name string) Key { return fnv1a(name) }

// Well-known parameter keys shared across resource kinds.
var (
	KeyVoxelizationResolution = NewKey("voxelization_resolution")
	KeyClusterCount           = NewKey("cluster_count")
	KeyEmitterRadiance        = NewKey("emitter_radiance")
	KeyCellSize               = NewKey("cell_size")
	KeyFormat                 = NewKey("format")
	KeyExtent                 = NewKey("extent")
	KeyUsage                  = NewKey("usage")
)
