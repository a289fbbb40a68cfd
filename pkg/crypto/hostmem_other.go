//go:build !linux

package crypto

// hostMemoryKiB is unknown off Linux; only MaxMemoryKiB applies there.
func hostMemoryKiB() (uint64, bool) {
	return 0, false
}
