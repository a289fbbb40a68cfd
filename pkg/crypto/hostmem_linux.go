//go:build linux

package crypto

import "golang.org/x/sys/unix"

// hostMemoryKiB returns the total physical memory of the host in KiB.
func hostMemoryKiB() (uint64, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	return uint64(info.Totalram) * uint64(info.Unit) / 1024, true
}
