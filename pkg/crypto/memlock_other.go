//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly || windows)

package crypto

func lockMemory(b []byte) error   { return nil }
func unlockMemory(b []byte) error { return nil }
