//go:build windows

package session

import "os"

// Windows stub: syscall.Flock is unavailable. Sessions on the same metadata
// file are not coordinated across processes on Windows.

func tryLock(f *os.File) error { return nil }

func releaseLock(f *os.File) {}
