//go:build linux

package logging

import "golang.org/x/sys/unix"

// kernelThreadID returns the Linux kernel thread id of the calling OS
// thread. Because the Go runtime may move a goroutine between OS threads
// between calls, this value is only meaningful as a per-log-line snapshot,
// exactly as in the original implementation.
func kernelThreadID() int {
	return unix.Gettid()
}
