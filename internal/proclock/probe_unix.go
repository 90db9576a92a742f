//go:build !windows

package proclock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive probes pid with signal 0, which tests existence without
// delivering anything. EPERM still means the process exists.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
