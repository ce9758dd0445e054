//go:build !windows

package detector

import "syscall"

// Interrupt asks the owner of a session to cancel it, the same way Ctrl-C in
// its terminal would.
func Interrupt(pid int) error {
	if pid <= 0 {
		return syscall.ESRCH
	}
	return syscall.Kill(pid, syscall.SIGINT)
}
