//go:build windows

package detector

import "syscall"

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
)

const processTerminate = 0x0001

// Interrupt terminates the owner of a session. Windows cannot deliver SIGINT to
// another console, so the owner never writes its own terminal update and the
// session is left stale for the caller to clear.
func Interrupt(pid int) error {
	if pid <= 0 {
		return syscall.ERROR_INVALID_PARAMETER
	}
	h, err := syscall.OpenProcess(processTerminate, false, uint32(pid))
	if err != nil {
		return err
	}
	defer syscall.CloseHandle(h)
	ret, _, err := procTerminateProcess.Call(uintptr(h), uintptr(1))
	if ret == 0 {
		return err
	}
	return nil
}
