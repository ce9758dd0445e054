package detector

import (
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/loykin/gomato/internal/session"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

// exitedPID starts a short-lived process, waits for it and returns its pid.
func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Wait()
	return pid
}

func TestPIDDetectorCurrentProcess(t *testing.T) {
	d := PIDDetector{PID: os.Getpid()}
	alive, err := d.Alive()
	if err != nil || !alive {
		t.Fatalf("current process should be alive, got alive=%v err=%v", alive, err)
	}
	if d.Describe() == "" {
		t.Fatalf("empty description")
	}
}

func TestPIDDetectorInvalidPID(t *testing.T) {
	for _, pid := range []int{0, -1} {
		alive, err := PIDDetector{PID: pid}.Alive()
		if err != nil || alive {
			t.Fatalf("pid %d: expected false,nil got %v %v", pid, alive, err)
		}
	}
}

func TestPIDDetectorExitedProcess(t *testing.T) {
	requireUnix(t)
	pid := exitedPID(t)
	alive, err := PIDDetector{PID: pid}.Alive()
	if err != nil || alive {
		t.Fatalf("exited pid %d should not be alive, got %v %v", pid, alive, err)
	}
}

func TestPIDDetectorStartTimeMismatchMeansReused(t *testing.T) {
	requireUnix(t)
	pid := os.Getpid()
	start := ProcStartUnix(pid)
	if start == 0 {
		t.Skip("process start time unavailable on this platform")
	}
	alive, _ := PIDDetector{PID: pid, StartUnix: start}.Alive()
	if !alive {
		t.Fatalf("matching start time should be alive")
	}
	alive, _ = PIDDetector{PID: pid, StartUnix: start - 3600}.Alive()
	if alive {
		t.Fatalf("mismatching start time should be treated as reused pid")
	}
}

func TestSessionAlive(t *testing.T) {
	requireUnix(t)
	live := session.Record{Owner: os.Getpid(), StartedAt: 1}
	if !SessionAlive(live) {
		t.Fatalf("own pid should be alive")
	}
	if live.Status(SessionAlive) != session.StatusActive {
		t.Fatalf("expected active status")
	}
	gone := session.Record{Owner: exitedPID(t), StartedAt: 1}
	if gone.Status(SessionAlive) != session.StatusStale {
		t.Fatalf("expected stale status for exited owner")
	}
}

func TestInterruptStopsProcess(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	if err := Interrupt(cmd.Process.Pid); err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	if err := cmd.Wait(); err == nil {
		t.Fatalf("expected sleep to be terminated by SIGINT")
	}
	if err := Interrupt(0); err == nil {
		t.Fatalf("expected error for pid 0")
	}
}
