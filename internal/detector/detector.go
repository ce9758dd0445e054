package detector

import (
	"fmt"

	"github.com/loykin/gomato/internal/session"
)

// Detector is a strategy that determines if a session owner is running.
// It must be safe for concurrent use.
type Detector interface {
	// Alive returns true if the process is detected as running.
	Alive() (bool, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}

// PIDDetector detects by a PID number. When StartUnix is set, a process with the
// same PID but a different start time is treated as a reused PID, i.e. not alive.
type PIDDetector struct {
	PID       int
	StartUnix int64
}

var _ Detector = PIDDetector{}

func (d PIDDetector) Alive() (bool, error) {
	if !pidAlive(d.PID) {
		return false, nil
	}
	if d.StartUnix > 0 {
		cur := ProcStartUnix(d.PID)
		if cur > 0 && cur != d.StartUnix {
			return false, nil // PID reused; not our process
		}
	}
	return true, nil
}

func (d PIDDetector) Describe() string { return fmt.Sprintf("pid:%d", d.PID) }

// ForSession builds the detector for a record's owner.
func ForSession(r session.Record) PIDDetector {
	return PIDDetector{PID: r.Owner, StartUnix: r.OwnerStartedAt}
}

// SessionAlive is a session.AliveFunc backed by PIDDetector.
func SessionAlive(r session.Record) bool {
	alive, err := ForSession(r).Alive()
	return err == nil && alive
}
