package model

// ProcessSnapshot is a process as observed at enumeration time.
type ProcessSnapshot struct {
	PID     int
	PPID    int
	Command string
	UID     uint32
}
