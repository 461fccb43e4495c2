// Package client keeps a local player in step with the rest of a room.
package client

// DeviceState mirrors the player states the controller cares about.
type DeviceState int

const (
	StateUnstarted DeviceState = iota
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
)

func (s DeviceState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateEnded:
		return "ended"
	default:
		return "unstarted"
	}
}

// Device is the local playback engine. State changes are reported through
// the OnStateChange callback, possibly from another goroutine and possibly
// after the call that caused them has returned.
type Device interface {
	Ready() bool
	State() DeviceState
	CurrentTime() float64
	Seek(position float64)
	SetRate(speed float64)
	Play()
	Pause()
	Mute()
	Unmute()
	Muted() bool
	OnStateChange(fn func(DeviceState))
}
