package client

import (
	"sync"
	"time"
)

// SimDevice is a headless player driven by a clock. It raises the same
// state changes a browser player would, including a buffering/playing pair
// after a seek while playing.
type SimDevice struct {
	mu       sync.Mutex
	ready    bool
	state    DeviceState
	position float64
	anchor   time.Time
	rate     float64
	muted    bool
	duration float64

	now        func() time.Time
	eventDelay time.Duration
	listeners  []func(DeviceState)
}

type SimOption func(*SimDevice)

// WithDuration ends playback at d seconds. Zero means unbounded.
func WithDuration(d float64) SimOption {
	return func(s *SimDevice) { s.duration = d }
}

func WithSimClock(now func() time.Time) SimOption {
	return func(s *SimDevice) { s.now = now }
}

// WithEventDelay delivers state changes asynchronously after d.
func WithEventDelay(d time.Duration) SimOption {
	return func(s *SimDevice) { s.eventDelay = d }
}

func NewSimDevice(opts ...SimOption) *SimDevice {
	s := &SimDevice{
		ready: true,
		state: StateUnstarted,
		rate:  1,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.anchor = s.now()
	return s
}

func (s *SimDevice) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

func (s *SimDevice) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *SimDevice) State() DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkEndedLocked()
	return s.state
}

func (s *SimDevice) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *SimDevice) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *SimDevice) Seek(position float64) {
	if position < 0 {
		position = 0
	}
	s.mu.Lock()
	s.position = s.clampLocked(position)
	s.anchor = s.now()
	playing := s.state == StatePlaying
	s.mu.Unlock()

	if playing {
		s.emit(StateBuffering)
		s.emit(StatePlaying)
	}
}

func (s *SimDevice) SetRate(speed float64) {
	s.mu.Lock()
	s.position = s.positionLocked()
	s.anchor = s.now()
	s.rate = speed
	s.mu.Unlock()
}

func (s *SimDevice) Play() {
	s.transition(StatePlaying)
}

func (s *SimDevice) Pause() {
	s.transition(StatePaused)
}

func (s *SimDevice) Mute() {
	s.mu.Lock()
	s.muted = true
	s.mu.Unlock()
}

func (s *SimDevice) Unmute() {
	s.mu.Lock()
	s.muted = false
	s.mu.Unlock()
}

func (s *SimDevice) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *SimDevice) OnStateChange(fn func(DeviceState)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *SimDevice) transition(to DeviceState) {
	s.mu.Lock()
	s.checkEndedLocked()
	if s.state == to {
		s.mu.Unlock()
		return
	}
	s.position = s.positionLocked()
	s.anchor = s.now()
	s.state = to
	s.mu.Unlock()
	s.emit(to)
}

func (s *SimDevice) emit(st DeviceState) {
	s.mu.Lock()
	listeners := make([]func(DeviceState), len(s.listeners))
	copy(listeners, s.listeners)
	delay := s.eventDelay
	s.mu.Unlock()

	fire := func() {
		for _, fn := range listeners {
			fn(st)
		}
	}
	if delay > 0 {
		time.AfterFunc(delay, fire)
		return
	}
	fire()
}

func (s *SimDevice) positionLocked() float64 {
	pos := s.position
	if s.state == StatePlaying {
		pos += s.now().Sub(s.anchor).Seconds() * s.rate
	}
	return s.clampLocked(pos)
}

func (s *SimDevice) clampLocked(pos float64) float64 {
	if s.duration > 0 && pos > s.duration {
		return s.duration
	}
	return pos
}

func (s *SimDevice) checkEndedLocked() {
	if s.state == StatePlaying && s.duration > 0 && s.positionLocked() >= s.duration {
		s.position = s.duration
		s.state = StateEnded
	}
}
