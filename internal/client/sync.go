package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSuppressWindow = 500 * time.Millisecond
	DefaultDriftThreshold = 2.0
)

var ErrDeviceNotReady = errors.New("device not ready")

// Sender delivers one protocol message to the server.
type Sender interface {
	Send(msg any) error
}

type SenderFunc func(msg any) error

func (f SenderFunc) Send(msg any) error { return f(msg) }

// SyncController sits between the local Device and the room. User actions
// are always broadcast. Device state changes are broadcast unless they may
// have been caused by a remote command applied within the last window.
type SyncController struct {
	RoomID string

	dev   Device
	out   Sender
	after func(time.Duration, func())

	window time.Duration
	drift  float64

	mu      sync.Mutex
	pending int
	speed   float64
	members []string
}

type Option func(*SyncController)

// WithSuppressWindow sets how long a remote command suppresses device events.
func WithSuppressWindow(d time.Duration) Option {
	return func(c *SyncController) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithDriftThreshold sets how far, in seconds, the local position may
// differ from a syncVideo position before the device is seeked.
func WithDriftThreshold(seconds float64) Option {
	return func(c *SyncController) {
		if seconds >= 0 {
			c.drift = seconds
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for scheduling window releases.
func WithAfterFunc(fn func(time.Duration, func())) Option {
	return func(c *SyncController) { c.after = fn }
}

func NewSyncController(roomID string, dev Device, out Sender, opts ...Option) *SyncController {
	c := &SyncController{
		RoomID: roomID,
		dev:    dev,
		out:    out,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		window: DefaultSuppressWindow,
		drift:  DefaultDriftThreshold,
		speed:  1,
	}
	for _, opt := range opts {
		opt(c)
	}
	dev.OnStateChange(c.onDeviceState)
	return c
}

func (c *SyncController) Join(mediaRef string) error {
	return c.send(protocol.JoinRoom{Type: protocol.KindJoinRoom, RoomID: c.RoomID, URL: mediaRef})
}

func (c *SyncController) Leave() error {
	return c.send(protocol.Envelope{Type: protocol.KindLeaveRoom})
}

// Suppressed reports whether device events are currently being swallowed.
func (c *SyncController) Suppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

func (c *SyncController) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Members returns the last member list the server sent.
func (c *SyncController) Members() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.members...)
}

func (c *SyncController) Play() error {
	if !c.dev.Ready() {
		return ErrDeviceNotReady
	}
	pos := c.dev.CurrentTime()
	c.dev.Play()
	return c.send(protocol.NewPlay(c.RoomID, pos, c.Speed()))
}

func (c *SyncController) Pause() error {
	if !c.dev.Ready() {
		return ErrDeviceNotReady
	}
	pos := c.dev.CurrentTime()
	c.dev.Pause()
	return c.send(protocol.NewPause(c.RoomID, pos))
}

func (c *SyncController) SeekTo(position float64) error {
	if !c.dev.Ready() {
		return ErrDeviceNotReady
	}
	c.dev.Seek(position)
	return c.send(protocol.NewSeek(c.RoomID, position))
}

func (c *SyncController) ToggleMute() error {
	if !c.dev.Ready() {
		return ErrDeviceNotReady
	}
	if c.dev.Muted() {
		c.dev.Unmute()
		return c.send(protocol.NewMute(c.RoomID, false))
	}
	c.dev.Mute()
	return c.send(protocol.NewMute(c.RoomID, true))
}

// SetSpeed changes the local rate and announces it as a play message.
func (c *SyncController) SetSpeed(speed float64) error {
	if !c.dev.Ready() {
		return ErrDeviceNotReady
	}
	speed = domain.NormalizeSpeed(speed)
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	c.dev.SetRate(speed)
	return c.send(protocol.NewPlay(c.RoomID, c.dev.CurrentTime(), speed))
}

// HandleMessage applies one frame received from the server.
func (c *SyncController) HandleMessage(data []byte) error {
	kind, err := protocol.KindOf(data)
	if err != nil {
		return err
	}

	switch kind {
	case protocol.KindRoomUsers:
		var msg protocol.RoomUsers
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("decode roomUsers: %w", err)
		}
		c.mu.Lock()
		c.members = msg.Users
		c.mu.Unlock()
		return nil
	case protocol.KindPong:
		return nil
	}

	if !kind.IsControl() {
		log.Debug().Str("module", "client").Str("type", string(kind)).Msg("ignoring unknown message")
		return nil
	}
	var msg protocol.Control
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return c.Apply(msg)
}

// Apply runs a remote control command against the device.
func (c *SyncController) Apply(msg protocol.Control) error {
	if !c.dev.Ready() {
		log.Debug().Str("module", "client").Str("type", string(msg.Type)).Msg("device not ready, remote command dropped")
		return ErrDeviceNotReady
	}

	switch msg.Type {
	case protocol.KindPlay:
		speed := domain.NormalizeSpeed(msg.Speed)
		c.suppress()
		c.setSpeed(speed)
		c.dev.Seek(msg.Position)
		c.dev.SetRate(speed)
		c.dev.Play()
	case protocol.KindPause:
		c.suppress()
		c.dev.Seek(msg.Position)
		c.dev.Pause()
	case protocol.KindSeek:
		c.suppress()
		c.dev.Seek(msg.Position)
	case protocol.KindSyncVideo:
		c.applySync(msg)
	case protocol.KindMute:
		c.dev.Mute()
	case protocol.KindUnmute:
		c.dev.Unmute()
	}
	return nil
}

func (c *SyncController) applySync(msg protocol.Control) {
	speed := domain.NormalizeSpeed(msg.Speed)
	seek := math.Abs(c.dev.CurrentTime()-msg.Position) > c.drift
	rate := speed != c.Speed()
	if !seek && !rate && msg.Playing == nil {
		return
	}

	c.suppress()
	if seek {
		c.dev.Seek(msg.Position)
	}
	if rate {
		c.setSpeed(speed)
		c.dev.SetRate(speed)
	}
	if msg.Playing != nil {
		if *msg.Playing {
			c.dev.Play()
		} else {
			c.dev.Pause()
		}
	}
}

// Heartbeat sends the local position while playing so the room's cached
// state stays fresh for late joiners. It returns when ctx ends.
func (c *SyncController) Heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !c.dev.Ready() || c.dev.State() != StatePlaying || c.Suppressed() {
				continue
			}
			if err := c.send(protocol.NewSyncVideo(c.RoomID, c.dev.CurrentTime(), c.Speed())); err != nil {
				return err
			}
		}
	}
}

func (c *SyncController) onDeviceState(st DeviceState) {
	if c.Suppressed() {
		log.Debug().Str("module", "client").Str("state", st.String()).Msg("suppressed device event")
		return
	}
	if !c.dev.Ready() {
		return
	}

	var err error
	switch st {
	case StatePlaying:
		err = c.send(protocol.NewPlay(c.RoomID, c.dev.CurrentTime(), c.Speed()))
	case StatePaused:
		err = c.send(protocol.NewPause(c.RoomID, c.dev.CurrentTime()))
	default:
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "client").Str("state", st.String()).Msg("broadcast device event")
	}
}

// suppress opens one window. Each window releases only itself, so a later
// command keeps events suppressed until its own window ends.
func (c *SyncController) suppress() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
	c.after(c.window, c.release)
}

func (c *SyncController) release() {
	c.mu.Lock()
	if c.pending > 0 {
		c.pending--
	}
	c.mu.Unlock()
}

func (c *SyncController) setSpeed(speed float64) {
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

func (c *SyncController) send(msg any) error {
	if err := c.out.Send(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
