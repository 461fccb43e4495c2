package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Watch/internal/protocol"
)

type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recorder) Send(msg any) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return nil
}

func (r *recorder) controls() []protocol.Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []protocol.Control
	for _, m := range r.msgs {
		if c, ok := m.(protocol.Control); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

// manualTimers collects window releases so tests decide when they fire.
type manualTimers struct {
	fns []func()
}

func (m *manualTimers) after(_ time.Duration, f func()) { m.fns = append(m.fns, f) }

func (m *manualTimers) fire(i int) { m.fns[i]() }

type fixture struct {
	dev    *SimDevice
	out    *recorder
	timers *manualTimers
	ctl    *SyncController
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{out: &recorder{}, timers: &manualTimers{}, now: time.Unix(100, 0)}
	f.dev = NewSimDevice(WithSimClock(func() time.Time { return f.now }))
	f.ctl = NewSyncController("AB12", f.dev, f.out, WithAfterFunc(f.timers.after))
	return f
}

func TestRemoteSeekIsNotEchoed(t *testing.T) {
	f := newFixture(t)
	f.dev.Play()
	f.out.reset()

	if err := f.ctl.Apply(protocol.Control{Type: protocol.KindSeek, Position: 30}); err != nil {
		t.Fatal(err)
	}
	if got := f.dev.CurrentTime(); got != 30 {
		t.Fatalf("position = %v, want 30", got)
	}
	if msgs := f.out.controls(); len(msgs) != 0 {
		t.Fatalf("remote seek echoed: %+v", msgs)
	}
}

func TestRemotePlayAndPauseAreNotEchoed(t *testing.T) {
	f := newFixture(t)

	f.ctl.Apply(protocol.Control{Type: protocol.KindPlay, Position: 10, Speed: 1.5})
	if f.dev.State() != StatePlaying || f.dev.Rate() != 1.5 || f.ctl.Speed() != 1.5 {
		t.Fatalf("state=%v rate=%v", f.dev.State(), f.dev.Rate())
	}
	f.ctl.Apply(protocol.Control{Type: protocol.KindPause, Position: 42.5})
	if f.dev.State() != StatePaused || f.dev.CurrentTime() != 42.5 {
		t.Fatalf("state=%v pos=%v", f.dev.State(), f.dev.CurrentTime())
	}
	if msgs := f.out.controls(); len(msgs) != 0 {
		t.Fatalf("remote commands echoed: %+v", msgs)
	}
}

func TestOverlappingCommandsStaySuppressed(t *testing.T) {
	f := newFixture(t)

	f.ctl.Apply(protocol.Control{Type: protocol.KindSeek, Position: 5})
	f.ctl.Apply(protocol.Control{Type: protocol.KindSeek, Position: 8})
	if len(f.timers.fns) != 2 {
		t.Fatalf("windows = %d, want 2", len(f.timers.fns))
	}

	f.timers.fire(0)
	if !f.ctl.Suppressed() {
		t.Fatal("first window ending must not lift the second")
	}
	f.dev.Play()
	if msgs := f.out.controls(); len(msgs) != 0 {
		t.Fatalf("event inside second window broadcast: %+v", msgs)
	}

	f.timers.fire(1)
	if f.ctl.Suppressed() {
		t.Fatal("still suppressed after every window ended")
	}
	f.dev.Pause()
	msgs := f.out.controls()
	if len(msgs) != 1 || msgs[0].Type != protocol.KindPause {
		t.Fatalf("msgs = %+v, want one pause", msgs)
	}
}

func TestUserActionsAlwaysEmit(t *testing.T) {
	f := newFixture(t)
	f.ctl.Apply(protocol.Control{Type: protocol.KindSeek, Position: 5})
	if !f.ctl.Suppressed() {
		t.Fatal("expected open window")
	}

	if err := f.ctl.SeekTo(12); err != nil {
		t.Fatal(err)
	}
	if err := f.ctl.ToggleMute(); err != nil {
		t.Fatal(err)
	}
	if err := f.ctl.ToggleMute(); err != nil {
		t.Fatal(err)
	}
	msgs := f.out.controls()
	want := []protocol.Kind{protocol.KindSeek, protocol.KindMute, protocol.KindUnmute}
	if len(msgs) != len(want) {
		t.Fatalf("msgs = %+v", msgs)
	}
	for i, k := range want {
		if msgs[i].Type != k || msgs[i].RoomID != "AB12" {
			t.Fatalf("msg %d = %+v, want %s", i, msgs[i], k)
		}
	}
	if msgs[0].Position != 12 {
		t.Fatalf("seek position = %v", msgs[0].Position)
	}
}

func TestUserPauseReportsPosition(t *testing.T) {
	f := newFixture(t)
	f.dev.Seek(40)
	f.dev.Play()
	f.now = f.now.Add(2500 * time.Millisecond)
	f.out.reset()

	if err := f.ctl.Pause(); err != nil {
		t.Fatal(err)
	}
	var pauses []protocol.Control
	for _, m := range f.out.controls() {
		if m.Type == protocol.KindPause {
			pauses = append(pauses, m)
		}
	}
	if len(pauses) == 0 || pauses[len(pauses)-1].Position != 42.5 {
		t.Fatalf("pauses = %+v", pauses)
	}
}

func TestSetSpeedEmitsPlay(t *testing.T) {
	f := newFixture(t)
	if err := f.ctl.SetSpeed(2); err != nil {
		t.Fatal(err)
	}
	msgs := f.out.controls()
	if len(msgs) != 1 || msgs[0].Type != protocol.KindPlay || msgs[0].Speed != 2 {
		t.Fatalf("msgs = %+v", msgs)
	}
	if f.dev.Rate() != 2 {
		t.Fatalf("rate = %v", f.dev.Rate())
	}

	f.out.reset()
	f.ctl.SetSpeed(-1)
	if got := f.out.controls()[0].Speed; got != 1 {
		t.Fatalf("negative speed not normalized: %v", got)
	}
}

func TestDeviceNotReady(t *testing.T) {
	f := newFixture(t)
	f.dev.SetReady(false)

	if err := f.ctl.Apply(protocol.Control{Type: protocol.KindSeek, Position: 9}); !errors.Is(err, ErrDeviceNotReady) {
		t.Fatalf("err = %v", err)
	}
	if f.dev.CurrentTime() != 0 || f.ctl.Suppressed() {
		t.Fatal("dropped command touched the device")
	}
	for name, action := range map[string]func() error{
		"play":  f.ctl.Play,
		"pause": f.ctl.Pause,
		"mute":  f.ctl.ToggleMute,
	} {
		if err := action(); !errors.Is(err, ErrDeviceNotReady) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
	if len(f.out.controls()) != 0 {
		t.Fatal("not-ready client sent messages")
	}
}

func TestSyncVideoDrift(t *testing.T) {
	cases := map[string]struct {
		local, remote float64
		wantPos       float64
	}{
		"within threshold": {local: 10, remote: 11.5, wantPos: 10},
		"beyond threshold": {local: 10, remote: 13, wantPos: 13},
		"behind":           {local: 10, remote: 7.5, wantPos: 7.5},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.dev.Seek(tc.local)
			f.ctl.Apply(protocol.Control{Type: protocol.KindSyncVideo, Position: tc.remote, Speed: 1})
			if got := f.dev.CurrentTime(); got != tc.wantPos {
				t.Fatalf("position = %v, want %v", got, tc.wantPos)
			}
		})
	}
}

func TestSyncVideoReplayStartsPlayback(t *testing.T) {
	f := newFixture(t)
	playing := true
	f.ctl.Apply(protocol.Control{Type: protocol.KindSyncVideo, Position: 60, Speed: 1.5, Playing: &playing})

	if f.dev.State() != StatePlaying || f.dev.CurrentTime() != 60 || f.dev.Rate() != 1.5 {
		t.Fatalf("state=%v pos=%v rate=%v", f.dev.State(), f.dev.CurrentTime(), f.dev.Rate())
	}
	if len(f.out.controls()) != 0 {
		t.Fatal("replay echoed back")
	}
}

func TestRemoteMuteIsNotSuppressed(t *testing.T) {
	f := newFixture(t)
	f.ctl.Apply(protocol.Control{Type: protocol.KindMute})
	if !f.dev.Muted() || f.ctl.Suppressed() {
		t.Fatalf("muted=%v suppressed=%v", f.dev.Muted(), f.ctl.Suppressed())
	}
	f.ctl.Apply(protocol.Control{Type: protocol.KindUnmute})
	if f.dev.Muted() {
		t.Fatal("unmute not applied")
	}
}

func TestHandleMessage(t *testing.T) {
	f := newFixture(t)
	if err := f.ctl.HandleMessage([]byte(`{"type":"roomUsers","users":["X","Y"]}`)); err != nil {
		t.Fatal(err)
	}
	if got := f.ctl.Members(); len(got) != 2 || got[0] != "X" || got[1] != "Y" {
		t.Fatalf("members = %v", got)
	}

	if err := f.ctl.HandleMessage([]byte(`{"type":"pause","position":42.5}`)); err != nil {
		t.Fatal(err)
	}
	if f.dev.CurrentTime() != 42.5 || f.dev.State() != StatePaused {
		t.Fatalf("pause not applied: %v %v", f.dev.CurrentTime(), f.dev.State())
	}

	if err := f.ctl.HandleMessage([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
	if err := f.ctl.HandleMessage([]byte(`{"type":"pong"}`)); err != nil {
		t.Fatal(err)
	}
}

func TestHeartbeatWhilePlaying(t *testing.T) {
	out := &recorder{}
	dev := NewSimDevice()
	ctl := NewSyncController("AB12", dev, out)
	dev.Play()
	out.reset()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctl.Heartbeat(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var syncs int
		for _, m := range out.controls() {
			if m.Type == protocol.KindSyncVideo {
				syncs++
			}
		}
		if syncs > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no syncVideo heartbeat")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestSlowDeviceEventWithinWindowIsSuppressed(t *testing.T) {
	out := &recorder{}
	dev := NewSimDevice(WithEventDelay(20 * time.Millisecond))
	ctl := NewSyncController("AB12", dev, out, WithSuppressWindow(300*time.Millisecond))

	if err := ctl.Apply(protocol.Control{Type: protocol.KindPlay, Position: 10, Speed: 1}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if dev.State() != StatePlaying {
		t.Fatalf("device state = %s", dev.State())
	}
	if msgs := out.controls(); len(msgs) != 0 {
		t.Fatalf("remote play echoed: %+v", msgs)
	}
}

// A device that reports later than the window outlives suppression and its
// event goes out as a local action.
func TestSlowDeviceEventAfterWindowIsEmitted(t *testing.T) {
	out := &recorder{}
	dev := NewSimDevice(WithEventDelay(150 * time.Millisecond))
	ctl := NewSyncController("AB12", dev, out, WithSuppressWindow(30*time.Millisecond))

	if err := ctl.Apply(protocol.Control{Type: protocol.KindPlay, Position: 10, Speed: 1}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range out.controls() {
			if m.Type == protocol.KindPlay {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("late device event never emitted: %+v", out.controls())
}
