// Package coretest provides in-memory transport fakes for package tests.
package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
)

// Signal records every frame queued on it.
type Signal struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	// Full makes TrySend fail with backpressure.
	Full bool
}

func (s *Signal) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrClosed
	}
	if s.Full {
		return core.ErrBackpressure
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *Signal) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Signal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Signal) Frames() []core.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Decoded unmarshals every recorded frame into a generic map.
func (s *Signal) Decoded() []map[string]any {
	var out []map[string]any
	for _, f := range s.Frames() {
		m := map[string]any{}
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// OfType returns decoded frames whose "type" equals typ.
func (s *Signal) OfType(typ string) []map[string]any {
	var out []map[string]any
	for _, m := range s.Decoded() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (s *Signal) Reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

// Session builds a member session with a fixed id.
func Session(id string) (core.MemberSession, *Signal) {
	sig := &Signal{}
	meta := &domain.Member{ID: domain.MemberID(id)}
	return core.NewMemberSession(meta, sig), sig
}
