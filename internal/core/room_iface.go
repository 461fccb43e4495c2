package core

import (
	"github.com/dkeye/Watch/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the relay.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the core-facing API of a room.
// It owns the membership set and the cached playback state but never
// touches transport resources beyond a non-blocking TrySend.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	// Members returns session ids in join order.
	Members() []SessionID
	Has(sid SessionID) bool
	// JoinedOnce reports whether any member has ever joined.
	JoinedOnce() bool

	AddMember(sid SessionID, ms MemberSession)
	// RemoveMember returns false when sid was not a member.
	RemoveMember(sid SessionID) bool

	PlaybackState() domain.PlaybackState
	UpdatePlaybackState(fn func(*domain.PlaybackState))

	// Broadcast sends to every member except from.
	Broadcast(from SessionID, data Frame) PublishResult
	// BroadcastAll sends to every member.
	BroadcastAll(data Frame) PublishResult
	SendTo(sid SessionID, data Frame) error
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"roomId"`
	Media       domain.MediaRef `json:"url"`
	MemberCount int             `json:"memberCount"`
}
