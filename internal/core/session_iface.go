package core

import "github.com/dkeye/Watch/internal/domain"

// SessionID is the connection id; it doubles as the member id published
// in roomUsers snapshots.
type SessionID string

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	Meta() *domain.Member
	Signal() SignalConnection
}
