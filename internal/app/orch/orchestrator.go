package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Watch/internal/app"
	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
	"github.com/rs/zerolog/log"
)

// ConnectionManager drives every connection through Unjoined, Joined and
// Closed. It is the only place that resolves a connection to its room.
type ConnectionManager struct {
	Registry *app.Registry
	Rooms    *app.RoomRegistry
	Relay    *app.EventRelay
}

func NewConnectionManager(rooms *app.RoomRegistry, relay *app.EventRelay) *ConnectionManager {
	return &ConnectionManager{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Relay:    relay,
	}
}

// Connect registers a fresh, unjoined connection. cancel stops the
// connection's own goroutines and may be nil.
func (m *ConnectionManager) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	m.Registry.BindSignal(sid, sess, cancel)
}

// OnCommand relays a control message from sid to the rest of its room.
// Errors are for logging only; nothing is reported back to the sender.
func (m *ConnectionManager) OnCommand(sid core.SessionID, msg protocol.Control) error {
	if !msg.Type.IsControl() {
		return fmt.Errorf("%w: %q is not a control message", domain.ErrInvalidState, msg.Type)
	}
	roomID, _, ok := m.Registry.RoomOf(sid)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("type", string(msg.Type)).Msg("command before join, dropped")
		return domain.ErrInvalidState
	}
	room, ok := m.Rooms.Get(roomID)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("room gone, command dropped")
		return domain.ErrRoomNotFound
	}
	if msg.RoomID != "" && domain.RoomID(msg.RoomID) != roomID {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("claimed", msg.RoomID).Str("room", string(roomID)).Msg("command names another room, using joined room")
	}
	m.Relay.Handle(room, sid, msg)
	return nil
}

// Disconnect closes sid for good. Calling it again is a no-op.
func (m *ConnectionManager) Disconnect(sid core.SessionID) {
	m.Registry.Cancel(sid)
	roomID, joined := m.Registry.Unbind(sid)
	if !joined {
		return
	}
	m.leaveRoom(sid, roomID)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("disconnected")
}
