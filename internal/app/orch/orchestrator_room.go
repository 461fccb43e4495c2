package orch

import (
	"fmt"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join moves sid into roomID. An unknown room leaves the connection exactly
// as it was. A connection already in another room leaves it once the new
// join has succeeded.
func (m *ConnectionManager) Join(sid core.SessionID, roomID domain.RoomID, media domain.MediaRef) error {
	sess, ok := m.Registry.GetSession(sid)
	if !ok {
		return domain.ErrInvalidState
	}
	current, _, joined := m.Registry.RoomOf(sid)

	room, err := m.Rooms.AddMember(roomID, sid, sess)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	if joined && current != roomID {
		m.leaveRoom(sid, current)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(current)).Msg("left room to join another")
	}
	m.Registry.UpdateRoom(sid, roomID)

	if media != "" && media != room.Room().Media {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).
			Str("want", string(media)).Str("have", string(room.Room().Media)).Msg("joined room plays different media")
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("added to room")

	m.Relay.Membership(room)
	m.Relay.ReplayState(room, sid)
	return nil
}

// Leave takes sid out of its room but keeps the connection open.
func (m *ConnectionManager) Leave(sid core.SessionID) bool {
	roomID, _, ok := m.Registry.RoomOf(sid)
	if !ok {
		return false
	}
	m.leaveRoom(sid, roomID)
	m.Registry.RemoveRoom(sid)
	return true
}

func (m *ConnectionManager) leaveRoom(sid core.SessionID, roomID domain.RoomID) {
	room, deleted := m.Rooms.RemoveMember(roomID, sid)
	if room == nil || deleted {
		return
	}
	m.Relay.Membership(room)
}
