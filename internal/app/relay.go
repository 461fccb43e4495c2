package app

import (
	"time"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
	"github.com/rs/zerolog/log"
)

// EventRelay turns control messages into room state updates and fan-out.
// Callers hand it an already resolved room; it never looks rooms up by id
// except to update the cached state through the registry.
type EventRelay struct {
	Rooms  *RoomRegistry
	Policy Policy

	now func() time.Time
}

func NewEventRelay(rooms *RoomRegistry, policy Policy) *EventRelay {
	return &EventRelay{Rooms: rooms, Policy: policy, now: time.Now}
}

// Handle dispatches msg by kind. Non-control kinds are ignored.
func (r *EventRelay) Handle(room core.RoomService, from core.SessionID, msg protocol.Control) {
	switch msg.Type {
	case protocol.KindPlay:
		r.Play(room, from, msg)
	case protocol.KindPause:
		r.Pause(room, from, msg)
	case protocol.KindSeek:
		r.Seek(room, from, msg)
	case protocol.KindMute:
		r.Mute(room, from, msg)
	case protocol.KindUnmute:
		r.Unmute(room, from, msg)
	case protocol.KindSyncVideo:
		r.SyncVideo(room, from, msg)
	default:
		log.Warn().Str("module", "app.relay").Str("type", string(msg.Type)).Msg("not a control message")
	}
}

func (r *EventRelay) Play(room core.RoomService, from core.SessionID, msg protocol.Control) {
	r.Rooms.UpdatePlaybackState(room.Room().ID, func(s *domain.PlaybackState) {
		s.Position = msg.Position
		s.Speed = domain.NormalizeSpeed(msg.Speed)
		s.Playing = true
	})
	r.fanOut(room, from, msg)
}

func (r *EventRelay) Pause(room core.RoomService, from core.SessionID, msg protocol.Control) {
	r.Rooms.UpdatePlaybackState(room.Room().ID, func(s *domain.PlaybackState) {
		s.Position = msg.Position
		s.Playing = false
	})
	r.fanOut(room, from, msg)
}

func (r *EventRelay) Seek(room core.RoomService, from core.SessionID, msg protocol.Control) {
	r.Rooms.UpdatePlaybackState(room.Room().ID, func(s *domain.PlaybackState) {
		s.Position = msg.Position
	})
	r.fanOut(room, from, msg)
}

func (r *EventRelay) Mute(room core.RoomService, from core.SessionID, msg protocol.Control) {
	r.fanOut(room, from, msg)
}

func (r *EventRelay) Unmute(room core.RoomService, from core.SessionID, msg protocol.Control) {
	r.fanOut(room, from, msg)
}

func (r *EventRelay) SyncVideo(room core.RoomService, from core.SessionID, msg protocol.Control) {
	r.Rooms.UpdatePlaybackState(room.Room().ID, func(s *domain.PlaybackState) {
		s.Position = msg.Position
		s.Speed = domain.NormalizeSpeed(msg.Speed)
		// Clients only send syncVideo while playing.
		s.Playing = true
		if msg.Playing != nil {
			s.Playing = *msg.Playing
		}
	})
	r.fanOut(room, from, msg)
}

// Membership sends the full member list to every member, including the one
// whose join or leave triggered it.
func (r *EventRelay) Membership(room core.RoomService) {
	members := room.Members()
	users := make([]string, len(members))
	for i, m := range members {
		users[i] = string(m)
	}
	data, err := protocol.Encode(protocol.RoomUsers{Type: protocol.KindRoomUsers, Users: users})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode roomUsers")
		return
	}
	r.applyPolicy(room, room.BroadcastAll(data))
}

// ReplayState sends the room's cached state to a member that just joined.
// It reports whether anything was sent.
func (r *EventRelay) ReplayState(room core.RoomService, to core.SessionID) bool {
	st := room.PlaybackState()
	if !st.Known() {
		return false
	}
	playing := st.Playing
	msg := protocol.Control{
		Type:     protocol.KindSyncVideo,
		Position: st.PositionAt(r.now()),
		Speed:    domain.NormalizeSpeed(st.Speed),
		Playing:  &playing,
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode replay")
		return false
	}
	if err := room.SendTo(to, data); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("sid", string(to)).Msg("replay not delivered")
		return false
	}
	return true
}

func (r *EventRelay) fanOut(room core.RoomService, from core.SessionID, msg protocol.Control) {
	data, err := protocol.Encode(msg.Relayed())
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode relayed message")
		return
	}
	r.applyPolicy(room, room.Broadcast(from, data))
}

func (r *EventRelay) applyPolicy(room core.RoomService, res core.PublishResult) {
	if r.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch r.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.relay").Str("sid", string(slow.ID())).Msg("kicking slow member")
			// Closing the transport ends its read loop, which runs the
			// regular disconnect path.
			slow.Signal().Close()
		case DropFrame, NoAction:
		}
	}
}
