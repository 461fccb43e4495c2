// Package protocol defines the JSON messages exchanged over the realtime
// connection. Every message is a flat object carrying a "type" field.
package protocol

import (
	"encoding/json"
	"fmt"
)

type Kind string

// Client -> Server.
const (
	KindJoinRoom  Kind = "joinRoom"
	KindLeaveRoom Kind = "leaveRoom"
	KindPing      Kind = "ping"
)

// Control messages travel in both directions.
const (
	KindPlay      Kind = "play"
	KindPause     Kind = "pause"
	KindSeek      Kind = "seek"
	KindMute      Kind = "mute"
	KindUnmute    Kind = "unmute"
	KindSyncVideo Kind = "syncVideo"
)

// Server -> Client.
const (
	KindRoomUsers Kind = "roomUsers"
	KindPong      Kind = "pong"
)

// IsControl reports whether k is a playback control kind.
func (k Kind) IsControl() bool {
	switch k {
	case KindPlay, KindPause, KindSeek, KindMute, KindUnmute, KindSyncVideo:
		return true
	}
	return false
}

// Envelope is decoded first to route a raw frame.
type Envelope struct {
	Type Kind `json:"type"`
}

type JoinRoom struct {
	Type   Kind   `json:"type"`
	RoomID string `json:"roomId"`
	URL    string `json:"url,omitempty"`
}

// Control is the payload shared by play, pause, seek, mute, unmute and
// syncVideo. On the wire each kind carries only its own fields; see
// MarshalJSON. RoomID is only set on client frames; relayed copies drop it.
type Control struct {
	Type     Kind    `json:"type"`
	RoomID   string  `json:"roomId,omitempty"`
	Position float64 `json:"position"`
	Speed    float64 `json:"speed,omitempty"`
	// Playing is only set when the server replays room state to a joiner.
	Playing *bool `json:"playing,omitempty"`
}

type RoomUsers struct {
	Type  Kind     `json:"type"`
	Users []string `json:"users"`
}

type Pong struct {
	Type Kind `json:"type"`
}

type barePayload struct {
	Type   Kind   `json:"type"`
	RoomID string `json:"roomId,omitempty"`
}

type positionPayload struct {
	Type     Kind    `json:"type"`
	RoomID   string  `json:"roomId,omitempty"`
	Position float64 `json:"position"`
}

type ratePayload struct {
	Type     Kind    `json:"type"`
	RoomID   string  `json:"roomId,omitempty"`
	Position float64 `json:"position"`
	Speed    float64 `json:"speed"`
	Playing  *bool   `json:"playing,omitempty"`
}

// MarshalJSON writes the fields of c's kind. Position is always present for
// the kinds that carry one, including 0.
func (c Control) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case KindMute, KindUnmute:
		return json.Marshal(barePayload{Type: c.Type, RoomID: c.RoomID})
	case KindPause, KindSeek:
		return json.Marshal(positionPayload{Type: c.Type, RoomID: c.RoomID, Position: c.Position})
	default:
		return json.Marshal(ratePayload{Type: c.Type, RoomID: c.RoomID, Position: c.Position, Speed: c.Speed, Playing: c.Playing})
	}
}

// Relayed returns the server-to-client copy of c.
func (c Control) Relayed() Control {
	out := c
	out.RoomID = ""
	if c.Type != KindSyncVideo {
		out.Playing = nil
	}
	return out
}

func NewPlay(roomID string, position, speed float64) Control {
	return Control{Type: KindPlay, RoomID: roomID, Position: position, Speed: speed}
}

func NewPause(roomID string, position float64) Control {
	return Control{Type: KindPause, RoomID: roomID, Position: position}
}

func NewSeek(roomID string, position float64) Control {
	return Control{Type: KindSeek, RoomID: roomID, Position: position}
}

func NewMute(roomID string, muted bool) Control {
	if muted {
		return Control{Type: KindMute, RoomID: roomID}
	}
	return Control{Type: KindUnmute, RoomID: roomID}
}

func NewSyncVideo(roomID string, position, speed float64) Control {
	return Control{Type: KindSyncVideo, RoomID: roomID, Position: position, Speed: speed}
}

// KindOf peeks at the type field of a raw frame.
func KindOf(data []byte) (Kind, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("decode envelope: missing type")
	}
	return env.Type, nil
}

// Encode marshals any protocol message.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}
