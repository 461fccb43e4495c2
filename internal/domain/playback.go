package domain

import (
	"math"
	"time"
)

// KnownSpeeds are the rates offered by the player UI. Other positive rates
// are relayed as is.
var KnownSpeeds = []float64{0.5, 1, 1.5, 2}

func KnownSpeed(s float64) bool {
	for _, k := range KnownSpeeds {
		if k == s {
			return true
		}
	}
	return false
}

// NormalizeSpeed maps non-positive or non-finite rates to 1.
func NormalizeSpeed(s float64) float64 {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}

// PlaybackState is the last playback snapshot a room has seen.
// A zero UpdatedAt means no control message has reached the room yet.
type PlaybackState struct {
	Position  float64   `json:"position"`
	Speed     float64   `json:"speed"`
	Playing   bool      `json:"playing"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s PlaybackState) Known() bool { return !s.UpdatedAt.IsZero() }

// PositionAt extrapolates the position to now when the room is playing.
func (s PlaybackState) PositionAt(now time.Time) float64 {
	if !s.Playing || !s.Known() {
		return s.Position
	}
	elapsed := now.Sub(s.UpdatedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return s.Position + elapsed*NormalizeSpeed(s.Speed)
}
