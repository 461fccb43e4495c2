package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

type (
	RoomID   string
	MediaRef string
)

const (
	DefaultRoomIDLen = 6
	// RoomIDAlphabet leaves out 0/O and 1/I so ids survive being read aloud.
	RoomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidState     = errors.New("connection has not joined a room")
	ErrEmptyMediaRef    = errors.New("media reference empty")
	ErrIDSpaceExhausted = errors.New("could not allocate unique room id")
)

// Room is the immutable part of a synchronization group.
type Room struct {
	ID        RoomID
	Media     MediaRef
	CreatedAt time.Time
}

// NewRoomID draws n characters from RoomIDAlphabet using crypto/rand.
func NewRoomID(n int) (RoomID, error) {
	if n <= 0 {
		n = DefaultRoomIDLen
	}
	max := big.NewInt(int64(len(RoomIDAlphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = RoomIDAlphabet[v.Int64()]
	}
	return RoomID(b), nil
}
