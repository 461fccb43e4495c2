// Package store mirrors the live room set to an external directory so other
// processes can see which rooms exist. The relay never reads it back.
package store

import (
	"context"
	"time"

	"github.com/dkeye/Watch/internal/domain"
)

// RoomRecord is what gets published for one room.
type RoomRecord struct {
	ID        domain.RoomID   `json:"roomId"`
	Media     domain.MediaRef `json:"url"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Directory receives room lifecycle notifications.
type Directory interface {
	RoomCreated(ctx context.Context, rec RoomRecord) error
	MembersChanged(ctx context.Context, id domain.RoomID, members []string) error
	RoomDeleted(ctx context.Context, id domain.RoomID) error
	Close() error
}

// Config selects and configures the directory backend.
type Config struct {
	Driver string        `mapstructure:"driver"` // "memory", "redis"
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// New builds the directory named by cfg.Driver. Unknown drivers fall back
// to the no-op directory.
func New(cfg Config) (Directory, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisDirectory(cfg)
	default:
		return Nop{}, nil
	}
}

// Nop discards every notification.
type Nop struct{}

func (Nop) RoomCreated(context.Context, RoomRecord) error                  { return nil }
func (Nop) MembersChanged(context.Context, domain.RoomID, []string) error { return nil }
func (Nop) RoomDeleted(context.Context, domain.RoomID) error               { return nil }
func (Nop) Close() error                                                   { return nil }
