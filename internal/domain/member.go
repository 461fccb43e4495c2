// Package domain contains entity without logic, just meta-data
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberID identifies one transport connection. A browser with two tabs
// open is two members.
type MemberID string

type Member struct {
	ID          MemberID
	ConnectedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember() *Member {
	return &Member{
		ID:          MemberID(uuid.NewString()),
		ConnectedAt: time.Now(),
	}
}
