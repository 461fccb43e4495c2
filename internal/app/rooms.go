package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	maxIDAttempts       = 16
	defaultGracePeriod  = 10 * time.Minute
	defaultSweepPeriod  = time.Minute
	directoryQueueDepth = 256
	directoryTimeout    = 3 * time.Second
)

// RoomRegistry owns the set of live rooms. It never talks to the network:
// directory notifications are queued and drained by Run.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService

	idLen int
	grace time.Duration
	sweep time.Duration
	newID func(n int) (domain.RoomID, error)
	now   func() time.Time

	dir   store.Directory
	queue chan func(context.Context) error
}

type RegistryOption func(*RoomRegistry)

func WithIDLength(n int) RegistryOption {
	return func(r *RoomRegistry) { r.idLen = n }
}

// WithGracePeriod bounds how long a created room may wait for its first join.
func WithGracePeriod(d time.Duration) RegistryOption {
	return func(r *RoomRegistry) {
		if d > 0 {
			r.grace = d
		}
	}
}

func WithSweepInterval(d time.Duration) RegistryOption {
	return func(r *RoomRegistry) {
		if d > 0 {
			r.sweep = d
		}
	}
}

func WithDirectory(d store.Directory) RegistryOption {
	return func(r *RoomRegistry) { r.dir = d }
}

func WithIDGenerator(fn func(n int) (domain.RoomID, error)) RegistryOption {
	return func(r *RoomRegistry) { r.newID = fn }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *RoomRegistry) { r.now = now }
}

func NewRoomRegistry(opts ...RegistryOption) *RoomRegistry {
	r := &RoomRegistry{
		rooms: make(map[domain.RoomID]core.RoomService),
		idLen: domain.DefaultRoomIDLen,
		grace: defaultGracePeriod,
		sweep: defaultSweepPeriod,
		newID: domain.NewRoomID,
		now:   time.Now,
		dir:   store.Nop{},
		queue: make(chan func(context.Context) error, directoryQueueDepth),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a fresh id and stores an empty room. An id already in
// use is redrawn, never overwritten.
func (r *RoomRegistry) Create(media domain.MediaRef) (core.RoomService, error) {
	if media == "" {
		return nil, domain.ErrEmptyMediaRef
	}

	r.mu.Lock()
	var room core.RoomService
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := r.newID(r.idLen)
		if err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("generate room id: %w", err)
		}
		if _, taken := r.rooms[id]; taken {
			log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("room id collision, retrying")
			continue
		}
		room = core.NewRoomService(&domain.Room{ID: id, Media: media, CreatedAt: r.now()})
		r.rooms[id] = room
		break
	}
	r.mu.Unlock()

	if room == nil {
		return nil, domain.ErrIDSpaceExhausted
	}

	meta := room.Room()
	log.Info().Str("module", "app.rooms").Str("room", string(meta.ID)).Str("media", string(meta.Media)).Msg("room created")
	r.notify(func(ctx context.Context) error {
		return r.dir.RoomCreated(ctx, store.RoomRecord{ID: meta.ID, Media: meta.Media, CreatedAt: meta.CreatedAt})
	})
	return room, nil
}

func (r *RoomRegistry) Get(id domain.RoomID) (core.RoomService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// AddMember fails with domain.ErrRoomNotFound and leaves the registry
// untouched when id is unknown.
func (r *RoomRegistry) AddMember(id domain.RoomID, sid core.SessionID, ms core.MemberSession) (core.RoomService, error) {
	r.mu.Lock()
	room, ok := r.rooms[id]
	if !ok {
		r.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	room.AddMember(sid, ms)
	r.mu.Unlock()

	r.notifyMembers(room)
	return room, nil
}

// RemoveMember is idempotent. When the last member leaves the room is
// deleted before the call returns and deleted is true.
func (r *RoomRegistry) RemoveMember(id domain.RoomID, sid core.SessionID) (room core.RoomService, deleted bool) {
	r.mu.Lock()
	room, ok := r.rooms[id]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	removed := room.RemoveMember(sid)
	if room.JoinedOnce() && room.MemberCount() == 0 {
		delete(r.rooms, id)
		deleted = true
	}
	r.mu.Unlock()

	switch {
	case deleted:
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted, last member left")
		r.notify(func(ctx context.Context) error { return r.dir.RoomDeleted(ctx, id) })
	case removed:
		r.notifyMembers(room)
	}
	return room, deleted
}

// UpdatePlaybackState applies fn to the cached state of id. No ordering or
// monotonicity checks are made.
func (r *RoomRegistry) UpdatePlaybackState(id domain.RoomID, fn func(*domain.PlaybackState)) bool {
	room, ok := r.Get(id)
	if !ok {
		return false
	}
	room.UpdatePlaybackState(fn)
	return true
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *RoomRegistry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, core.RoomInfo{ID: id, Media: room.Room().Media, MemberCount: room.MemberCount()})
	}
	return out
}

// Sweep evicts rooms that never saw a join within the grace period, and any
// joined room that is somehow empty.
func (r *RoomRegistry) Sweep(now time.Time) []domain.RoomID {
	var evicted []domain.RoomID

	r.mu.Lock()
	for id, room := range r.rooms {
		if room.MemberCount() > 0 {
			continue
		}
		if room.JoinedOnce() || now.Sub(room.Room().CreatedAt) >= r.grace {
			delete(r.rooms, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evicted {
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room evicted, never joined")
		r.notify(func(ctx context.Context) error { return r.dir.RoomDeleted(ctx, id) })
	}
	return evicted
}

// Run sweeps on a ticker and drains directory notifications until ctx ends.
func (r *RoomRegistry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		case fn := <-r.queue:
			callCtx, cancel := context.WithTimeout(ctx, directoryTimeout)
			if err := fn(callCtx); err != nil {
				log.Warn().Err(err).Str("module", "app.rooms").Msg("directory update failed")
			}
			cancel()
		}
	}
}

func (r *RoomRegistry) notifyMembers(room core.RoomService) {
	id := room.Room().ID
	members := room.Members()
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = string(m)
	}
	r.notify(func(ctx context.Context) error { return r.dir.MembersChanged(ctx, id, ids) })
}

func (r *RoomRegistry) notify(fn func(context.Context) error) {
	if _, ok := r.dir.(store.Nop); ok {
		return
	}
	select {
	case r.queue <- fn:
	default:
		log.Warn().Str("module", "app.rooms").Msg("directory queue full, dropping update")
	}
}
