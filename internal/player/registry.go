package player

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown UUID.
var ErrNotFound = errors.New("player not found")

// Registry tracks online players by UUID and hands out entity ids. It is
// shared by every connection.
type Registry struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*Player

	nextEntityID atomic.Int32
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[uuid.UUID]*Player)}
}

// Add inserts p, replacing any player with the same UUID. The replaced
// player is returned, or nil.
func (r *Registry) Add(p *Player) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.players[p.UUID()]
	r.players[p.UUID()] = p
	return prev
}

func (r *Registry) Get(id uuid.UUID) (*Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// Remove deletes the entry for id and returns it, or nil.
func (r *Registry) Remove(id uuid.UUID) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	delete(r.players, id)
	return p
}

// Release removes p only if it is still the registered entry for its
// UUID, so a session that was replaced cannot evict its successor.
func (r *Registry) Release(p *Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.players[p.UUID()] != p {
		return false
	}
	delete(r.players, p.UUID())
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Range calls fn for each player until fn returns false.
func (r *Registry) Range(fn func(*Player) bool) {
	r.mu.RLock()
	snapshot := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		snapshot = append(snapshot, p)
	}
	r.mu.RUnlock()
	for _, p := range snapshot {
		if !fn(p) {
			return
		}
	}
}

// NextEntityID returns the current counter value and increments it.
// Concurrent callers always get distinct values.
func (r *Registry) NextEntityID() int32 {
	return r.nextEntityID.Add(1) - 1
}
