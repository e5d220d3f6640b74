package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	gonet "github.com/limbomc/limbo/internal/net"
)

const (
	MinNameLength = 1
	MaxNameLength = 16
)

var (
	ErrInvalidName         = errors.New("invalid player name")
	ErrEntityIDAlreadySet  = errors.New("entity id already assigned")
	ErrEntityIDNotAssigned = errors.New("entity id not assigned")
)

// ValidName reports whether name is 1 to 16 printable ASCII characters
// with no spaces (0x21 through 0x7E).
func ValidName(name string) bool {
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x21 || name[i] > 0x7E {
			return false
		}
	}
	return true
}

// Player is one logged-in user. Identity fields never change after New;
// the skin layer mask and entity id are guarded by mu.
type Player struct {
	addr gonet.Addr
	name string
	id   uuid.UUID
	skin *Skin

	mu          sync.Mutex
	layers      SkinLayers
	entityID    int32
	hasEntityID bool
}

// New validates name and builds a player with every skin layer shown.
func New(addr gonet.Addr, name string, id uuid.UUID, skin *Skin) (*Player, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return &Player{
		addr:   addr,
		name:   name,
		id:     id,
		skin:   skin,
		layers: AllLayers,
	}, nil
}

func (p *Player) Addr() gonet.Addr {
	return p.addr
}

func (p *Player) Name() string {
	return p.name
}

func (p *Player) UUID() uuid.UUID {
	return p.id
}

// Skin returns the signed textures property, or nil for offline players.
func (p *Player) Skin() *Skin {
	return p.skin
}

func (p *Player) SkinLayers() SkinLayers {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layers
}

func (p *Player) SetSkinLayers(layers SkinLayers) {
	p.mu.Lock()
	p.layers = layers
	p.mu.Unlock()
}

// EntityID returns the assigned entity id.
func (p *Player) EntityID() (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasEntityID {
		return 0, ErrEntityIDNotAssigned
	}
	return p.entityID, nil
}

// AssignEntityID draws an id from reg. It succeeds at most once.
func (p *Player) AssignEntityID(reg *Registry) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasEntityID {
		return 0, ErrEntityIDAlreadySet
	}
	p.entityID = reg.NextEntityID()
	p.hasEntityID = true
	return p.entityID, nil
}

func (p *Player) String() string {
	return fmt.Sprintf("%s (%s)", p.name, p.id)
}
