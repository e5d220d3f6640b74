package packet

import "fmt"

// Phase is the protocol phase a connection is in. Packet ids are only
// meaningful relative to a phase.
type Phase int

const (
	PhaseHandshake Phase = iota
	PhaseStatus
	PhaseLogin
	PhaseConfiguration
	PhaseGame
)

func (p Phase) String() string {
	switch p {
	case PhaseHandshake:
		return "Handshake"
	case PhaseStatus:
		return "Status"
	case PhaseLogin:
		return "Login"
	case PhaseConfiguration:
		return "Configuration"
	case PhaseGame:
		return "Game"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// CanAdvance reports whether a connection in phase p may move to next.
// The graph is Handshake -> {Status, Login}, Login -> Configuration,
// Configuration -> Game. Nothing else is legal.
func (p Phase) CanAdvance(next Phase) bool {
	switch p {
	case PhaseHandshake:
		return next == PhaseStatus || next == PhaseLogin
	case PhaseLogin:
		return next == PhaseConfiguration
	case PhaseConfiguration:
		return next == PhaseGame
	default:
		return false
	}
}
