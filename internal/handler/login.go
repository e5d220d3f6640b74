package handler

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/limbomc/limbo/internal/forwarding"
	"github.com/limbomc/limbo/internal/metrics"
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/limbomc/limbo/internal/player"
	"go.uber.org/zap"
)

// loginState tracks progress through the Login phase.
type loginState int

const (
	loginAwaitHello loginState = iota
	loginAwaitQueryAnswer
	loginAwaitAcknowledged
)

func (s loginState) String() string {
	switch s {
	case loginAwaitHello:
		return "Hello"
	case loginAwaitQueryAnswer:
		return "QueryAnswer"
	case loginAwaitAcknowledged:
		return "PhaseSwitch"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// expectState disconnects with reason unless the handler is in want.
func expectState[S comparable](conn *gonet.Conn, have, want S, reason string) error {
	if have != want {
		return conn.Disconnect(reason)
	}
	return nil
}

// HandleLogin authenticates the player, registers it and returns the
// connection advanced to Configuration. If the login fails after the
// player was registered, the registration is released again.
func HandleLogin(conn *gonet.Conn, deps *Deps) (next *gonet.Conn, p *player.Player, err error) {
	log := conn.Log()
	defer func() {
		if err != nil && p != nil {
			deps.Players.Release(p)
			p = nil
		}
	}()

	state := loginAwaitHello
	var transactionID int32

	for {
		id, r, err := conn.ReadPacket()
		if err != nil {
			return nil, p, err
		}

		switch id {
		case packet.ServerboundHello:
			if err := expectState(conn, state, loginAwaitHello, "Unexpected hello packet"); err != nil {
				return nil, p, err
			}
			name := r.ReadString(player.MaxNameLength)
			if r.Remaining() >= 16 {
				r.ReadUUID() // the client's own claim; never trusted
			}
			if err := r.Err(); err != nil {
				return nil, p, conn.MalformedPacket(id, err)
			}
			log.Debug("Received hello", zap.String("username", name))

			if !player.ValidName(name) {
				return nil, p, conn.Disconnect("Invalid characters in username")
			}

			if deps.Config.Forwarding.Enabled {
				transactionID = rand.Int31n(math.MaxInt32)
				w := packet.NewWriterWithID(packet.ClientboundCustomQuery)
				w.WriteVarInt(transactionID)
				w.WriteIdentifier(forwarding.Channel)
				w.WriteBytes(forwarding.QueryPayload)
				if err := conn.WritePacket(w); err != nil {
					return nil, p, err
				}
				state = loginAwaitQueryAnswer
				continue
			}

			p, err = player.New(conn.Addr(), name, player.OfflineUUID(name), nil)
			if err != nil {
				return nil, p, internalError(conn, err)
			}
			if err := admit(conn, deps, p, metrics.ModeOffline); err != nil {
				return nil, p, err
			}
			state = loginAwaitAcknowledged

		case packet.ServerboundKey:
			log.Warn("Received encryption response, but encryption is not supported")
			return nil, p, conn.Disconnect("Encryption is not supported")

		case packet.ServerboundCustomQueryAnswer:
			if err := expectState(conn, state, loginAwaitQueryAnswer, "Unexpected custom query answer packet"); err != nil {
				return nil, p, err
			}
			answerID := r.ReadVarInt()
			var data []byte
			if r.ReadBool() {
				data = r.ReadRest()
			}
			if err := r.Err(); err != nil {
				return nil, p, conn.MalformedPacket(id, err)
			}

			info, err := verifyForwarding(conn, deps, transactionID, answerID, data)
			if err != nil {
				return nil, p, err
			}
			addr := gonet.NewAddr(info.Addr, deps.Config.Server.HidePlayerIPs)
			p, err = player.New(addr, info.Name, info.UUID, info.Skin)
			if err != nil {
				return nil, p, internalError(conn, err)
			}
			if err := admit(conn, deps, p, metrics.ModeForwarded); err != nil {
				return nil, p, err
			}
			state = loginAwaitAcknowledged

		case packet.ServerboundLoginAcknowledged:
			if err := expectState(conn, state, loginAwaitAcknowledged, "Unexpected login acknowledgement packet"); err != nil {
				return nil, p, err
			}
			next, err := conn.Advance(packet.PhaseConfiguration)
			if err != nil {
				return nil, p, err
			}
			return next, p, nil

		default:
			return nil, p, conn.UnknownPacket(id)
		}
	}
}

func verifyForwarding(conn *gonet.Conn, deps *Deps, want, have int32, data []byte) (*forwarding.Info, error) {
	if have != want {
		return nil, conn.Disconnect(fmt.Sprintf("Transaction ID mismatch: expected %d, got %d", want, have))
	}
	if data == nil {
		return nil, conn.Disconnect("Invalid forwarding response data")
	}
	info, err := forwarding.Verify(data, []byte(deps.Config.Forwarding.Secret))
	if err != nil {
		conn.Log().Warn("Forwarding verification failed", zap.Error(err))
		return nil, conn.Disconnect(fmt.Sprintf("Failed to verify forwarding data: %v", err))
	}
	return info, nil
}

// admit runs the join hook, registers p and sends LoginSuccess.
func admit(conn *gonet.Conn, deps *Deps, p *player.Player, mode string) error {
	if reason := deps.Scripts.AllowJoin(p.Name(), p.UUID()); reason != "" {
		return conn.Disconnect(reason)
	}

	if prev := deps.Players.Add(p); prev != nil {
		conn.Log().Warn("Replaced existing session for player", zap.Stringer("player", p))
	}

	w := packet.NewWriterWithID(packet.ClientboundGameProfile)
	w.WriteUUID(p.UUID())
	w.WriteString(p.Name())
	writeProfileProperties(w, p.Skin())
	if err := conn.WritePacket(w); err != nil {
		return err
	}
	deps.Metrics.Logins.WithLabelValues(mode).Inc()
	conn.Log().Info("Player logged in", zap.Stringer("player", p), zap.Stringer("player_addr", p.Addr()))
	return nil
}

// writeProfileProperties writes the property list of a game profile:
// either empty or the single signed textures property.
func writeProfileProperties(w *packet.Writer, skin *player.Skin) {
	if skin == nil {
		w.WriteVarInt(0)
		return
	}
	w.WriteVarInt(1)
	w.WriteString(player.TexturesProperty)
	w.WriteString(skin.Value)
	w.WriteBool(skin.Signature != "")
	if skin.Signature != "" {
		w.WriteString(skin.Signature)
	}
}

// internalError logs err in full and disconnects the client with a
// generic reason.
func internalError(conn *gonet.Conn, err error) error {
	conn.Log().Error("Internal error", zap.Error(err))
	return conn.Disconnect("Internal error")
}
