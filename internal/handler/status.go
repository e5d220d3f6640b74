package handler

import (
	"encoding/json"
	"fmt"

	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"go.uber.org/zap"
)

type statusResponse struct {
	Version            statusVersion       `json:"version"`
	Players            statusPlayers       `json:"players"`
	Description        gonet.TextComponent `json:"description"`
	EnforcesSecureChat bool                `json:"enforcesSecureChat"`
}

type statusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type statusPlayers struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []statusSample `json:"sample"`
}

type statusSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// HandleStatus answers server list queries until the client pings or
// hangs up. Both end the connection normally.
func HandleStatus(conn *gonet.Conn, deps *Deps) error {
	log := conn.Log()
	for {
		id, r, err := conn.ReadPacket()
		if err != nil {
			if gonet.IsConnectionClosed(err) {
				log.Debug("Client closed status connection")
				return nil
			}
			return err
		}

		switch id {
		case packet.ServerboundStatusRequest:
			body, err := json.Marshal(buildStatus(deps))
			if err != nil {
				return fmt.Errorf("encode status response: %w", err)
			}
			w := packet.NewWriterWithID(packet.ClientboundStatusResponse)
			w.WriteString(string(body))
			if err := conn.WritePacket(w); err != nil {
				return err
			}
			log.Debug("Sent status response")

		case packet.ServerboundPingRequest:
			payload := r.ReadLong()
			if err := r.Err(); err != nil {
				return conn.MalformedPacket(id, err)
			}
			w := packet.NewWriterWithID(packet.ClientboundPongResponse)
			w.WriteLong(payload)
			if err := conn.WritePacket(w); err != nil {
				return err
			}
			log.Debug("Answered ping", zap.Int64("payload", payload))
			return nil

		default:
			return conn.UnknownPacket(id)
		}
	}
}

func buildStatus(deps *Deps) statusResponse {
	cfg := deps.Config.Server
	online := deps.Players.Count()

	motd := cfg.MOTD
	if desc, ok := deps.Scripts.StatusDescription(online, cfg.MaxPlayers); ok {
		motd = desc
	}

	return statusResponse{
		Version: statusVersion{
			Name:     cfg.Version,
			Protocol: packet.ProtocolVersion,
		},
		Players: statusPlayers{
			Max:    cfg.MaxPlayers,
			Online: online,
			Sample: []statusSample{},
		},
		Description: gonet.TextComponent{Text: motd},
	}
}
