package handler

import (
	"fmt"

	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"go.uber.org/zap"
)

// HandleHandshake reads the client intention and returns the phase the
// connection moves to. Legacy pings are answered here and end the
// connection.
func HandleHandshake(conn *gonet.Conn, deps *Deps) (packet.Phase, error) {
	log := conn.Log()

	first, err := conn.PeekByte()
	if err != nil {
		return 0, err
	}
	if first == packet.LegacyPingMarker {
		log.Debug("Received legacy ping")
		deps.Metrics.Connections.WithLabelValues("legacy_ping").Inc()
		if err := respondLegacyPing(conn, deps); err != nil {
			return 0, err
		}
		return 0, conn.Disconnect("Unsupported client version")
	}

	id, r, err := conn.ReadPacket()
	if err != nil {
		return 0, err
	}
	if id != packet.ServerboundIntention {
		return 0, conn.UnknownPacket(id)
	}

	protocol := r.ReadVarInt()
	host := r.ReadString(255)
	port := r.ReadUShort()
	intention := r.ReadVarInt()
	if err := r.Err(); err != nil {
		return 0, conn.MalformedPacket(id, err)
	}
	log.Debug("Received client intention",
		zap.Int32("protocol", protocol),
		zap.String("host", host),
		zap.Uint16("port", port),
		zap.Int32("intention", intention))

	switch intention {
	case packet.IntentionStatus:
		deps.Metrics.Connections.WithLabelValues("status").Inc()
		return packet.PhaseStatus, nil
	case packet.IntentionLogin:
		deps.Metrics.Connections.WithLabelValues("login").Inc()
		return packet.PhaseLogin, nil
	default:
		deps.Metrics.Connections.WithLabelValues("unsupported").Inc()
		return 0, conn.Disconnect(fmt.Sprintf("Unsupported client intention: %d", intention))
	}
}
