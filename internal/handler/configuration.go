package handler

import (
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/limbomc/limbo/internal/player"
	"go.uber.org/zap"
)

// HandleConfiguration sends the server brand, the registry data and the
// finish signal, then waits for the client to acknowledge it. Client
// settings received meanwhile are applied to p.
func HandleConfiguration(conn *gonet.Conn, p *player.Player, deps *Deps) (*gonet.Conn, error) {
	log := conn.Log().With(zap.String("player", p.Name()))

	if err := sendConfiguration(conn, deps); err != nil {
		return nil, err
	}

	brandReceived := false
	for {
		id, r, err := conn.ReadPacket()
		if err != nil {
			return nil, err
		}

		switch id {
		case packet.ServerboundClientInformation:
			locale := r.ReadString(16)
			viewDistance := int8(r.ReadUByte())
			chatMode := r.ReadVarInt()
			r.ReadBool() // chat colors
			layers := player.SkinLayers(r.ReadUByte())
			mainHand := r.ReadVarInt()
			r.ReadBool() // text filtering
			r.ReadBool() // allow server listings
			if err := r.Err(); err != nil {
				return nil, conn.MalformedPacket(id, err)
			}
			p.SetSkinLayers(layers)
			log.Debug("Received client information",
				zap.String("locale", locale),
				zap.Int8("view_distance", viewDistance),
				zap.Int32("chat_mode", chatMode),
				zap.Stringer("skin_layers", layers),
				zap.Int32("main_hand", mainHand))

		case packet.ServerboundConfigCustomPayload:
			channel := r.ReadIdentifier()
			payload := r.ReadRest()
			if err := r.Err(); err != nil {
				return nil, conn.MalformedPacket(id, err)
			}
			if channel != packet.BrandChannel {
				log.Debug("Ignoring plugin message", zap.String("channel", channel))
				continue
			}
			if brandReceived {
				continue
			}
			br := packet.NewReader(payload)
			brand := br.ReadString(0)
			if err := br.Err(); err != nil {
				return nil, internalError(conn, err)
			}
			brandReceived = true
			log.Info("Client brand", zap.String("brand", brand))

		case packet.ServerboundConfigKeepAlive:
			log.Debug("Received keep alive", zap.Int64("id", r.ReadLong()))

		case packet.ServerboundConfigPong:
			log.Debug("Received pong", zap.Int32("id", r.ReadInt()))

		case packet.ServerboundResourcePack:
			log.Debug("Received resource pack response")

		case packet.ServerboundFinishConfiguration:
			log.Debug("Client finished configuration")
			return conn.Advance(packet.PhaseGame)

		default:
			return nil, conn.UnknownPacket(id)
		}
	}
}

func sendConfiguration(conn *gonet.Conn, deps *Deps) error {
	brand := packet.NewWriterWithID(packet.ClientboundConfigCustomPayload)
	brand.WriteIdentifier(packet.BrandChannel)
	brand.WriteString(deps.Config.Server.Brand)
	if err := conn.WritePacket(brand); err != nil {
		return err
	}

	registry := packet.NewWriterWithID(packet.ClientboundRegistryData)
	registry.WriteBytes(deps.Registry.NBT())
	if err := conn.WritePacket(registry); err != nil {
		return err
	}

	return conn.WritePacket(packet.NewWriterWithID(packet.ClientboundFinishConfiguration))
}
