package handler

import (
	"errors"
	"math"

	"github.com/limbomc/limbo/internal/data"
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/limbomc/limbo/internal/player"
	"go.uber.org/zap"
)

const (
	gameEventWaitForChunks = 13
	skinLayersMetadataIdx  = 17
	metadataTypeByte       = 0
	metadataEnd            = 0xFF
	initialTeleportID      = 1

	playerInfoAddPlayer      = 0x01
	playerInfoUpdateGameMode = 0x04
	playerInfoUpdateListed   = 0x08
	playerInfoUpdateLatency  = 0x10
	playerInfoUpdateName     = 0x20
)

var errMissingPlains = errors.New("registry data has no plains biome")

// HandleGame spawns the player into an empty world and idles until the
// client answers a ping, which ends the connection normally.
func HandleGame(conn *gonet.Conn, p *player.Player, deps *Deps) error {
	log := conn.Log().With(zap.String("player", p.Name()))

	entityID, err := p.AssignEntityID(deps.Players)
	if err != nil {
		return internalError(conn, err)
	}
	if err := spawn(conn, p, entityID, deps); err != nil {
		return err
	}
	log.Info("Player joined the game", zap.Int32("entity_id", entityID))

	for {
		id, _, err := conn.ReadPacket()
		if err != nil {
			return err
		}
		if id == packet.ServerboundGamePong {
			log.Debug("Received pong, closing connection")
			return nil
		}
	}
}

func spawn(conn *gonet.Conn, p *player.Player, entityID int32, deps *Deps) error {
	cfg := deps.Config.Server
	loc := cfg.Spawn
	gameMode := byte(cfg.DefaultGameMode)

	login := packet.NewWriterWithID(packet.ClientboundGameLogin)
	login.WriteInt(entityID)
	login.WriteBool(false) // hardcore
	login.WriteVarInt(1)
	login.WriteIdentifier(data.OverworldDimension)
	login.WriteVarInt(int32(cfg.MaxPlayers))
	login.WriteVarInt(int32(cfg.ViewDistance))
	login.WriteVarInt(int32(cfg.SimulationDistance))
	login.WriteBool(false) // reduced debug info
	login.WriteBool(true)  // respawn screen
	login.WriteBool(false) // limited crafting
	login.WriteIdentifier(data.OverworldDimension)
	login.WriteIdentifier(data.OverworldDimension)
	login.WriteLong(0) // hashed seed
	login.WriteUByte(gameMode)
	login.WriteUByte(0xFF) // previous game mode: none
	login.WriteBool(false) // debug world
	login.WriteBool(true)  // flat world
	login.WriteBool(false) // death location
	login.WriteVarInt(0)   // portal cooldown
	if err := conn.WritePacket(login); err != nil {
		return err
	}

	info := packet.NewWriterWithID(packet.ClientboundPlayerInfoUpdate)
	info.WriteUByte(playerInfoAddPlayer | playerInfoUpdateGameMode | playerInfoUpdateListed |
		playerInfoUpdateLatency | playerInfoUpdateName)
	info.WriteVarInt(1)
	info.WriteUUID(p.UUID())
	info.WriteString(p.Name())
	writeProfileProperties(info, p.Skin())
	info.WriteVarInt(int32(gameMode))
	info.WriteBool(true)  // listed
	info.WriteVarInt(0)   // latency
	info.WriteBool(false) // display name
	if err := conn.WritePacket(info); err != nil {
		return err
	}

	bx, by, bz := blockCoord(loc.X), blockCoord(loc.Y), blockCoord(loc.Z)
	spawnPos := packet.NewWriterWithID(packet.ClientboundSetDefaultSpawnPosition)
	spawnPos.WritePosition(bx, by, bz)
	spawnPos.WriteFloat(loc.Yaw)
	if err := conn.WritePacket(spawnPos); err != nil {
		return err
	}

	pos := packet.NewWriterWithID(packet.ClientboundPlayerPosition)
	pos.WriteDouble(loc.X)
	pos.WriteDouble(loc.Y)
	pos.WriteDouble(loc.Z)
	pos.WriteFloat(loc.Yaw)
	pos.WriteFloat(loc.Pitch)
	pos.WriteUByte(0) // all absolute
	pos.WriteVarInt(initialTeleportID)
	if err := conn.WritePacket(pos); err != nil {
		return err
	}

	if p.Skin() != nil {
		meta := packet.NewWriterWithID(packet.ClientboundSetEntityData)
		meta.WriteVarInt(entityID)
		meta.WriteUByte(skinLayersMetadataIdx)
		meta.WriteVarInt(metadataTypeByte)
		meta.WriteUByte(byte(p.SkinLayers()))
		meta.WriteUByte(metadataEnd)
		if err := conn.WritePacket(meta); err != nil {
			return err
		}
	}

	event := packet.NewWriterWithID(packet.ClientboundGameEvent)
	event.WriteUByte(gameEventWaitForChunks)
	event.WriteFloat(0)
	if err := conn.WritePacket(event); err != nil {
		return err
	}

	cx, cz := bx>>4, bz>>4
	center := packet.NewWriterWithID(packet.ClientboundSetChunkCacheCenter)
	center.WriteVarInt(cx)
	center.WriteVarInt(cz)
	if err := conn.WritePacket(center); err != nil {
		return err
	}

	biome, ok := deps.Registry.BiomeID(data.PlainsBiome)
	if !ok {
		return internalError(conn, errMissingPlains)
	}
	_, err := sendChunks(conn, cx, cz, emptySections(deps.Registry.SectionCount(), biome))
	return err
}

func blockCoord(v float64) int32 {
	return int32(math.Floor(v))
}
