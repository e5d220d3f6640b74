package handler

import (
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
)

// chunkRadius chunks are sent on each side of the spawn chunk: the
// square covers center-6 through center+5 on both axes.
const chunkRadius = 6

// emptySections encodes sections chunk sections of air, each with a
// single-valued biome palette.
func emptySections(sections int, biome int32) []byte {
	w := packet.NewWriter()
	for i := 0; i < sections; i++ {
		w.WriteShort(0) // non-air block count

		// block states: single-valued palette of air, no data array
		w.WriteUByte(0)
		w.WriteVarInt(0)
		w.WriteVarInt(0)

		// biomes: single-valued palette, no data array
		w.WriteUByte(0)
		w.WriteVarInt(biome)
		w.WriteVarInt(0)
	}
	return w.Bytes()
}

func writeEmptyChunk(conn *gonet.Conn, x, z int32, sections []byte) error {
	w := packet.NewWriterWithID(packet.ClientboundLevelChunkWithLight)
	w.WriteInt(x)
	w.WriteInt(z)
	if err := w.WriteNBT(map[string]any{}); err != nil { // heightmaps
		return err
	}
	w.WriteVarInt(int32(len(sections)))
	w.WriteBytes(sections)
	w.WriteVarInt(0) // block entities

	// light: sky, block, empty sky and empty block masks, then no arrays
	w.WriteBitSet(nil)
	w.WriteBitSet(nil)
	w.WriteBitSet(nil)
	w.WriteBitSet(nil)
	w.WriteVarInt(0)
	w.WriteVarInt(0)
	return conn.WritePacket(w)
}

// sendChunks sends a batch of empty chunks centered on (cx, cz) and
// returns how many were sent.
func sendChunks(conn *gonet.Conn, cx, cz int32, sections []byte) (int32, error) {
	if err := conn.WritePacket(packet.NewWriterWithID(packet.ClientboundChunkBatchStart)); err != nil {
		return 0, err
	}

	var count int32
	for x := cx - chunkRadius; x < cx+chunkRadius; x++ {
		for z := cz - chunkRadius; z < cz+chunkRadius; z++ {
			if err := writeEmptyChunk(conn, x, z, sections); err != nil {
				return count, err
			}
			count++
		}
	}

	w := packet.NewWriterWithID(packet.ClientboundChunkBatchFinished)
	w.WriteVarInt(count)
	return count, conn.WritePacket(w)
}
