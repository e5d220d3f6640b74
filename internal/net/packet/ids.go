package packet

// ProtocolVersion is the protocol number of Minecraft Java 1.20.4.
const ProtocolVersion = 765

// Client intentions carried by the handshake packet.
const (
	IntentionStatus   = 1
	IntentionLogin    = 2
	IntentionTransfer = 3
)

// Handshake, serverbound.
const (
	ServerboundIntention int32 = 0x00
)

// LegacyPingMarker is the first byte sent by pre-1.7 clients pinging a server.
const LegacyPingMarker byte = 0xFE

// Status.
const (
	ServerboundStatusRequest int32 = 0x00
	ServerboundPingRequest   int32 = 0x01

	ClientboundStatusResponse int32 = 0x00
	ClientboundPongResponse   int32 = 0x01
)

// Login.
const (
	ServerboundHello             int32 = 0x00
	ServerboundKey               int32 = 0x01
	ServerboundCustomQueryAnswer int32 = 0x02
	ServerboundLoginAcknowledged int32 = 0x03
	ClientboundLoginDisconnect   int32 = 0x00
	ClientboundGameProfile       int32 = 0x02
	ClientboundCustomQuery       int32 = 0x04
)

// Configuration.
const (
	ServerboundClientInformation   int32 = 0x00
	ServerboundConfigCustomPayload int32 = 0x01
	ServerboundFinishConfiguration int32 = 0x02
	ServerboundConfigKeepAlive     int32 = 0x03
	ServerboundConfigPong          int32 = 0x04
	ServerboundResourcePack        int32 = 0x05
	ClientboundConfigCustomPayload int32 = 0x00
	ClientboundConfigDisconnect    int32 = 0x01
	ClientboundFinishConfiguration int32 = 0x02
	ClientboundRegistryData        int32 = 0x05
)

// Game (play), serverbound.
const (
	ServerboundGameKeepAlive int32 = 0x15
	ServerboundGamePong      int32 = 0x24
)

// Game (play), clientbound.
const (
	ClientboundChunkBatchFinished      int32 = 0x0C
	ClientboundChunkBatchStart         int32 = 0x0D
	ClientboundGameDisconnect          int32 = 0x1B
	ClientboundGameEvent               int32 = 0x20
	ClientboundLevelChunkWithLight     int32 = 0x25
	ClientboundGameLogin               int32 = 0x29
	ClientboundPlayerInfoUpdate        int32 = 0x3C
	ClientboundPlayerPosition          int32 = 0x3E
	ClientboundSetChunkCacheCenter     int32 = 0x52
	ClientboundSetDefaultSpawnPosition int32 = 0x54
	ClientboundSetEntityData           int32 = 0x56
)

// Plugin channels.
const (
	BrandChannel = "minecraft:brand"
)
