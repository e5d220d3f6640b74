package player

import "fmt"

// TexturesProperty is the profile property name that carries a skin.
const TexturesProperty = "textures"

// Skin is a signed texture property as issued by the session service.
type Skin struct {
	Value     string
	Signature string
}

// SkinLayers is the bitmask of displayed skin parts sent by the client.
type SkinLayers uint8

const (
	LayerCape SkinLayers = 1 << iota
	LayerJacket
	LayerLeftSleeve
	LayerRightSleeve
	LayerLeftPants
	LayerRightPants
	LayerHat

	AllLayers SkinLayers = 0x7F
)

func (l SkinLayers) Has(layer SkinLayers) bool {
	return l&layer == layer
}

func (l SkinLayers) String() string {
	return fmt.Sprintf("%07b", uint8(l))
}
