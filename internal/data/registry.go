package data

import (
	_ "embed"
	"fmt"

	"github.com/limbomc/limbo/internal/net/packet"
	"gopkg.in/yaml.v3"
)

// Identifiers the game phase relies on being present.
const (
	OverworldDimension = "minecraft:overworld"
	PlainsBiome        = "minecraft:plains"

	dimensionTypeRegistry = "minecraft:dimension_type"
	biomeRegistry         = "minecraft:worldgen/biome"
)

//go:embed registry_data.yaml
var defaultRegistryData []byte

type registryFile struct {
	Registries []registrySpec `yaml:"registries"`
}

type registrySpec struct {
	Type    string      `yaml:"type"`
	Entries []entrySpec `yaml:"entries"`
}

type entrySpec struct {
	Name    string         `yaml:"name"`
	Element map[string]any `yaml:"element"`
}

// RegistryData is the encoded registry codec sent during configuration,
// plus the lookups the game phase needs from it.
type RegistryData struct {
	nbt      []byte
	biomes   map[string]int32
	sections int
}

// LoadRegistryData parses the embedded registry_data.yaml.
func LoadRegistryData() (*RegistryData, error) {
	return ParseRegistryData(defaultRegistryData)
}

// ParseRegistryData builds registry data from YAML. Entry ids follow list
// order within each registry.
func ParseRegistryData(raw []byte) (*RegistryData, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse registry data: %w", err)
	}

	d := &RegistryData{biomes: make(map[string]int32)}
	root := make(map[string]any, len(file.Registries))
	for _, reg := range file.Registries {
		if _, dup := root[reg.Type]; dup {
			return nil, fmt.Errorf("registry %s declared twice", reg.Type)
		}
		values := make([]any, 0, len(reg.Entries))
		for i, e := range reg.Entries {
			if e.Element == nil {
				return nil, fmt.Errorf("registry %s: entry %s has no element", reg.Type, e.Name)
			}
			values = append(values, map[string]any{
				"name":    e.Name,
				"id":      int32(i),
				"element": e.Element,
			})

			switch reg.Type {
			case biomeRegistry:
				d.biomes[e.Name] = int32(i)
			case dimensionTypeRegistry:
				if e.Name == OverworldDimension {
					height, ok := e.Element["height"].(int)
					if !ok || height <= 0 || height%16 != 0 {
						return nil, fmt.Errorf("registry %s: %s has invalid height %v", reg.Type, e.Name, e.Element["height"])
					}
					d.sections = height / 16
				}
			}
		}
		root[reg.Type] = map[string]any{
			"type":  reg.Type,
			"value": values,
		}
	}

	if d.sections == 0 {
		return nil, fmt.Errorf("registry data has no %s dimension type", OverworldDimension)
	}
	if _, ok := d.biomes[PlainsBiome]; !ok {
		return nil, fmt.Errorf("registry data has no %s biome", PlainsBiome)
	}

	nbt, err := packet.EncodeNBT(root)
	if err != nil {
		return nil, fmt.Errorf("encode registry data: %w", err)
	}
	d.nbt = nbt
	return d, nil
}

// NBT returns the network NBT compound for the registry data packet.
func (d *RegistryData) NBT() []byte {
	return d.nbt
}

// BiomeID returns the network id of a biome.
func (d *RegistryData) BiomeID(name string) (int32, bool) {
	id, ok := d.biomes[name]
	return id, ok
}

// SectionCount is the number of 16-block chunk sections in the overworld.
func (d *RegistryData) SectionCount() int {
	return d.sections
}
