package metadata

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief The base colour of the material. */
	Albedo mgl32.Vec4
	Emissive mgl32.Vec3
	Metallic float32
	/** @brief Zero means fully smooth. */
	Roughness float32
	/** @brief Optional albedo texture, InvalidID for none. */
	AlbedoTexture core.AssetID
}

/**
 * @brief A material as uploaded to static storage. Slot is the index of
 * its MaterialData entry, which is also its pool index.
 */
type Material struct {
	Name          string
	Slot          uint32
	AlbedoTexture core.AssetID
	Data          memory.MaterialData
}

func DefaultMaterialConfig() MaterialConfig {
	return MaterialConfig{
		Name:          DefaultMaterialName,
		Albedo:        mgl32.Vec4{1, 1, 1, 1},
		Roughness:     0.8,
		AlbedoTexture: core.InvalidID,
	}
}
