package metadata

import "github.com/spaghettifunk/lumen/engine/renderer/gpu"

/** @brief Sampling and decoding options for a texture. */
type TextureConfig struct {
	Filter  gpu.TextureFilter
	Wrap    gpu.TextureWrap
	Mipmaps bool
	/** @brief Flip rows on load so the first row is the bottom one. */
	FlipY bool
}

func DefaultTextureConfig() TextureConfig {
	return TextureConfig{
		Filter:  gpu.TextureFilterLinear,
		Wrap:    gpu.TextureWrapRepeat,
		Mipmaps: true,
		FlipY:   true,
	}
}

/**
 * @brief Represents a texture.
 */
type Texture struct {
	/** @brief The texture Name. */
	Name   string
	Width  int32
	Height int32
	Format gpu.TextureFormat
	Handle gpu.TextureHandle
	/** @brief Bindless handle, made resident at creation. */
	Resident uint64
}
