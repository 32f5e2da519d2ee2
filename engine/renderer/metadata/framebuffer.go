package metadata

import "github.com/spaghettifunk/lumen/engine/renderer/gpu"

/**
 * @brief Describes a render target. Width and Height are ignored for
 * auto-resized framebuffers, which follow the window scaled by Scale.
 */
type FramebufferConfig struct {
	Name         string
	Width        int32
	Height       int32
	Scale        float32
	ColorFormats []gpu.TextureFormat
	Depth        bool
	Filter       gpu.TextureFilter
}

type Framebuffer struct {
	Name       string
	Config     FramebufferConfig
	AutoResize bool
	Width      int32
	Height     int32
	Handle     gpu.FramebufferHandle
	Colors     []gpu.TextureHandle
	Depth      gpu.TextureHandle
}

// ScaledSize applies the config scale to a window size, never going below 1.
func (c FramebufferConfig) ScaledSize(width, height int32) (int32, int32) {
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int32(float32(width) * scale)
	h := int32(float32(height) * scale)
	return max(w, 1), max(h, 1)
}
