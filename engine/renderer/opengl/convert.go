package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

func bufferTarget(t gpu.BufferTarget) uint32 {
	switch t {
	case gpu.BufferTargetElementArray:
		return gl.ELEMENT_ARRAY_BUFFER
	case gpu.BufferTargetDrawIndirect:
		return gl.DRAW_INDIRECT_BUFFER
	case gpu.BufferTargetShaderStorage:
		return gl.SHADER_STORAGE_BUFFER
	default:
		return gl.ARRAY_BUFFER
	}
}

func textureFormat(f gpu.TextureFormat) (uint32, error) {
	switch f {
	case gpu.TextureFormatRGBA8:
		return gl.RGBA8, nil
	case gpu.TextureFormatRGBA16F:
		return gl.RGBA16F, nil
	case gpu.TextureFormatDepth32F:
		return gl.DEPTH_COMPONENT32F, nil
	}
	return 0, fmt.Errorf("texture format %d: %w", f, core.ErrUnsupportedFormat)
}

func compareFunc(f gpu.CompareFunc) uint32 {
	switch f {
	case gpu.CompareLessEqual:
		return gl.LEQUAL
	case gpu.CompareAlways:
		return gl.ALWAYS
	default:
		return gl.LESS
	}
}

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}
