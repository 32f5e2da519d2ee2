package views

import (
	_ "embed"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/systems"
)

//go:embed shaders/shadow.vert
var shadowVert string

//go:embed shaders/shadow.frag
var shadowFrag string

//go:embed shaders/debug.vert
var debugVert string

//go:embed shaders/debug.frag
var debugFrag string

//go:embed shaders/fullscreen.vert
var fullscreenVert string

//go:embed shaders/bloom_bright.frag
var bloomBrightFrag string

//go:embed shaders/bloom_blur.frag
var bloomBlurFrag string

//go:embed shaders/tonemap.frag
var tonemapFrag string

// loadBuiltin compiles one of the stage-owned programs.
func loadBuiltin(rm *systems.ResourcesManager, name, vertex, fragment string) (core.AssetID, error) {
	return rm.LoadShaderSource("builtin/"+name, gpu.ShaderSources{Vertex: vertex, Fragment: fragment})
}
