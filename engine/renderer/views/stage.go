package views

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type StageKind uint8

const (
	StageKindShadow StageKind = iota
	StageKindScene
	StageKindSky
	StageKindBloom
	StageKindDebug
	StageKindPostProcess
)

func (k StageKind) Mask() metadata.StageMask {
	switch k {
	case StageKindShadow:
		return metadata.StageShadow
	case StageKindScene:
		return metadata.StageScene
	case StageKindSky:
		return metadata.StageSky
	case StageKindBloom:
		return metadata.StageBloom
	case StageKindDebug:
		return metadata.StageDebug
	case StageKindPostProcess:
		return metadata.StagePostProcess
	default:
		return metadata.StageNone
	}
}

func (k StageKind) String() string {
	if m := k.Mask(); m != metadata.StageNone {
		return m.String()
	}
	return fmt.Sprintf("stage(%d)", uint8(k))
}

// Stage is one render pass. Stages that accept renderables collect indices
// into the frame's renderable list during Submit and draw them in Execute.
type Stage interface {
	Kind() StageKind
	// Target is the framebuffer bound before Execute. InvalidID selects the
	// window framebuffer.
	Target() core.AssetID
	AcceptsRenderables() bool
	Submit(index int)
	// Reset drops the submitted indices without drawing.
	Reset()
	Execute(ctx *FrameContext) error
	Destroy(rm *systems.ResourcesManager)
}

// batchStage implements the submit side shared by the geometry stages.
type batchStage struct {
	batch
}

func (s *batchStage) AcceptsRenderables() bool { return true }
func (s *batchStage) Submit(index int)         { s.submit(index) }
func (s *batchStage) Reset()                   { s.reset() }

// Pending is the number of renderables submitted since the last Execute.
func (s *batchStage) Pending() int { return s.pending() }

// fullscreenStage implements the submit side of stages that draw a single
// triangle over their target and take no renderables.
type fullscreenStage struct{}

func (fullscreenStage) AcceptsRenderables() bool { return false }
func (fullscreenStage) Submit(int)               {}
func (fullscreenStage) Reset()                   {}

var fullscreenRaster = gpu.RasterState{
	DepthFunc: gpu.CompareAlways,
	Cull:      gpu.CullNone,
	Blend:     gpu.BlendNone,
}

// useProgram binds the program behind a stage-owned shader id.
func useProgram(ctx *FrameContext, id core.AssetID) error {
	shader, ok := ctx.Resources.Shader(id)
	if !ok {
		return fmt.Errorf("shader %s: %w", id, core.ErrStaleHandle)
	}
	ctx.State.UseProgram(shader.Program)
	return nil
}

// colorTexture returns the first colour attachment of a framebuffer.
func colorTexture(ctx *FrameContext, id core.AssetID) (gpu.TextureHandle, error) {
	fb, ok := ctx.Resources.Framebuffer(id)
	if !ok || len(fb.Colors) == 0 {
		return 0, fmt.Errorf("framebuffer %s: %w", id, core.ErrStaleHandle)
	}
	return fb.Colors[0], nil
}
