package views

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// SceneStage draws lit geometry into the HDR scene framebuffer with the
// shader each renderable names. Renderables are grouped by shader, then by
// mesh, and every shader run is one multi-draw.
type SceneStage struct {
	batchStage
	target core.AssetID
	clear  [4]float32
}

func NewSceneStage(rm *systems.ResourcesManager, clearColour [4]float32) (*SceneStage, error) {
	target, err := rm.LoadFramebuffer(metadata.FramebufferConfig{
		Name:         "scene-hdr",
		Scale:        1,
		ColorFormats: []gpu.TextureFormat{gpu.TextureFormatRGBA16F},
		Depth:        true,
		Filter:       gpu.TextureFilterLinear,
	}, true)
	if err != nil {
		return nil, err
	}
	return &SceneStage{
		batchStage: batchStage{batch{groupBy: groupByShaderMesh}},
		target:     target,
		clear:      clearColour,
	}, nil
}

func (s *SceneStage) Kind() StageKind      { return StageKindScene }
func (s *SceneStage) Target() core.AssetID { return s.target }

func (s *SceneStage) SetClearColour(c [4]float32) {
	s.clear = c
}

func (s *SceneStage) Execute(ctx *FrameContext) error {
	ctx.State.ApplyRaster(gpu.DefaultRasterState())
	ctx.Device.Clear(gpu.ClearColor|gpu.ClearDepth, s.clear)
	groups, err := s.build(ctx)
	if err != nil {
		return err
	}
	if err := drawShaderGroups(ctx, groups); err != nil {
		return err
	}
	if len(groups) > 0 {
		ctx.Memory.FenceFrameWork()
	}
	return nil
}

func (s *SceneStage) Destroy(rm *systems.ResourcesManager) {
	rm.RemoveFramebuffer(s.target)
}

// drawShaderGroups binds each group's own shader before drawing it.
func drawShaderGroups(ctx *FrameContext, groups []drawGroup) error {
	for _, g := range groups {
		if err := useProgram(ctx, g.shader); err != nil {
			return err
		}
		multiDraw(ctx, g)
	}
	return nil
}
