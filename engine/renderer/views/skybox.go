package views

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// SkyStage draws sky geometry behind the scene. The sky shader is expected
// to push its vertices to the far plane, so LEQUAL keeps it behind
// everything already drawn.
type SkyStage struct {
	batchStage
	target core.AssetID
}

var skyRaster = gpu.RasterState{
	DepthTest:  true,
	DepthWrite: false,
	DepthFunc:  gpu.CompareLessEqual,
	Cull:       gpu.CullNone,
}

// NewSkyStage draws into target, normally the scene framebuffer.
func NewSkyStage(target core.AssetID) *SkyStage {
	return &SkyStage{
		batchStage: batchStage{batch{groupBy: groupByShaderMesh}},
		target:     target,
	}
}

func (s *SkyStage) Kind() StageKind      { return StageKindSky }
func (s *SkyStage) Target() core.AssetID { return s.target }

func (s *SkyStage) Execute(ctx *FrameContext) error {
	groups, err := s.build(ctx)
	if err != nil || len(groups) == 0 {
		return err
	}
	ctx.State.ApplyRaster(skyRaster)
	if err := drawShaderGroups(ctx, groups); err != nil {
		return err
	}
	ctx.Memory.FenceFrameWork()
	return nil
}

// Destroy does nothing; the target belongs to the scene stage.
func (s *SkyStage) Destroy(rm *systems.ResourcesManager) {}
