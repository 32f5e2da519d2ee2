package views

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// DebugStage overlays a wireframe of the submitted meshes, coloured by
// their normals.
type DebugStage struct {
	batchStage
	target core.AssetID
	shader core.AssetID
}

var debugRaster = gpu.RasterState{
	DepthTest: true,
	DepthFunc: gpu.CompareLessEqual,
	Cull:      gpu.CullNone,
	Wireframe: true,
}

func NewDebugStage(rm *systems.ResourcesManager, target core.AssetID) (*DebugStage, error) {
	shader, err := loadBuiltin(rm, "debug", debugVert, debugFrag)
	if err != nil {
		return nil, err
	}
	return &DebugStage{
		batchStage: batchStage{batch{groupBy: groupByMesh}},
		target:     target,
		shader:     shader,
	}, nil
}

func (s *DebugStage) Kind() StageKind      { return StageKindDebug }
func (s *DebugStage) Target() core.AssetID { return s.target }

func (s *DebugStage) Execute(ctx *FrameContext) error {
	groups, err := s.build(ctx)
	if err != nil || len(groups) == 0 {
		return err
	}
	if err := useProgram(ctx, s.shader); err != nil {
		return err
	}
	ctx.State.ApplyRaster(debugRaster)
	for _, g := range groups {
		multiDraw(ctx, g)
	}
	ctx.Memory.FenceFrameWork()
	return nil
}

func (s *DebugStage) Destroy(rm *systems.ResourcesManager) {
	rm.RemoveShader(s.shader)
}
